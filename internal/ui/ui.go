package ui

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/sadgedog/Hobby-Nes-Emulator/internal/nes"
)

// P - pause
// Tab - show fps

const (
	gameScreenScale = 3
)

var keyBindings = map[ebiten.Key]uint8{
	ebiten.KeyZ:          nes.ButtonA,
	ebiten.KeyX:          nes.ButtonB,
	ebiten.KeyShiftRight: nes.ButtonSelect,
	ebiten.KeyEnter:      nes.ButtonStart,
	ebiten.KeyUp:         nes.ButtonUp,
	ebiten.KeyDown:       nes.ButtonDown,
	ebiten.KeyLeft:       nes.ButtonLeft,
	ebiten.KeyRight:      nes.ButtonRight,
}

type UI struct {
	bus   *nes.Bus
	frame *nes.Frame
	img   *ebiten.Image

	frameReady bool
	paused     bool
	showFPS    bool
}

func New(bus *nes.Bus) *UI {
	ui := &UI{
		bus:   bus,
		frame: nes.NewFrame(),
		img:   ebiten.NewImage(nes.FrameWidth, nes.FrameHeight),
	}
	bus.SetFrameHandler(ui)
	return ui
}

// OnFrame runs on the bus thread at the start of every vblank. It
// latches the keyboard into the joypad and renders the finished frame.
func (ui *UI) OnFrame(ppu *nes.PPU, joypad *nes.Joypad) {
	for key, button := range keyBindings {
		joypad.SetButton(button, ebiten.IsKeyPressed(key))
	}
	nes.Render(ppu, ui.frame)
	ui.frameReady = true
}

// Update steps the CPU until the bus delivers the next video frame.
func (ui *UI) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		ui.paused = !ui.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		ui.showFPS = !ui.showFPS
	}
	if ui.paused {
		return nil
	}

	ui.frameReady = false
	for !ui.frameReady {
		if _, err := ui.bus.CPU().Step(); err != nil {
			return fmt.Errorf("emulation stopped: %w", err)
		}
	}
	return nil
}

func (ui *UI) Draw(screen *ebiten.Image) {
	ui.img.WritePixels(ui.frame.Pix)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(gameScreenScale, gameScreenScale)
	screen.DrawImage(ui.img, op)

	if ui.showFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %0.0f", ebiten.ActualFPS()))
	}
}

func (ui *UI) Layout(_, _ int) (int, int) {
	return nes.FrameWidth * gameScreenScale, nes.FrameHeight * gameScreenScale
}

func (ui *UI) Run() error {
	ebiten.SetWindowSize(nes.FrameWidth*gameScreenScale, nes.FrameHeight*gameScreenScale)
	ebiten.SetWindowTitle("nes")
	return ebiten.RunGame(ui)
}
