package nes

import "image/color"

const (
	FrameWidth  = 256
	FrameHeight = 240
)

// Frame is a host-side RGBA framebuffer. Pix is laid out the way
// image.RGBA and ebiten's WritePixels expect: 4 bytes per pixel,
// row-major.
type Frame struct {
	Pix []uint8
}

func NewFrame() *Frame {
	return &Frame{
		Pix: make([]uint8, FrameWidth*FrameHeight*4),
	}
}

func (f *Frame) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= FrameWidth || y < 0 || y >= FrameHeight {
		return
	}
	i := (y*FrameWidth + x) * 4
	f.Pix[i] = c.R
	f.Pix[i+1] = c.G
	f.Pix[i+2] = c.B
	f.Pix[i+3] = c.A
}

// Render draws the background from nametable 0 and the 64 OAM sprites
// into frame. It is a whole-frame renderer meant to run once per video
// frame from the bus callback, not a dot-accurate pipeline.
func Render(p *PPU, frame *Frame) {
	renderBackground(p, frame)
	renderSprites(p, frame)
}

func renderBackground(p *PPU, frame *Frame) {
	bank := p.ctrl.backgroundPatternAddr()

	for i := 0; i < 0x3c0; i++ {
		tileIdx := uint16(p.vram[i])
		tileX := i % 32
		tileY := i / 32
		tile := p.chr[bank+tileIdx*16 : bank+tileIdx*16+16]
		palette := p.backgroundPalette(tileX, tileY)

		for y := 0; y < 8; y++ {
			upper := tile[y]
			lower := tile[y+8]

			for x := 7; x >= 0; x-- {
				value := (upper&1)<<1 | lower&1
				upper >>= 1
				lower >>= 1
				frame.SetPixel(tileX*8+x, tileY*8+y, SystemPalette[palette[value]&0x3f])
			}
		}
	}
}

// backgroundPalette resolves a tile's 4-color palette from the
// attribute table at the end of the nametable.
func (p *PPU) backgroundPalette(tileX, tileY int) [4]uint8 {
	attrIdx := tileY/4*8 + tileX/4
	attr := p.vram[0x3c0+attrIdx]

	shift := uint(0)
	if tileX%4/2 == 1 {
		shift += 2
	}
	if tileY%4/2 == 1 {
		shift += 4
	}
	paletteIdx := attr >> shift & 0x3

	start := 1 + int(paletteIdx)*4
	return [4]uint8{
		p.palette[0],
		p.palette[start],
		p.palette[start+1],
		p.palette[start+2],
	}
}

func renderSprites(p *PPU, frame *Frame) {
	bank := p.ctrl.spritePatternAddr()

	// lower OAM indices sit in front, so draw back to front
	for i := len(p.oam) - 4; i >= 0; i -= 4 {
		tileY := int(p.oam[i])
		tileIdx := uint16(p.oam[i+1])
		attr := p.oam[i+2]
		tileX := int(p.oam[i+3])

		flipV := attr>>7&1 == 1
		flipH := attr>>6&1 == 1
		palette := p.spritePalette(attr & 0x3)

		tile := p.chr[bank+tileIdx*16 : bank+tileIdx*16+16]
		for y := 0; y < 8; y++ {
			upper := tile[y]
			lower := tile[y+8]

			for x := 7; x >= 0; x-- {
				value := (upper&1)<<1 | lower&1
				upper >>= 1
				lower >>= 1
				if value == 0 {
					// transparent
					continue
				}
				c := SystemPalette[palette[value]&0x3f]

				px, py := x, y
				if flipH {
					px = 7 - x
				}
				if flipV {
					py = 7 - y
				}
				frame.SetPixel(tileX+px, tileY+py, c)
			}
		}
	}
}

func (p *PPU) spritePalette(idx uint8) [4]uint8 {
	start := 0x11 + int(idx)*4
	return [4]uint8{
		0,
		p.palette[start],
		p.palette[start+1],
		p.palette[start+2],
	}
}
