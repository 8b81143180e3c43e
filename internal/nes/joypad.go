package nes

const (
	ButtonA = uint8(1 << iota)
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Joypad is the controller latch at 0x4016. While the strobe bit is set,
// reads keep returning button A; once the strobe drops, reads report the
// eight buttons one bit at a time and then pin at 1.
type Joypad struct {
	strobe  bool
	index   uint8
	buttons uint8
}

func NewJoypad() *Joypad {
	return &Joypad{}
}

func (j *Joypad) Write(data uint8) {
	j.strobe = data&1 == 1
	if j.strobe {
		j.index = 0
	}
}

func (j *Joypad) Read() uint8 {
	if j.index > 7 {
		return 1
	}
	r := (j.buttons >> j.index) & 1
	if !j.strobe {
		j.index++
	}
	return r
}

// SetButton updates one button's pressed state. The host input layer
// calls it from the per-frame callback.
func (j *Joypad) SetButton(button uint8, pressed bool) {
	if pressed {
		j.buttons |= button
		return
	}
	j.buttons &= ^button
}
