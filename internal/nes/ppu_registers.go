package nes

// Control register (0x2000), write-only.
//
// 7  bit  0
// ---- ----
// VPHB SINN
// |||| ||++- base nametable address (0=$2000, 1=$2400, 2=$2800, 3=$2C00)
// |||| |+--- VRAM address increment per data access (0: +1, 1: +32)
// |||| +---- sprite pattern table address (0: $0000, 1: $1000)
// |||+------ background pattern table address (0: $0000, 1: $1000)
// ||+------- sprite size (0: 8x8, 1: 8x16)
// |+-------- PPU master/slave select
// +--------- generate an NMI at the start of vblank
const (
	ctrlNametable1 = uint8(1 << iota)
	ctrlNametable2
	ctrlVRAMAddIncrement
	ctrlSpritePatternAddr
	ctrlBackgroundPatternAddr
	ctrlSpriteSize
	ctrlMasterSlaveSelect
	ctrlGenerateNMI
)

type controlRegister uint8

func (r *controlRegister) update(data uint8) {
	*r = controlRegister(data)
}

func (r controlRegister) baseNametableAddr() uint16 {
	return 0x2000 + 0x400*uint16(r&0x3)
}

func (r controlRegister) vramAddrIncrement() uint8 {
	if uint8(r)&ctrlVRAMAddIncrement > 0 {
		return 32
	}
	return 1
}

func (r controlRegister) spritePatternAddr() uint16 {
	if uint8(r)&ctrlSpritePatternAddr > 0 {
		return 0x1000
	}
	return 0
}

func (r controlRegister) backgroundPatternAddr() uint16 {
	if uint8(r)&ctrlBackgroundPatternAddr > 0 {
		return 0x1000
	}
	return 0
}

func (r controlRegister) spriteSize() uint8 {
	if uint8(r)&ctrlSpriteSize > 0 {
		return 16
	}
	return 8
}

func (r controlRegister) generateNMI() bool {
	return uint8(r)&ctrlGenerateNMI > 0
}

// Mask register (0x2001), write-only.
//
// 7  bit  0
// ---- ----
// BGRs bMmG
// |||| |||+- greyscale
// |||| ||+-- show background in leftmost 8 pixels
// |||| |+--- show sprites in leftmost 8 pixels
// |||| +---- show background
// |||+------ show sprites
// ||+------- emphasize red
// |+-------- emphasize green
// +--------- emphasize blue
const (
	maskGrayscale = uint8(1 << iota)
	maskShowBackgroundLeft
	maskShowSpritesLeft
	maskShowBackground
	maskShowSprites
	maskEmphasizeRed
	maskEmphasizeGreen
	maskEmphasizeBlue
)

type maskRegister uint8

func (r *maskRegister) update(data uint8) {
	*r = maskRegister(data)
}

func (r maskRegister) showBackground() bool {
	return uint8(r)&maskShowBackground > 0
}

func (r maskRegister) showSprites() bool {
	return uint8(r)&maskShowSprites > 0
}

// Status register (0x2002), read-only.
//
// 7  bit  0
// ---- ----
// VSO. ....
// ||+------- sprite overflow
// |+-------- sprite 0 hit
// +--------- vblank started
const (
	statusSpriteOverflow = uint8(1 << 5)
	statusSpriteZeroHit  = uint8(1 << 6)
	statusVblankStarted  = uint8(1 << 7)
)

type statusRegister uint8

func (r *statusRegister) set(flag uint8, v bool) {
	if v {
		*r |= statusRegister(flag)
		return
	}
	*r &= ^statusRegister(flag)
}

func (r statusRegister) vblankStarted() bool {
	return uint8(r)&statusVblankStarted > 0
}

func (r statusRegister) spriteZeroHit() bool {
	return uint8(r)&statusSpriteZeroHit > 0
}

func (r statusRegister) bits() uint8 {
	return uint8(r)
}

// Scroll register (0x2005): two sequential writes set the horizontal and
// vertical offsets, toggling a latch shared in spirit with the address
// register. A status read resets the latch.
type scrollRegister struct {
	x     uint8
	y     uint8
	latch bool
}

func (r *scrollRegister) write(data uint8) {
	if !r.latch {
		r.x = data
	} else {
		r.y = data
	}
	r.latch = !r.latch
}

func (r *scrollRegister) resetLatch() {
	r.latch = false
}

// Address register (0x2006): two sequential writes set the high then low
// byte of the 14-bit VRAM pointer. Values above 0x3fff are masked.
type addrRegister struct {
	hi    uint8
	lo    uint8
	hiPtr bool
}

func newAddrRegister() addrRegister {
	return addrRegister{hiPtr: true}
}

func (r addrRegister) get() uint16 {
	return uint16(r.hi)<<8 | uint16(r.lo)
}

func (r *addrRegister) set(addr uint16) {
	r.hi = uint8(addr >> 8)
	r.lo = uint8(addr & 0xff)
}

func (r *addrRegister) update(data uint8) {
	if r.hiPtr {
		r.hi = data
	} else {
		r.lo = data
	}
	r.set(r.get() & 0x3fff)
	r.hiPtr = !r.hiPtr
}

func (r *addrRegister) increment(inc uint8) {
	lo := r.lo
	r.lo += inc
	if lo > r.lo {
		r.hi++
	}
	r.set(r.get() & 0x3fff)
}

func (r *addrRegister) resetLatch() {
	r.hiPtr = true
}
