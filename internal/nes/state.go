package nes

import (
	"encoding/gob"
	"io"
)

// state snapshots everything that changes while a fixed cartridge runs.
// The cartridge images themselves are not included: a state is only
// valid against the ROM it was taken from.
type state struct {
	RAM    [ramSizeBytes]uint8
	Cycles uint64

	CPU cpuState
	PPU ppuState
}

type cpuState struct {
	A, X, Y, P, SP uint8
	PC             uint16
	TotalCycles    uint64
	Halted         bool
}

type ppuState struct {
	VRAM    [vramSizeBytes]uint8
	Palette [paletteSizeBytes]uint8
	OAM     [oamSizeBytes]uint8

	Ctrl   uint8
	Mask   uint8
	Status uint8

	ScrollX, ScrollY uint8
	ScrollLatch      bool
	AddrHi, AddrLo   uint8
	AddrHiPtr        bool

	OAMAddr    uint8
	ReadBuffer uint8

	Scanline   uint16
	Dot        uint16
	Frame      uint64
	NMIPending bool
}

// SaveState writes a snapshot of the running machine to w.
func (b *Bus) SaveState(w io.Writer) error {
	s := state{
		RAM:    b.ram.ram,
		Cycles: b.cycles,
		CPU:    b.cpu.saveState(),
		PPU:    b.ppu.saveState(),
	}
	return gob.NewEncoder(w).Encode(s)
}

// LoadState restores a snapshot taken with SaveState. The bus must be
// running the same cartridge the snapshot was taken from.
func (b *Bus) LoadState(r io.Reader) error {
	var s state
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return err
	}

	b.ram.ram = s.RAM
	b.cycles = s.Cycles
	b.fault = nil
	b.dmaStall = 0
	b.cpu.loadState(s.CPU)
	b.ppu.loadState(s.PPU)
	return nil
}

func (c *CPU) saveState() cpuState {
	return cpuState{
		A: c.a, X: c.x, Y: c.y, P: c.p, SP: c.sp, PC: c.pc,
		TotalCycles: c.totalCycles,
		Halted:      c.halted,
	}
}

func (c *CPU) loadState(s cpuState) {
	c.a, c.x, c.y, c.p, c.sp, c.pc = s.A, s.X, s.Y, s.P, s.SP, s.PC
	c.totalCycles = s.TotalCycles
	c.halted = s.Halted
	c.addrMode = 0
	c.operandAddr = 0
	c.pageCrossed = false
}

func (p *PPU) saveState() ppuState {
	return ppuState{
		VRAM:    p.vram,
		Palette: p.palette,
		OAM:     p.oam,

		Ctrl:   uint8(p.ctrl),
		Mask:   uint8(p.mask),
		Status: p.status.bits(),

		ScrollX:     p.scroll.x,
		ScrollY:     p.scroll.y,
		ScrollLatch: p.scroll.latch,
		AddrHi:      p.addr.hi,
		AddrLo:      p.addr.lo,
		AddrHiPtr:   p.addr.hiPtr,

		OAMAddr:    p.oamAddr,
		ReadBuffer: p.readBuffer,

		Scanline:   p.scanline,
		Dot:        p.dot,
		Frame:      p.frame,
		NMIPending: p.nmiPending,
	}
}

func (p *PPU) loadState(s ppuState) {
	p.vram = s.VRAM
	p.palette = s.Palette
	p.oam = s.OAM

	p.ctrl.update(s.Ctrl)
	p.mask.update(s.Mask)
	p.status = statusRegister(s.Status)

	p.scroll.x = s.ScrollX
	p.scroll.y = s.ScrollY
	p.scroll.latch = s.ScrollLatch
	p.addr.hi = s.AddrHi
	p.addr.lo = s.AddrLo
	p.addr.hiPtr = s.AddrHiPtr

	p.oamAddr = s.OAMAddr
	p.readBuffer = s.ReadBuffer

	p.scanline = s.Scanline
	p.dot = s.Dot
	p.frame = s.Frame
	p.nmiPending = s.NMIPending
}
