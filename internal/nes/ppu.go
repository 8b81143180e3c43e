package nes

import "log"

const (
	dotsPerScanline   = 341
	scanlinesPerFrame = 262
	vblankScanline    = 241

	vramSizeBytes    = 0x800
	paletteSizeBytes = 0x20
	oamSizeBytes     = 0x100
)

// PPU models the picture unit's registers and its scanline/dot counter.
// It advances in lock-step with bus ticks: three dots per CPU cycle.
type PPU struct {
	chr     []uint8
	vram    [vramSizeBytes]uint8
	palette [paletteSizeBytes]uint8
	oam     [oamSizeBytes]uint8
	mirror  Mirroring

	ctrl   controlRegister
	mask   maskRegister
	status statusRegister
	scroll scrollRegister
	addr   addrRegister

	oamAddr uint8
	// readBuffer delays pattern/nametable reads by one access
	readBuffer uint8

	scanline uint16
	dot      uint16
	frame    uint64

	nmiPending bool

	fourScreenWarned bool
}

func NewPPU(chr []uint8, mirror Mirroring) *PPU {
	return &PPU{
		chr:    chr,
		mirror: mirror,
		addr:   newAddrRegister(),
	}
}

// readRegister handles CPU reads of the eight register slots. reg is the
// register index 0-7, mirroring already applied by the bus.
func (p *PPU) readRegister(reg uint16) uint8 {
	switch reg {
	case 0x2:
		return p.ReadStatus()
	case 0x4:
		return p.ReadOAMData()
	case 0x7:
		return p.ReadData()
	}
	// write-only registers read as 0
	return 0
}

func (p *PPU) writeRegister(reg uint16, data uint8) {
	switch reg {
	case 0x0:
		p.WriteCtrl(data)
	case 0x1:
		p.WriteMask(data)
	case 0x2:
		// status is read-only from the CPU side
	case 0x3:
		p.WriteOAMAddr(data)
	case 0x4:
		p.WriteOAMData(data)
	case 0x5:
		p.WriteScroll(data)
	case 0x6:
		p.WriteAddr(data)
	case 0x7:
		p.WriteData(data)
	}
}

// WriteCtrl updates the control register. Enabling NMI generation while
// vblank is already active latches an NMI immediately.
func (p *PPU) WriteCtrl(data uint8) {
	before := p.ctrl.generateNMI()
	p.ctrl.update(data)
	if !before && p.ctrl.generateNMI() && p.status.vblankStarted() {
		p.nmiPending = true
	}
}

func (p *PPU) WriteMask(data uint8) {
	p.mask.update(data)
}

// ReadStatus returns the status byte, clears the vblank flag and resets
// both write latches.
func (p *PPU) ReadStatus() uint8 {
	data := p.status.bits()
	p.status.set(statusVblankStarted, false)
	p.addr.resetLatch()
	p.scroll.resetLatch()
	return data
}

func (p *PPU) WriteOAMAddr(data uint8) {
	p.oamAddr = data
}

func (p *PPU) WriteOAMData(data uint8) {
	p.oam[p.oamAddr] = data
	p.oamAddr++
}

// ReadOAMData reads at the cursor without advancing it.
func (p *PPU) ReadOAMData() uint8 {
	return p.oam[p.oamAddr]
}

// WriteOAMDMA copies a full 256-byte page into OAM starting at the
// current cursor, wrapping at 256.
func (p *PPU) WriteOAMDMA(buf *[256]uint8) {
	for _, v := range buf {
		p.WriteOAMData(v)
	}
}

func (p *PPU) WriteScroll(data uint8) {
	p.scroll.write(data)
}

func (p *PPU) WriteAddr(data uint8) {
	p.addr.update(data)
}

// ReadData returns the byte at the VRAM pointer and advances it. Pattern
// and nametable reads come back one access late through the read buffer,
// palette reads are immediate.
func (p *PPU) ReadData() uint8 {
	addr := p.addr.get()
	p.addr.increment(p.ctrl.vramAddrIncrement())

	switch {
	case addr < 0x2000:
		data := p.readBuffer
		p.readBuffer = p.chr[addr]
		return data
	case addr < 0x3f00:
		data := p.readBuffer
		p.readBuffer = p.vram[p.mirrorVRAMAddr(addr)]
		return data
	default:
		return p.palette[paletteIndex(addr)]
	}
}

func (p *PPU) WriteData(data uint8) {
	addr := p.addr.get()
	p.addr.increment(p.ctrl.vramAddrIncrement())

	switch {
	case addr < 0x2000:
		// CHR is ROM on mapper 0
		log.Printf("ignoring write to chr rom space %04X\n", addr)
	case addr < 0x3f00:
		p.vram[p.mirrorVRAMAddr(addr)] = data
	default:
		p.palette[paletteIndex(addr)] = data
	}
}

// paletteIndex folds 0x3f00-0x3fff into the 32-byte palette table. The
// sprite backdrop entries 0x3f10/14/18/1c alias their background
// counterparts.
func paletteIndex(addr uint16) uint16 {
	i := (addr - 0x3f00) % 0x20
	switch i {
	case 0x10, 0x14, 0x18, 0x1c:
		i -= 0x10
	}
	return i
}

// mirrorVRAMAddr folds the four logical nametables at 0x2000-0x3eff onto
// the two physical 2KB banks.
func (p *PPU) mirrorVRAMAddr(addr uint16) uint16 {
	idx := addr&0x2fff - 0x2000
	table := idx / 0x400

	switch p.mirror {
	case MirrorVertical:
		if table == 2 || table == 3 {
			idx -= 0x800
		}
	case MirrorHorizontal:
		switch table {
		case 1, 2:
			idx -= 0x400
		case 3:
			idx -= 0x800
		}
	case MirrorFourScreen:
		// needs cartridge RAM for the extra two tables; fold like
		// vertical so the address stays in range
		if !p.fourScreenWarned {
			log.Printf("four-screen mirroring is not implemented\n")
			p.fourScreenWarned = true
		}
		idx &= 0x7ff
	}
	return idx
}

// Tick advances the dot counter. At scanline 241 the vblank flag is set
// and an NMI is latched when enabled; wrapping past scanline 261 ends
// the frame and clears everything.
func (p *PPU) Tick(dots int) {
	p.dot += uint16(dots)

	for p.dot >= dotsPerScanline {
		if p.isSpriteZeroHit() {
			p.status.set(statusSpriteZeroHit, true)
		}

		p.dot -= dotsPerScanline
		p.scanline++

		if p.scanline == vblankScanline {
			p.status.set(statusVblankStarted, true)
			p.status.set(statusSpriteZeroHit, false)
			if p.ctrl.generateNMI() {
				p.nmiPending = true
			}
		}

		if p.scanline >= scanlinesPerFrame {
			p.scanline = 0
			p.frame++
			p.nmiPending = false
			p.status.set(statusSpriteZeroHit, false)
			p.status.set(statusVblankStarted, false)
		}
	}
}

// isSpriteZeroHit approximates the hit flag: set once the dot sweep
// passes sprite 0's coordinates with background rendering on.
func (p *PPU) isSpriteZeroHit() bool {
	y := uint16(p.oam[0])
	x := uint16(p.oam[3])
	return y == p.scanline && x <= p.dot && p.mask.showSprites()
}

// NMIPending reports the latch without consuming it. The bus uses it for
// rising-edge detection.
func (p *PPU) NMIPending() bool {
	return p.nmiPending
}

// TakeNMI consumes the pending NMI latch, at most once per assertion.
func (p *PPU) TakeNMI() bool {
	pending := p.nmiPending
	p.nmiPending = false
	return pending
}

func (p *PPU) Scanline() uint16 {
	return p.scanline
}

func (p *PPU) Dot() uint16 {
	return p.dot
}

func (p *PPU) Frame() uint64 {
	return p.frame
}
