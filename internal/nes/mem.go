package nes

type ReadWriter interface {
	Read8(addr uint16) uint8
	Write8(addr uint16, data uint8)
}

// $0000-$07FF: 2 KB of internal RAM
// $0800-$1FFF: Mirrors of $0000-$07FF
// $2000-$2007: PPU registers
// $2008-$3FFF: Mirrors of $2000-$2007 (every 8 bytes)
// $4000-$4013, $4015: APU registers (unimplemented, reads 0)
// $4014:       OAM DMA
// $4016:       joypad 1
// $4017:       joypad 2 (unimplemented)
// $4018-$7FFF: expansion/cartridge RAM space (unimplemented)
// $8000-$FFFF: PRG ROM, 16KB images mirrored into both halves
type cpuMemory struct {
	bus *Bus
}

func (b *Bus) newCpuMemory() *cpuMemory {
	return &cpuMemory{bus: b}
}

func (c cpuMemory) Read8(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return c.bus.ram.Read8(addr & 0x07ff)
	case addr < 0x4000:
		return c.bus.ppu.readRegister(addr & 0x7)
	case addr == 0x4016:
		return c.bus.joypad.Read()
	case addr < 0x4018:
		// APU and second joypad, unimplemented
		return 0
	case addr >= 0x8000:
		return c.bus.cart.Read8(addr)
	}
	// expansion space, unimplemented
	return 0
}

func (c *cpuMemory) Write8(addr uint16, data uint8) {
	switch {
	case addr < 0x2000:
		c.bus.ram.Write8(addr&0x07ff, data)
	case addr < 0x4000:
		c.bus.ppu.writeRegister(addr&0x7, data)
	case addr == 0x4014:
		c.bus.oamDMA(data)
	case addr == 0x4016:
		c.bus.joypad.Write(data)
	case addr < 0x4018:
		// APU and second joypad, unimplemented
	case addr >= 0x8000:
		c.bus.setFault(&ROMWriteError{Addr: addr})
	}
	// expansion space writes are ignored
}
