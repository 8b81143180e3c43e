package nes

// Mapper translates CPU-side cartridge reads. Only mapper 0 is
// supported: plain two-bank PRG with 16KB images mirrored into both
// halves of the 32KB window.
type Mapper interface {
	Read8(addr uint16) uint8
}

func NewMapper(cart *Cart) Mapper {
	switch cart.mapperID {
	case 0:
		return &Mapper0{cart}
	}
	return nil
}

type Mapper0 struct {
	cart *Cart
}

func (m Mapper0) Read8(addr uint16) uint8 {
	switch {
	// CHR ROM, PPU-side pattern space
	case addr <= 0x1fff:
		return m.cart.chrMem[addr]
	// PRG ROM
	case addr >= 0x8000:
		if m.cart.prgBanks > 1 {
			return m.cart.prgMem[addr&0x7fff]
		}
		return m.cart.prgMem[addr&0x3fff]
	}
	return 0
}
