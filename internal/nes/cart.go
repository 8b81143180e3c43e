package nes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	inesMagic        = 0x1a53454e
	prgBankSizeBytes = 0x4000
	chrBankSizeBytes = 0x2000
)

// Mirroring selects how the four logical nametables fold onto the two
// physical VRAM banks.
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
	// MirrorFourScreen needs extra cartridge RAM and is declared only.
	MirrorFourScreen
)

func (m Mirroring) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorFourScreen:
		return "four-screen"
	}
	return "???"
}

// Cart holds the immutable cartridge images for one emulation session.
type Cart struct {
	prgMem []uint8
	chrMem []uint8

	prgBanks uint8
	chrBanks uint8
	mapperID uint8
	mirror   Mirroring

	mapper Mapper
}

// NewCartFromFile reads a .nes file in iNES format.
func NewCartFromFile(path string) (*Cart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the file: %s", err)
	}
	return NewCartFromBytes(data)
}

// NewCartFromBytes parses a raw iNES image.
func NewCartFromBytes(data []uint8) (*Cart, error) {
	r := bytes.NewReader(data)

	var header struct {
		Magic      uint32
		PrgRomSize uint8
		ChrRomSize uint8
		Flags6     uint8
		Flags7     uint8
		Flags8     uint8
		Flags9     uint8
		Flags10    uint8
		_          [5]uint8 // unused
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("couldn't read the header: %s", err)
	}
	if header.Magic != inesMagic {
		return nil, fmt.Errorf("invalid header")
	}
	// bit 2 of flags6 marks a 512-byte trainer before PRG data
	if header.Flags6&0x4 != 0 {
		if _, err := r.Seek(512, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("couldn't skip the trainer: %s", err)
		}
	}

	// flags6 holds the low nibble of the mapper ID, flags7 the high one
	mapperID := (header.Flags7 & 0xf0) | (header.Flags6 >> 4)

	mirror := MirrorHorizontal
	if header.Flags6&0x1 != 0 {
		mirror = MirrorVertical
	}
	if header.Flags6&0x8 != 0 {
		mirror = MirrorFourScreen
	}

	cart := &Cart{
		prgMem:   make([]uint8, int(header.PrgRomSize)*prgBankSizeBytes),
		chrMem:   make([]uint8, int(header.ChrRomSize)*chrBankSizeBytes),
		prgBanks: header.PrgRomSize,
		chrBanks: header.ChrRomSize,
		mapperID: mapperID,
		mirror:   mirror,
	}
	cart.mapper = NewMapper(cart)
	if cart.mapper == nil {
		return nil, fmt.Errorf("unsupported mapper %d", mapperID)
	}

	if n, err := r.Read(cart.prgMem); n != len(cart.prgMem) || (err != nil && err != io.EOF) {
		if err == nil || err == io.EOF {
			err = fmt.Errorf("expected %d bytes, read %d bytes", len(cart.prgMem), n)
		}
		return nil, fmt.Errorf("couldn't read PRG ROM: %s", err)
	}
	if len(cart.chrMem) > 0 {
		if n, err := r.Read(cart.chrMem); n != len(cart.chrMem) || (err != nil && err != io.EOF) {
			if err == nil || err == io.EOF {
				err = fmt.Errorf("expected %d bytes, read %d bytes", len(cart.chrMem), n)
			}
			return nil, fmt.Errorf("couldn't read CHR ROM: %s", err)
		}
	}

	return cart, nil
}

func (c Cart) Mirroring() Mirroring {
	return c.mirror
}

func (c Cart) MapperID() uint8 {
	return c.mapperID
}

// CHR exposes the pattern memory to the PPU. The slice is read-only by
// contract.
func (c Cart) CHR() []uint8 {
	return c.chrMem
}

func (c Cart) Read8(addr uint16) uint8 {
	return c.mapper.Read8(addr)
}
