package nes

import (
	"errors"
	"fmt"
)

// ErrHalted reports that the CPU executed BRK or a jam opcode. It is the
// normal stop signal, not a fault.
var ErrHalted = errors.New("cpu halted")

// UnknownOpcodeError is returned when a fetched byte has no entry in the
// dispatch table. With full table coverage it indicates corrupted memory
// or an engine bug.
type UnknownOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %02X at %04X", e.Opcode, e.PC)
}

// InvalidAddrModeError reports an address resolution request for a mode
// that carries no address. It is an engine bug, never caused by input.
type InvalidAddrModeError struct {
	Mode uint8
	PC   uint16
}

func (e *InvalidAddrModeError) Error() string {
	return fmt.Sprintf("invalid addressing mode %d at %04X", e.Mode, e.PC)
}

// ROMWriteError reports a store into PRG ROM space. Cartridge memory is
// read-only by hardware contract.
type ROMWriteError struct {
	Addr uint16
}

func (e *ROMWriteError) Error() string {
	return fmt.Sprintf("write to rom space at %04X", e.Addr)
}
