package nes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SaveLoadState(t *testing.T) {
	// LDA #$42; STA $10; NOP...
	bus := newTestBus(t, 0xa9, 0x42, 0x85, 0x10, 0xea, 0xea)
	cpu := bus.CPU()

	_, err := cpu.Step()
	require.NoError(t, err)
	_, err = cpu.Step()
	require.NoError(t, err)

	bus.PPU().WriteCtrl(ctrlGenerateNMI)
	writeAddr(bus.PPU(), 0x2305)
	bus.PPU().WriteData(0x66)

	var buf bytes.Buffer
	require.NoError(t, bus.SaveState(&buf))

	saved := cpu.Registers()
	savedCycles := bus.Cycles()

	// keep running, then rewind
	_, err = cpu.Step()
	require.NoError(t, err)
	bus.Write8(0x10, 0xff)
	bus.PPU().WriteCtrl(0)

	require.NoError(t, bus.LoadState(&buf))

	assert.Equal(t, saved, cpu.Registers(), "register file restored")
	assert.Equal(t, savedCycles, bus.Cycles(), "clock restored")
	assert.Equal(t, uint8(0x42), bus.Read8(0x10), "RAM restored")
	assert.True(t, bus.ppu.ctrl.generateNMI(), "PPU control restored")
	assert.Equal(t, uint8(0x66), bus.ppu.vram[bus.ppu.mirrorVRAMAddr(0x2305)], "VRAM restored")
}

func Test_LoadState_BadInput(t *testing.T) {
	bus := newTestBus(t)
	err := bus.LoadState(bytes.NewReader([]byte("not a state")))
	assert.Error(t, err)
}

func Test_SaveState_RoundTripAfterHalt(t *testing.T) {
	bus := newTestBus(t, 0x00) // BRK
	cpu := bus.CPU()

	_, err := cpu.Step()
	require.ErrorIs(t, err, ErrHalted)

	var buf bytes.Buffer
	require.NoError(t, bus.SaveState(&buf))

	bus.Reset()
	require.False(t, cpu.Halted())

	require.NoError(t, bus.LoadState(&buf))
	assert.True(t, cpu.Halted(), "halt state survives the round trip")
}
