package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatMem is a bare 64KB address space with no mirroring and no
// register windows. CPU tests run against it to keep bus behavior out
// of the picture.
type flatMem struct {
	data [0x10000]uint8
}

func (m *flatMem) Read8(addr uint16) uint8 {
	return m.data[addr]
}

func (m *flatMem) Write8(addr uint16, data uint8) {
	m.data[addr] = data
}

const testProgramAddr = uint16(0x0200)

func newTestCPU(program ...uint8) (*CPU, *flatMem) {
	mem := &flatMem{}
	copy(mem.data[testProgramAddr:], program)
	cpu := NewCPU(mem)
	cpu.p = flagU
	cpu.sp = 0xfd
	cpu.SetPC(testProgramAddr)
	return cpu, mem
}

func Test_ADC(t *testing.T) {
	type testArgs struct {
		initA     uint8
		operand   uint8
		initP     uint8
		expectedA uint8
		expectedP uint8
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu, _ := newTestCPU(0x69, in.operand)
		cpu.a = in.initA
		cpu.p = in.initP

		cycles, err := cpu.Step()
		require.NoError(t, err)

		assert.Equal(t, in.expectedA, cpu.a, "A register")
		assert.Equal(t, in.expectedP, cpu.p, "P register")
		assert.Equal(t, 2, cycles, "cycles")
	}

	t.Run("simple addition, no carry", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x01,
			operand:   0x10,
			initP:     flagU,
			expectedA: 0x11,
			expectedP: flagU,
		})
	})

	t.Run("wraps and sets carry", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x02,
			operand:   0xff,
			initP:     flagU,
			expectedA: 0x01,
			expectedP: flagU | flagC,
		})
	})

	t.Run("signed overflow, result is negative", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x01,
			operand:   0x7f,
			initP:     flagU,
			expectedA: 0x80,
			expectedP: flagU | flagV | flagN,
		})
	})

	t.Run("carry in adds one", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x10,
			operand:   0x10,
			initP:     flagU | flagC,
			expectedA: 0x21,
			expectedP: flagU,
		})
	})

	t.Run("zero result sets Z and carry", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0xff,
			operand:   0x01,
			initP:     flagU,
			expectedA: 0x00,
			expectedP: flagU | flagZ | flagC,
		})
	})
}

func Test_SBC(t *testing.T) {
	type testArgs struct {
		initA     uint8
		operand   uint8
		initP     uint8
		expectedA uint8
		expectedP uint8
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu, _ := newTestCPU(0xe9, in.operand)
		cpu.a = in.initA
		cpu.p = in.initP

		_, err := cpu.Step()
		require.NoError(t, err)

		assert.Equal(t, in.expectedA, cpu.a, "A register")
		assert.Equal(t, in.expectedP, cpu.p, "P register")
	}

	t.Run("no borrow when carry set", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x10,
			operand:   0x05,
			initP:     flagU | flagC,
			expectedA: 0x0b,
			expectedP: flagU | flagC,
		})
	})

	t.Run("extra borrow when carry clear", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x10,
			operand:   0x05,
			initP:     flagU,
			expectedA: 0x0a,
			expectedP: flagU | flagC,
		})
	})

	t.Run("borrow clears carry", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x05,
			operand:   0x10,
			initP:     flagU | flagC,
			expectedA: 0xf5,
			expectedP: flagU | flagN,
		})
	})

	t.Run("equal operands give zero", func(t *testing.T) {
		testDo(t, testArgs{
			initA:     0x42,
			operand:   0x42,
			initP:     flagU | flagC,
			expectedA: 0x00,
			expectedP: flagU | flagZ | flagC,
		})
	})
}

func Test_Shifts(t *testing.T) {
	type testArgs struct {
		opcode    uint8
		initA     uint8
		initP     uint8
		expectedA uint8
		expectedP uint8
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu, _ := newTestCPU(in.opcode)
		cpu.a = in.initA
		cpu.p = in.initP

		_, err := cpu.Step()
		require.NoError(t, err)

		assert.Equal(t, in.expectedA, cpu.a, "A register")
		assert.Equal(t, in.expectedP, cpu.p, "P register")
	}

	t.Run("ASL shifts bit 7 into carry", func(t *testing.T) {
		testDo(t, testArgs{
			opcode:    0x0a,
			initA:     0xc0,
			initP:     flagU,
			expectedA: 0x80,
			expectedP: flagU | flagC | flagN,
		})
	})

	t.Run("LSR shifts bit 0 into carry", func(t *testing.T) {
		testDo(t, testArgs{
			opcode:    0x4a,
			initA:     0x01,
			initP:     flagU,
			expectedA: 0x00,
			expectedP: flagU | flagC | flagZ,
		})
	})

	t.Run("ROL rotates carry into bit 0", func(t *testing.T) {
		testDo(t, testArgs{
			opcode:    0x2a,
			initA:     0x80,
			initP:     flagU | flagC,
			expectedA: 0x01,
			expectedP: flagU | flagC,
		})
	})

	t.Run("ROR rotates carry into bit 7", func(t *testing.T) {
		testDo(t, testArgs{
			opcode:    0x6a,
			initA:     0x02,
			initP:     flagU | flagC,
			expectedA: 0x81,
			expectedP: flagU | flagN,
		})
	})

	t.Run("ROR old bit 0 becomes carry", func(t *testing.T) {
		testDo(t, testArgs{
			opcode:    0x6a,
			initA:     0x01,
			initP:     flagU,
			expectedA: 0x00,
			expectedP: flagU | flagC | flagZ,
		})
	})
}

func Test_Compare(t *testing.T) {
	type testArgs struct {
		initA     uint8
		operand   uint8
		expectedP uint8
	}

	testDo := func(t *testing.T, in testArgs) {
		cpu, _ := newTestCPU(0xc9, in.operand)
		cpu.a = in.initA

		_, err := cpu.Step()
		require.NoError(t, err)

		assert.Equal(t, in.expectedP, cpu.p, "P register")
		assert.Equal(t, in.initA, cpu.a, "A register is untouched")
	}

	t.Run("equal sets zero and carry", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x10, operand: 0x10, expectedP: flagU | flagZ | flagC})
	})

	t.Run("greater sets carry", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x20, operand: 0x10, expectedP: flagU | flagC})
	})

	t.Run("less sets negative", func(t *testing.T) {
		testDo(t, testArgs{initA: 0x10, operand: 0x20, expectedP: flagU | flagN})
	})
}

func Test_BranchCycles(t *testing.T) {
	t.Run("not taken costs base cycles", func(t *testing.T) {
		cpu, _ := newTestCPU(0xf0, 0x10) // BEQ with Z clear
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 2, cycles)
		assert.Equal(t, testProgramAddr+2, cpu.pc)
	})

	t.Run("taken costs one extra", func(t *testing.T) {
		cpu, _ := newTestCPU(0xf0, 0x10)
		cpu.setFlag(flagZ, true)
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 3, cycles)
		assert.Equal(t, testProgramAddr+2+0x10, cpu.pc)
	})

	t.Run("taken across a page costs two extra", func(t *testing.T) {
		cpu, mem := newTestCPU()
		mem.data[0x02f0] = 0xf0 // BEQ +0x20
		mem.data[0x02f1] = 0x20
		cpu.SetPC(0x02f0)
		cpu.setFlag(flagZ, true)

		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 4, cycles)
		assert.Equal(t, uint16(0x0312), cpu.pc)
	})

	t.Run("backward branch", func(t *testing.T) {
		cpu, _ := newTestCPU(0xd0, 0xfe) // BNE -2, branches onto itself
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 3, cycles)
		assert.Equal(t, testProgramAddr, cpu.pc)
	})
}

func Test_PageCrossCycle(t *testing.T) {
	t.Run("LDA absolute,X without crossing", func(t *testing.T) {
		cpu, _ := newTestCPU(0xbd, 0x00, 0x03) // LDA $0300,X
		cpu.x = 0x10
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 4, cycles)
	})

	t.Run("LDA absolute,X with crossing", func(t *testing.T) {
		cpu, _ := newTestCPU(0xbd, 0xff, 0x02) // LDA $02FF,X
		cpu.x = 0x01
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 5, cycles)
	})

	t.Run("STA absolute,X always pays the fixed cost", func(t *testing.T) {
		cpu, mem := newTestCPU(0x9d, 0xff, 0x02) // STA $02FF,X
		cpu.a = 0x42
		cpu.x = 0x01
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 5, cycles)
		assert.Equal(t, uint8(0x42), mem.data[0x0300])
	})
}

func Test_ZeroPageWrap(t *testing.T) {
	t.Run("zero page,X stays in page zero", func(t *testing.T) {
		cpu, mem := newTestCPU(0xb5, 0xff) // LDA $FF,X
		cpu.x = 0x01
		mem.data[0x0000] = 0x42

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x42), cpu.a)
	})

	t.Run("indirect,X pointer wraps in page zero", func(t *testing.T) {
		cpu, mem := newTestCPU(0xa1, 0xff) // LDA ($FF,X)
		mem.data[0x00ff] = 0x34
		mem.data[0x0000] = 0x12
		mem.data[0x1234] = 0x42

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x42), cpu.a)
	})

	t.Run("indirect,Y pointer high byte wraps", func(t *testing.T) {
		cpu, mem := newTestCPU(0xb1, 0xff) // LDA ($FF),Y
		mem.data[0x00ff] = 0x00
		mem.data[0x0000] = 0x40
		mem.data[0x4005] = 0x42
		cpu.y = 0x05

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x42), cpu.a)
	})
}

func Test_JMP_IndirectPageWrapBug(t *testing.T) {
	cpu, mem := newTestCPU(0x6c, 0xff, 0x30) // JMP ($30FF)
	mem.data[0x30ff] = 0x80
	mem.data[0x3000] = 0x40
	mem.data[0x3100] = 0xee // must never be read

	_, err := cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x4080), cpu.pc)
}

func Test_StackRoundTrip(t *testing.T) {
	t.Run("every byte value survives push and pop", func(t *testing.T) {
		cpu, _ := newTestCPU()
		for v := 0; v < 0x100; v++ {
			cpu.stackPush8(uint8(v))
			assert.Equal(t, uint8(v), cpu.stackPop8())
		}
	})

	t.Run("stack pointer wraps silently", func(t *testing.T) {
		cpu, _ := newTestCPU()
		cpu.sp = 0x00
		cpu.stackPush8(0x42)
		assert.Equal(t, uint8(0xff), cpu.sp)
		assert.Equal(t, uint8(0x42), cpu.stackPop8())
		assert.Equal(t, uint8(0x00), cpu.sp)
	})

	t.Run("PHA and PLA", func(t *testing.T) {
		cpu, _ := newTestCPU(0x48, 0xa9, 0x00, 0x68) // PHA; LDA #0; PLA
		cpu.a = 0x42
		for i := 0; i < 3; i++ {
			_, err := cpu.Step()
			require.NoError(t, err)
		}
		assert.Equal(t, uint8(0x42), cpu.a)
	})
}

func Test_FlagBitsOnStack(t *testing.T) {
	t.Run("PHP pushes with B and U set", func(t *testing.T) {
		cpu, mem := newTestCPU(0x08) // PHP
		cpu.p = flagU | flagC

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, flagU|flagB|flagC, mem.data[stackStartAddr|0xfd])
	})

	t.Run("PLP clears B and forces U", func(t *testing.T) {
		cpu, _ := newTestCPU(0x28) // PLP
		cpu.stackPush8(flagB | flagC | flagN)

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, flagU|flagC|flagN, cpu.p)
	})

	t.Run("RTI restores flags the same way", func(t *testing.T) {
		cpu, _ := newTestCPU(0x40) // RTI
		cpu.stackPush16(0x1234)
		cpu.stackPush8(flagB | flagZ)

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, flagU|flagZ, cpu.p)
		assert.Equal(t, uint16(0x1234), cpu.pc)
	})
}

func Test_JSR_RTS(t *testing.T) {
	// JSR $0280; ... $0280: RTS
	cpu, mem := newTestCPU(0x20, 0x80, 0x02)
	mem.data[0x0280] = 0x60

	cycles, err := cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, 6, cycles)
	assert.Equal(t, uint16(0x0280), cpu.pc)

	cycles, err = cpu.Step()
	require.NoError(t, err)
	assert.Equal(t, 6, cycles)
	assert.Equal(t, testProgramAddr+3, cpu.pc, "RTS returns past the JSR")
}

func Test_BRK(t *testing.T) {
	cpu, mem := newTestCPU(0x00, 0xff) // BRK with padding byte
	mem.data[irqVectorAddr] = 0x00
	mem.data[irqVectorAddr+1] = 0x80
	cpu.p = flagU | flagC

	cycles, err := cpu.Step()
	assert.ErrorIs(t, err, ErrHalted)
	assert.Equal(t, 7, cycles)
	assert.Equal(t, uint16(0x8000), cpu.pc, "vectors through 0xFFFE")
	assert.True(t, cpu.Halted())

	assert.Equal(t, flagU|flagB|flagC, mem.data[stackStartAddr|0xfb], "pushed flags carry B")
	pushedPC := uint16(mem.data[stackStartAddr|0xfc]) | uint16(mem.data[stackStartAddr|0xfd])<<8
	assert.Equal(t, testProgramAddr+2, pushedPC, "pushed return address skips the padding byte")

	_, err = cpu.Step()
	assert.ErrorIs(t, err, ErrHalted, "stays halted")
}

func Test_Run(t *testing.T) {
	t.Run("stops cleanly on BRK", func(t *testing.T) {
		// LDA #$42; TAX; INX; BRK
		cpu, _ := newTestCPU(0xa9, 0x42, 0xaa, 0xe8, 0x00)
		require.NoError(t, cpu.Run())
		assert.Equal(t, uint8(0x42), cpu.a)
		assert.Equal(t, uint8(0x43), cpu.x)
	})

	t.Run("stops cleanly on a jam opcode", func(t *testing.T) {
		cpu, _ := newTestCPU(0xa9, 0x42, 0x02) // LDA #$42; HLT
		require.NoError(t, cpu.Run())
		assert.Equal(t, uint8(0x42), cpu.a)
		assert.True(t, cpu.Halted())
	})
}

func Test_NMI(t *testing.T) {
	cpu, mem := newTestCPU()
	mem.data[nmiVectorAddr] = 0x00
	mem.data[nmiVectorAddr+1] = 0x90
	cpu.p = flagU | flagC
	before := cpu.TotalCycles()

	cpu.NMI()

	assert.Equal(t, uint16(0x9000), cpu.pc, "vectors through 0xFFFA")
	assert.Equal(t, before+7, cpu.TotalCycles(), "costs seven cycles")
	assert.Equal(t, flagU|flagC, mem.data[stackStartAddr|0xfb]&^flagB, "B stays clear on the stack")
	assert.True(t, cpu.getFlag(flagI))
}

func Test_IRQ(t *testing.T) {
	t.Run("masked while I is set", func(t *testing.T) {
		cpu, _ := newTestCPU()
		cpu.p = flagU | flagI
		pc := cpu.pc
		cpu.IRQ()
		assert.Equal(t, pc, cpu.pc)
	})

	t.Run("serviced when I is clear", func(t *testing.T) {
		cpu, mem := newTestCPU()
		mem.data[irqVectorAddr] = 0x00
		mem.data[irqVectorAddr+1] = 0xa0
		cpu.p = flagU
		cpu.IRQ()
		assert.Equal(t, uint16(0xa000), cpu.pc)
	})
}

func Test_Reset(t *testing.T) {
	cpu, mem := newTestCPU()
	mem.data[resetVectorAddr] = 0x34
	mem.data[resetVectorAddr+1] = 0x12
	cpu.a = 0xff
	cpu.halted = true

	cpu.Reset()

	assert.Equal(t, uint16(0x1234), cpu.pc)
	assert.Equal(t, uint8(0xfd), cpu.sp)
	assert.Equal(t, flagU|flagI, cpu.p)
	assert.Equal(t, uint64(7), cpu.TotalCycles())
	assert.False(t, cpu.Halted())
}

func Test_DispatchTableComplete(t *testing.T) {
	cpu, _ := newTestCPU()
	for opcode := 0; opcode < 0x100; opcode++ {
		in := cpu.instrs[opcode]
		assert.NotNilf(t, in.fn, "opcode %02X has no handler", opcode)
		assert.NotEmptyf(t, in.name, "opcode %02X has no name", opcode)
	}
}

func Test_IllegalOpcodes(t *testing.T) {
	t.Run("LAX loads A and X together", func(t *testing.T) {
		cpu, mem := newTestCPU(0xa7, 0x10) // LAX $10
		mem.data[0x10] = 0x8a

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x8a), cpu.a)
		assert.Equal(t, uint8(0x8a), cpu.x)
		assert.True(t, cpu.getFlag(flagN))
	})

	t.Run("SAX stores A AND X", func(t *testing.T) {
		cpu, mem := newTestCPU(0x87, 0x10) // SAX $10
		cpu.a = 0xf0
		cpu.x = 0x3c

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x30), mem.data[0x10])
	})

	t.Run("DCP decrements then compares", func(t *testing.T) {
		cpu, mem := newTestCPU(0xc7, 0x10) // DCP $10
		mem.data[0x10] = 0x43
		cpu.a = 0x42

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x42), mem.data[0x10])
		assert.Equal(t, flagU|flagZ|flagC, cpu.p)
	})

	t.Run("ISC increments then subtracts", func(t *testing.T) {
		cpu, mem := newTestCPU(0xe7, 0x10) // ISC $10
		mem.data[0x10] = 0x04
		cpu.a = 0x10
		cpu.setFlag(flagC, true)

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x05), mem.data[0x10])
		assert.Equal(t, uint8(0x0b), cpu.a)
	})

	t.Run("SLO shifts memory and ORs into A", func(t *testing.T) {
		cpu, mem := newTestCPU(0x07, 0x10) // SLO $10
		mem.data[0x10] = 0x81
		cpu.a = 0x01

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x02), mem.data[0x10])
		assert.Equal(t, uint8(0x03), cpu.a)
		assert.True(t, cpu.getFlag(flagC))
	})

	t.Run("ANC copies N into carry", func(t *testing.T) {
		cpu, _ := newTestCPU(0x0b, 0x80) // ANC #$80
		cpu.a = 0xff

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x80), cpu.a)
		assert.Equal(t, flagU|flagC|flagN, cpu.p)
	})

	t.Run("ALR ands then shifts right", func(t *testing.T) {
		cpu, _ := newTestCPU(0x4b, 0xff) // ALR #$FF
		cpu.a = 0x03

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x01), cpu.a)
		assert.True(t, cpu.getFlag(flagC))
	})

	t.Run("ARR sets carry from bit 6", func(t *testing.T) {
		cpu, _ := newTestCPU(0x6b, 0xff) // ARR #$FF
		cpu.a = 0xff
		cpu.setFlag(flagC, true)

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0xff), cpu.a)
		assert.True(t, cpu.getFlag(flagC))
		assert.False(t, cpu.getFlag(flagV))
	})

	t.Run("AXS subtracts without borrow", func(t *testing.T) {
		cpu, _ := newTestCPU(0xcb, 0x02) // AXS #$02
		cpu.a = 0x0f
		cpu.x = 0x07

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x05), cpu.x)
		assert.True(t, cpu.getFlag(flagC))
	})

	t.Run("SHX stores X AND high byte plus one", func(t *testing.T) {
		cpu, mem := newTestCPU(0x9e, 0x00, 0x03) // SHX $0300,Y
		cpu.x = 0xff
		cpu.y = 0x10

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x04), mem.data[0x0310])
	})

	t.Run("LAS ands memory with SP into A, X and SP", func(t *testing.T) {
		cpu, mem := newTestCPU(0xbb, 0x00, 0x03) // LAS $0300,Y
		mem.data[0x0300] = 0x0f
		cpu.sp = 0x35

		_, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x05), cpu.a)
		assert.Equal(t, uint8(0x05), cpu.x)
		assert.Equal(t, uint8(0x05), cpu.sp)
	})
}

func Test_MultiByteNOPs(t *testing.T) {
	t.Run("NOP absolute skips its operand", func(t *testing.T) {
		cpu, _ := newTestCPU(0x0c, 0x34, 0x12) // NOP $1234
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 4, cycles)
		assert.Equal(t, testProgramAddr+3, cpu.pc)
	})

	t.Run("NOP absolute,X pays the page-cross surcharge", func(t *testing.T) {
		cpu, _ := newTestCPU(0x1c, 0xff, 0x02) // NOP $02FF,X
		cpu.x = 0x01
		cycles, err := cpu.Step()
		require.NoError(t, err)
		assert.Equal(t, 5, cycles)
	})
}

func Test_BIT(t *testing.T) {
	cpu, mem := newTestCPU(0x24, 0x10) // BIT $10
	mem.data[0x10] = 0xc0
	cpu.a = 0x01

	_, err := cpu.Step()
	require.NoError(t, err)
	assert.True(t, cpu.getFlag(flagZ), "no bits in common")
	assert.True(t, cpu.getFlag(flagN), "N copied from bit 7")
	assert.True(t, cpu.getFlag(flagV), "V copied from bit 6")
}
