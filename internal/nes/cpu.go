package nes

const (
	stackStartAddr = uint16(0x100)

	resetVectorAddr = uint16(0xfffc)
	nmiVectorAddr   = uint16(0xfffa)
	irqVectorAddr   = uint16(0xfffe)
)

const (
	flagC = uint8(1 << iota) // Carry
	flagZ                    // Zero
	flagI                    // Interrupt Disable
	flagD                    // Decimal Mode
	flagB                    // Break Command
	flagU                    // Unused, 1 when pushed
	flagV                    // Overflow
	flagN                    // Negative
)

type addrMode uint8

const (
	addrModeIMM  addrMode = iota + 1 // Immediate
	addrModeZP                       // Zero Page
	addrModeZPX                      // Zero Page X
	addrModeZPY                      // Zero Page Y
	addrModeABS                      // Absolute
	addrModeABSX                     // Absolute X
	addrModeABSY                     // Absolute Y
	addrModeIND                      // Indirect, JMP only
	addrModeINDX                     // Indirect X
	addrModeINDY                     // Indirect Y
	addrModeREL                      // Relative
	addrModeACC                      // Accumulator
	addrModeIMP                      // Implied
)

func (mode addrMode) String() string {
	switch mode {
	case addrModeIMM:
		return "IMM"
	case addrModeZP:
		return "ZP"
	case addrModeZPX:
		return "ZPX"
	case addrModeZPY:
		return "ZPY"
	case addrModeABS:
		return "ABS"
	case addrModeABSX:
		return "ABSX"
	case addrModeABSY:
		return "ABSY"
	case addrModeIND:
		return "IND"
	case addrModeINDX:
		return "INDX"
	case addrModeINDY:
		return "INDY"
	case addrModeREL:
		return "REL"
	case addrModeACC:
		return "ACC"
	case addrModeIMP:
		return "IMP"
	}
	return "???"
}

type instr struct {
	name   string
	mode   addrMode
	fn     func()
	cycles uint8
}

type CPU struct {
	a  uint8
	x  uint8
	y  uint8
	p  uint8
	sp uint8
	pc uint16

	mem ReadWriter
	// bus is set when the CPU is owned by a Bus. It stays nil in unit
	// tests that drive the CPU against a bare memory.
	bus *Bus

	instrs      [0x100]instr
	cycles      uint8
	totalCycles uint64
	addrMode    addrMode
	operandAddr uint16
	pageCrossed bool
	halted      bool
}

func isSameSign(a, b uint8) bool {
	return (a^b)&0x80 == 0
}

func isDiffPage(a, b uint16) bool {
	return a&0xff00 != b&0xff00
}

func NewCPU(mem ReadWriter) *CPU {
	c := &CPU{
		mem: mem,
	}
	c.initInstructions()
	return c
}

func (c CPU) read8(addr uint16) uint8 {
	return c.mem.Read8(addr)
}

func (c CPU) read16(addr uint16) uint16 {
	return uint16(c.read8(addr)) | uint16(c.read8(addr+1))<<8
}

func (c *CPU) write8(addr uint16, data uint8) {
	c.mem.Write8(addr, data)
}

func (c CPU) getFlag(flag uint8) bool {
	return c.p&flag > 0
}

func (c *CPU) setFlag(flag uint8, v bool) {
	if v {
		c.p |= flag
		return
	}
	c.p &= ^flag
}

func (c *CPU) setFlagsZN(value uint8) {
	c.setFlag(flagZ, value == 0)
	c.setFlag(flagN, value&0x80 > 0)
}

func (c *CPU) stackPop8() uint8 {
	c.sp++
	return c.read8(stackStartAddr | uint16(c.sp))
}

func (c *CPU) stackPop16() uint16 {
	lo := uint16(c.stackPop8())
	hi := uint16(c.stackPop8())
	return lo | hi<<8
}

func (c *CPU) stackPush8(data uint8) {
	c.write8(stackStartAddr|uint16(c.sp), data)
	c.sp--
}

func (c *CPU) stackPush16(data uint16) {
	lo := uint8(data & 0xff)
	hi := uint8(data >> 8)
	c.stackPush8(hi)
	c.stackPush8(lo)
}

// Reset puts the CPU into its power-on state and reloads the program
// counter from the reset vector. Memory contents are left untouched.
func (c *CPU) Reset() {
	c.a = 0
	c.x = 0
	c.y = 0
	c.p = 0x00 | flagU | flagI
	c.sp = 0xfd
	c.pc = c.read16(resetVectorAddr)
	c.totalCycles = 7
	c.halted = false
	if c.bus != nil {
		c.bus.Tick(7)
	}
}

// IRQ services a maskable interrupt request unless interrupts are disabled.
func (c *CPU) IRQ() {
	if c.getFlag(flagI) {
		return
	}
	c.interrupt(irqVectorAddr)
}

// NMI services a non-maskable interrupt request.
func (c *CPU) NMI() {
	c.interrupt(nmiVectorAddr)
}

func (c *CPU) interrupt(vector uint16) {
	c.stackPush16(c.pc)
	c.stackPush8(c.p&^flagB | flagU)
	c.setFlag(flagI, true)
	c.pc = c.read16(vector)
	c.totalCycles += 7
	if c.bus != nil {
		c.bus.Tick(7)
	}
}

// Registers is a snapshot of the register file for host and test code.
type Registers struct {
	A  uint8
	X  uint8
	Y  uint8
	P  uint8
	SP uint8
	PC uint16
}

func (c CPU) Registers() Registers {
	return Registers{A: c.a, X: c.x, Y: c.y, P: c.p, SP: c.sp, PC: c.pc}
}

func (c CPU) TotalCycles() uint64 {
	return c.totalCycles
}

func (c CPU) Halted() bool {
	return c.halted
}

// SetPC overrides the program counter. Test harnesses use it to enter a
// program somewhere other than the reset vector.
func (c *CPU) SetPC(pc uint16) {
	c.pc = pc
}

// Step executes exactly one instruction and reports the consumed cycles
// to the bus. A pending NMI is serviced before the fetch, never inside an
// instruction. The returned error is nil for normal instructions,
// ErrHalted after BRK or a jam opcode, and a fatal fault otherwise.
func (c *CPU) Step() (int, error) {
	if c.halted {
		return 0, ErrHalted
	}

	if c.bus != nil && c.bus.PollNMI() {
		c.NMI()
	}

	opcode := c.read8(c.pc)
	c.pc++
	instr := c.instrs[opcode]
	if instr.fn == nil {
		c.halted = true
		return 0, &UnknownOpcodeError{Opcode: opcode, PC: c.pc - 1}
	}

	c.cycles = instr.cycles
	if err := c.fetch(instr.mode); err != nil {
		c.halted = true
		return 0, err
	}
	instr.fn()

	cycles := int(c.cycles)
	c.totalCycles += uint64(cycles)

	if c.bus != nil {
		c.bus.Tick(cycles)
		if stall := c.bus.takeDMAStall(); stall > 0 {
			c.totalCycles += uint64(stall)
			c.bus.Tick(stall)
			cycles += stall
		}
		if err := c.bus.takeFault(); err != nil {
			c.halted = true
			return cycles, err
		}
	}

	c.addrMode = 0
	c.operandAddr = 0
	c.pageCrossed = false

	if c.halted {
		return cycles, ErrHalted
	}
	return cycles, nil
}

// Run executes instructions until the CPU halts or a fault occurs.
// A BRK/jam halt is a normal termination and returns nil.
func (c *CPU) Run() error {
	for {
		if _, err := c.Step(); err != nil {
			if err == ErrHalted {
				return nil
			}
			return err
		}
	}
}

// fetch resolves the effective address for the current instruction and
// records whether the computation crossed a page boundary. The operand
// value itself is read lazily by the instruction, so store instructions
// never touch read-sensitive bus addresses.
func (c *CPU) fetch(addrMode addrMode) error {
	c.addrMode = addrMode
	c.pageCrossed = false
	c.operandAddr = 0

	switch addrMode {
	case addrModeIMM:
		c.operandAddr = c.pc
		c.pc++

	case addrModeZP:
		c.operandAddr = uint16(c.read8(c.pc))
		c.pc++

	case addrModeZPX:
		c.operandAddr = uint16(c.read8(c.pc) + c.x)
		c.pc++

	case addrModeZPY:
		c.operandAddr = uint16(c.read8(c.pc) + c.y)
		c.pc++

	case addrModeABS:
		c.operandAddr = c.read16(c.pc)
		c.pc += 2

	case addrModeABSX:
		baseAddr := c.read16(c.pc)
		c.pc += 2
		c.operandAddr = baseAddr + uint16(c.x)
		c.pageCrossed = isDiffPage(baseAddr, c.operandAddr)

	case addrModeABSY:
		baseAddr := c.read16(c.pc)
		c.pc += 2
		c.operandAddr = baseAddr + uint16(c.y)
		c.pageCrossed = isDiffPage(baseAddr, c.operandAddr)

	case addrModeIND:
		addr := c.read16(c.pc)
		c.pc += 2

		lo := addr
		hi := addr + 1
		if lo&0xff == 0xff { // 6502 bug: the pointer never leaves its page
			hi = lo & 0xff00
		}
		c.operandAddr = uint16(c.read8(lo)) | uint16(c.read8(hi))<<8

	case addrModeINDX:
		addr := uint16(c.read8(c.pc) + c.x)
		c.pc++
		lo := uint16(c.read8(addr & 0x00ff))
		hi := uint16(c.read8((addr + 1) & 0x00ff))
		c.operandAddr = lo | hi<<8

	case addrModeINDY:
		addr := uint16(c.read8(c.pc))
		c.pc++
		lo := uint16(c.read8(addr))
		hi := uint16(c.read8((addr + 1) & 0x00ff))
		addr = lo | hi<<8
		c.operandAddr = addr + uint16(c.y)
		c.pageCrossed = isDiffPage(addr, c.operandAddr)

	case addrModeREL:
		c.operandAddr = uint16(c.read8(c.pc))
		c.pc++
		if c.operandAddr&0x80 > 0 {
			c.operandAddr |= 0xff00 // sign extend
		}

	case addrModeACC:

	case addrModeIMP:

	default:
		return &InvalidAddrModeError{Mode: uint8(addrMode), PC: c.pc}
	}
	return nil
}

// operand reads the value the current instruction operates on.
func (c *CPU) operand() uint8 {
	if c.addrMode == addrModeACC {
		return c.a
	}
	return c.read8(c.operandAddr)
}

// addToA implements the shared ADC data path. SBC and RRA reuse it with a
// complemented operand, which preserves the carry/overflow semantics.
func (c *CPU) addToA(value uint8) {
	r16 := uint16(c.a) + uint16(value)
	if c.getFlag(flagC) {
		r16++
	}
	r8 := uint8(r16)
	c.setFlag(flagC, r16 > 0xff)
	c.setFlagsZN(r8)
	c.setFlag(flagV, isSameSign(c.a, value) && !isSameSign(c.a, r8))
	c.a = r8
}

func (c *CPU) adc() {
	c.addToA(c.operand())
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) and() {
	c.a &= c.operand()
	c.setFlagsZN(c.a)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) asl() {
	v := c.operand()
	c.setFlag(flagC, v&0x80 > 0)
	r := v << 1
	c.setFlagsZN(r)
	if c.addrMode == addrModeACC {
		c.a = r
	} else {
		c.write8(c.operandAddr, r)
	}
}

func (c *CPU) jmpIf(condition bool) {
	if !condition {
		return
	}
	c.cycles++
	addr := c.pc + c.operandAddr
	if isDiffPage(c.pc, addr) {
		c.cycles++
	}
	c.pc = addr
}

func (c *CPU) bcc() {
	c.jmpIf(!c.getFlag(flagC))
}

func (c *CPU) bcs() {
	c.jmpIf(c.getFlag(flagC))
}

func (c *CPU) beq() {
	c.jmpIf(c.getFlag(flagZ))
}

func (c *CPU) bit() {
	v := c.operand()
	c.setFlag(flagZ, c.a&v == 0)
	c.setFlag(flagN, v&flagN > 0)
	c.setFlag(flagV, v&flagV > 0)
}

func (c *CPU) bmi() {
	c.jmpIf(c.getFlag(flagN))
}

func (c *CPU) bne() {
	c.jmpIf(!c.getFlag(flagZ))
}

func (c *CPU) bpl() {
	c.jmpIf(!c.getFlag(flagN))
}

// brk pushes state and vectors like a software interrupt, then halts the
// engine. The host treats it as the program's stop signal.
func (c *CPU) brk() {
	c.pc++
	c.stackPush16(c.pc)
	c.stackPush8(c.p | flagB | flagU)
	c.setFlag(flagI, true)
	c.pc = c.read16(irqVectorAddr)
	c.halted = true
}

func (c *CPU) bvc() {
	c.jmpIf(!c.getFlag(flagV))
}

func (c *CPU) bvs() {
	c.jmpIf(c.getFlag(flagV))
}

func (c *CPU) clc() {
	c.setFlag(flagC, false)
}

func (c *CPU) cld() {
	c.setFlag(flagD, false)
}

func (c *CPU) cli() {
	c.setFlag(flagI, false)
}

func (c *CPU) clv() {
	c.setFlag(flagV, false)
}

// compare implements CMP/CPX/CPY: carry when reg >= operand, Z/N from the
// wrapping difference, overflow untouched.
func (c *CPU) compare(reg uint8) {
	v := c.operand()
	c.setFlag(flagC, reg >= v)
	c.setFlagsZN(reg - v)
}

func (c *CPU) cmp() {
	c.compare(c.a)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) cpx() {
	c.compare(c.x)
}

func (c *CPU) cpy() {
	c.compare(c.y)
}

func (c *CPU) dec() {
	r := c.operand() - 1
	c.setFlagsZN(r)
	c.write8(c.operandAddr, r)
}

func (c *CPU) dex() {
	c.x--
	c.setFlagsZN(c.x)
}

func (c *CPU) dey() {
	c.y--
	c.setFlagsZN(c.y)
}

func (c *CPU) eor() {
	c.a ^= c.operand()
	c.setFlagsZN(c.a)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) inc() {
	r := c.operand() + 1
	c.setFlagsZN(r)
	c.write8(c.operandAddr, r)
}

func (c *CPU) inx() {
	c.x++
	c.setFlagsZN(c.x)
}

func (c *CPU) iny() {
	c.y++
	c.setFlagsZN(c.y)
}

func (c *CPU) jmp() {
	c.pc = c.operandAddr
}

func (c *CPU) jsr() {
	// the stacked address is the last byte of this instruction,
	// RTS compensates with its own increment
	c.pc--
	c.stackPush16(c.pc)
	c.pc = c.operandAddr
}

func (c *CPU) lda() {
	c.a = c.operand()
	c.setFlagsZN(c.a)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) ldx() {
	c.x = c.operand()
	c.setFlagsZN(c.x)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) ldy() {
	c.y = c.operand()
	c.setFlagsZN(c.y)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) lsr() {
	v := c.operand()
	c.setFlag(flagC, v&0x1 > 0)
	r := v >> 1
	c.setFlagsZN(r)
	if c.addrMode == addrModeACC {
		c.a = r
	} else {
		c.write8(c.operandAddr, r)
	}
}

func (c *CPU) nop() {
	// the multi-byte illegal NOPs still pay the page-cross surcharge
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) ora() {
	c.a |= c.operand()
	c.setFlagsZN(c.a)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) pha() {
	c.stackPush8(c.a)
}

func (c *CPU) php() {
	c.stackPush8(c.p | flagB | flagU)
}

func (c *CPU) pla() {
	c.a = c.stackPop8()
	c.setFlagsZN(c.a)
}

func (c *CPU) plp() {
	c.p = (c.stackPop8() | flagU) & ^flagB
}

func (c *CPU) rol() {
	v := c.operand()
	r := v << 1
	if c.getFlag(flagC) {
		r |= 0x1
	}
	c.setFlag(flagC, v&0x80 > 0)
	c.setFlagsZN(r)
	if c.addrMode == addrModeACC {
		c.a = r
	} else {
		c.write8(c.operandAddr, r)
	}
}

func (c *CPU) ror() {
	// carry enters at bit 7, the old bit 0 becomes the new carry
	v := c.operand()
	r := v >> 1
	if c.getFlag(flagC) {
		r |= 0x80
	}
	c.setFlag(flagC, v&0x1 > 0)
	c.setFlagsZN(r)
	if c.addrMode == addrModeACC {
		c.a = r
	} else {
		c.write8(c.operandAddr, r)
	}
}

func (c *CPU) rti() {
	c.p = (c.stackPop8() | flagU) & ^flagB
	c.pc = c.stackPop16()
}

func (c *CPU) rts() {
	c.pc = c.stackPop16()
	c.pc++
}

func (c *CPU) sbc() {
	c.addToA(^c.operand())
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) sec() {
	c.setFlag(flagC, true)
}

func (c *CPU) sed() {
	c.setFlag(flagD, true)
}

func (c *CPU) sei() {
	c.setFlag(flagI, true)
}

func (c *CPU) sta() {
	c.write8(c.operandAddr, c.a)
}

func (c *CPU) stx() {
	c.write8(c.operandAddr, c.x)
}

func (c *CPU) sty() {
	c.write8(c.operandAddr, c.y)
}

func (c *CPU) tax() {
	c.x = c.a
	c.setFlagsZN(c.x)
}

func (c *CPU) tay() {
	c.y = c.a
	c.setFlagsZN(c.y)
}

func (c *CPU) tsx() {
	c.x = c.sp
	c.setFlagsZN(c.x)
}

func (c *CPU) txa() {
	c.a = c.x
	c.setFlagsZN(c.a)
}

func (c *CPU) txs() {
	c.sp = c.x
}

func (c *CPU) tya() {
	c.a = c.y
	c.setFlagsZN(c.a)
}

// Illegal opcodes. Each is a composition of documented primitives and
// keeps their flag semantics.

func (c *CPU) lax() {
	v := c.operand()
	c.a = v
	c.x = v
	c.setFlagsZN(v)
	if c.pageCrossed {
		c.cycles++
	}
}

func (c *CPU) sax() {
	c.write8(c.operandAddr, c.a&c.x)
}

func (c *CPU) dcp() {
	v := c.operand() - 1
	c.write8(c.operandAddr, v)
	c.setFlag(flagC, c.a >= v)
	c.setFlagsZN(c.a - v)
}

func (c *CPU) isc() {
	v := c.operand() + 1
	c.write8(c.operandAddr, v)
	c.addToA(^v)
}

func (c *CPU) slo() {
	v := c.operand()
	c.setFlag(flagC, v&0x80 > 0)
	r := v << 1
	c.write8(c.operandAddr, r)
	c.a |= r
	c.setFlagsZN(c.a)
}

func (c *CPU) rla() {
	v := c.operand()
	r := v << 1
	if c.getFlag(flagC) {
		r |= 0x1
	}
	c.write8(c.operandAddr, r)
	c.a &= r
	c.setFlag(flagC, v&0x80 > 0)
	c.setFlagsZN(c.a)
}

func (c *CPU) sre() {
	v := c.operand()
	c.setFlag(flagC, v&0x1 > 0)
	r := v >> 1
	c.write8(c.operandAddr, r)
	c.a ^= r
	c.setFlagsZN(c.a)
}

func (c *CPU) rra() {
	v := c.operand()
	r := v >> 1
	if c.getFlag(flagC) {
		r |= 0x80
	}
	c.setFlag(flagC, v&0x1 > 0)
	c.write8(c.operandAddr, r)
	c.addToA(r)
}

func (c *CPU) hlt() {
	c.halted = true
}

func (c *CPU) anc() {
	c.a &= c.operand()
	c.setFlag(flagC, c.a&0x80 > 0)
	c.setFlagsZN(c.a)
}

func (c *CPU) alr() {
	c.a &= c.operand()
	c.setFlag(flagC, c.a&0x1 > 0)
	c.a >>= 1
	c.setFlagsZN(c.a)
}

func (c *CPU) arr() {
	c.a &= c.operand()
	c.a >>= 1
	if c.getFlag(flagC) {
		c.a |= 0x80
	}
	c.setFlag(flagC, c.a&0x40 > 0)
	c.setFlag(flagV, (c.a>>6)&1 != (c.a>>5)&1)
	c.setFlagsZN(c.a)
}

func (c *CPU) axs() {
	v := c.operand()
	r := c.a & c.x
	c.setFlag(flagC, r >= v)
	c.x = r - v
	c.setFlagsZN(c.x)
}

// ane and lxa are unstable on real chips. These are the usual
// best-effort approximations.
func (c *CPU) ane() {
	c.a = c.x & c.operand()
	c.setFlagsZN(c.a)
}

func (c *CPU) lxa() {
	v := c.operand()
	c.a = v
	c.x = v
	c.setFlagsZN(v)
}

// highPlusOne is the hardware-idiosyncratic term shared by the
// SHA/SHX/SHY/TAS family: the stored value is ANDed with the high byte of
// the target address plus one.
func (c *CPU) highPlusOne() uint8 {
	return uint8(c.operandAddr>>8) + 1
}

func (c *CPU) sha() {
	c.write8(c.operandAddr, c.a&c.x&c.highPlusOne())
}

func (c *CPU) shx() {
	c.write8(c.operandAddr, c.x&c.highPlusOne())
}

func (c *CPU) shy() {
	c.write8(c.operandAddr, c.y&c.highPlusOne())
}

func (c *CPU) tas() {
	c.sp = c.a & c.x
	c.write8(c.operandAddr, c.sp&c.highPlusOne())
}

func (c *CPU) las() {
	r := c.operand() & c.sp
	c.a = r
	c.x = r
	c.sp = r
	c.setFlagsZN(r)
	if c.pageCrossed {
		c.cycles++
	}
}
