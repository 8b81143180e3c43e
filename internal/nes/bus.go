package nes

// FrameHandler is the host's per-frame hook. The bus calls OnFrame
// exactly once per video frame, on the rising edge of the PPU's NMI
// latch, with read access to the PPU and mutable access to the input
// latch. The call is synchronous: emulation resumes when it returns.
type FrameHandler interface {
	OnFrame(ppu *PPU, joypad *Joypad)
}

// Bus owns the work RAM, the PPU, the cartridge images and the input
// latch, and routes every CPU address to the right backing store. The
// CPU owns the bus; nothing is shared.
type Bus struct {
	cpu    *CPU
	ppu    *PPU
	ram    *RAM
	cart   *Cart
	joypad *Joypad

	cycles       uint64
	frameHandler FrameHandler

	fault    error
	dmaStall int
}

func NewBus(cart *Cart) *Bus {
	b := &Bus{
		ram:    NewRAM(),
		cart:   cart,
		joypad: NewJoypad(),
	}
	b.ppu = NewPPU(cart.CHR(), cart.Mirroring())
	b.cpu = NewCPU(b.newCpuMemory())
	b.cpu.bus = b
	b.cpu.Reset()
	return b
}

func (b *Bus) CPU() *CPU {
	return b.cpu
}

func (b *Bus) PPU() *PPU {
	return b.ppu
}

func (b *Bus) Joypad() *Joypad {
	return b.joypad
}

func (b *Bus) Cycles() uint64 {
	return b.cycles
}

// SetFrameHandler registers the host's per-frame hook.
func (b *Bus) SetFrameHandler(h FrameHandler) {
	b.frameHandler = h
}

func (b *Bus) Reset() {
	b.cycles = 0
	b.fault = nil
	b.dmaStall = 0
	b.cpu.Reset()
}

// Tick advances the master clock by one instruction's worth of CPU
// cycles and drives the PPU with three dots per cycle. A rising edge of
// the PPU's NMI latch marks the start of a video frame and fires the
// frame handler before the CPU notices the interrupt.
func (b *Bus) Tick(cpuCycles int) {
	b.cycles += uint64(cpuCycles)

	nmiBefore := b.ppu.NMIPending()
	b.ppu.Tick(cpuCycles * 3)
	if !nmiBefore && b.ppu.NMIPending() && b.frameHandler != nil {
		b.frameHandler.OnFrame(b.ppu, b.joypad)
	}
}

// PollNMI takes the PPU's pending interrupt, consumed at most once.
func (b *Bus) PollNMI() bool {
	return b.ppu.TakeNMI()
}

// Read8 and Write8 expose the CPU's view of the address space to host
// and test code.
func (b *Bus) Read8(addr uint16) uint8 {
	return b.newCpuMemory().Read8(addr)
}

func (b *Bus) Write8(addr uint16, data uint8) {
	b.newCpuMemory().Write8(addr, data)
}

// oamDMA copies the 256-byte page at data<<8 into PPU OAM and records
// the CPU stall: 513 cycles, plus one when started on an odd cycle.
func (b *Bus) oamDMA(page uint8) {
	mem := b.newCpuMemory()
	base := uint16(page) << 8

	var buf [256]uint8
	for i := 0; i < 256; i++ {
		buf[i] = mem.Read8(base + uint16(i))
	}
	b.ppu.WriteOAMDMA(&buf)

	b.dmaStall = 513
	if b.cycles%2 == 1 {
		b.dmaStall++
	}
}

func (b *Bus) setFault(err error) {
	if b.fault == nil {
		b.fault = err
	}
}

func (b *Bus) takeFault() error {
	err := b.fault
	b.fault = nil
	return err
}

func (b *Bus) takeDMAStall() int {
	stall := b.dmaStall
	b.dmaStall = 0
	return stall
}
