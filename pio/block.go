package pio

import "sync"

// Block is one of the emulator's PIO peripherals: 32 words of shared
// instruction memory, 4 state machines, a GPIO fabric and an IRQ unit
// (spec.md §3/§4). Grounded on the teacher's PIO type in rp2-pio/pio.go —
// AddProgram/AddProgramAtOffset/CanAddProgramAtOffset/findOffsetForProgram/
// ClearProgramSection are carried over near-verbatim, with writes to
// pio.hw.INSTR_MEM (unsafe.Pointer-addressed hardware registers) replaced
// by plain writes into Memory, and the claimed-state-machine bitmask
// dropped since this emulator exposes all 4 SMs directly rather than
// requiring a claim/release protocol.
type Block struct {
	Memory [MemorySize]uint16
	SMs    [SMCount]*StateMachine
	IRQ    IRQUnit
	GPIO   *GPIOFabric

	// Mu serializes every mutation to SM/FIFO/IRQ state, whether it comes
	// from the clock-driven stepper, the in-process MMR facade, or a TCP
	// bridge client task (spec.md §5: "All mutations ... serialize on a
	// single per-PIO-block lock"). Callers that only read a handful of
	// fields directly (tests constructing a Block by hand, for instance)
	// are not required to take it; the facades and Tick/Phase0/Phase1 do.
	Mu sync.Mutex

	usedSpaceMask uint32
}

// NewBlock returns a PIO block with all 4 state machines constructed,
// disabled, and sharing one GPIO fabric.
func NewBlock() *Block {
	b := &Block{GPIO: NewGPIOFabric()}
	for i := range b.SMs {
		b.SMs[i] = newStateMachine(uint8(i), b)
	}
	return b
}

// AddProgram loads instructions into the first available free slot and
// returns the offset they were loaded at.
func (b *Block) AddProgram(instructions []uint16, origin int8) (offset uint8, err error) {
	maybeOffset := b.findOffsetForProgram(instructions, origin)
	if maybeOffset < 0 {
		return 0, ErrOutOfProgramSpace
	}
	offset = uint8(maybeOffset)
	return offset, b.AddProgramAtOffset(instructions, origin, offset)
}

// AddProgramAtOffset loads instructions at a specific offset, patching
// non-relative JMP targets the same way the teacher's AddProgramAtOffset
// does, or returns ErrNoSpaceAtOffset if the slots are occupied.
func (b *Block) AddProgramAtOffset(instructions []uint16, origin int8, offset uint8) error {
	if !b.CanAddProgramAtOffset(instructions, origin, offset) {
		return ErrNoSpaceAtOffset
	}
	programLen := uint8(len(instructions))
	for i := uint8(0); i < programLen; i++ {
		instr := instructions[i]
		if majorInstrBits(instr) == instrBitsJMP {
			b.Memory[offset+i] = instr + uint16(offset)
		} else {
			b.Memory[offset+i] = instr
		}
	}
	programMask := uint32((1 << programLen) - 1)
	b.usedSpaceMask |= programMask << uint32(offset)
	return nil
}

// CanAddProgramAtOffset reports whether offset has room for instructions,
// honoring a fixed (non-relocatable) origin.
func (b *Block) CanAddProgramAtOffset(instructions []uint16, origin int8, offset uint8) bool {
	if origin >= 0 && origin != int8(offset) {
		return false
	}
	programMask := uint32((1 << len(instructions)) - 1)
	return b.usedSpaceMask&(programMask<<offset) == 0
}

func (b *Block) findOffsetForProgram(instructions []uint16, origin int8) int8 {
	programLen := uint32(len(instructions))
	programMask := uint32((1 << programLen) - 1)

	if origin >= 0 {
		if uint32(origin) > MemorySize-programLen {
			return -1
		}
		if b.usedSpaceMask&(programMask<<uint32(origin)) != 0 {
			return -1
		}
		return origin
	}

	for i := int8(MemorySize - programLen); i >= 0; i-- {
		if b.usedSpaceMask&(programMask<<uint32(i)) == 0 {
			return i
		}
	}
	return -1
}

// ClearProgramSection clears a contiguous range of program memory, filling
// it with `jmp` traps (to itself relative to offset) so a state machine
// that happens to be mid-program there halts deterministically instead of
// executing whatever zero-valued word used to sit there.
func (b *Block) ClearProgramSection(offset, length uint8) {
	if int(offset)+int(length) > MemorySize {
		panic(badProgramBounds)
	}
	for i := offset; i < offset+length; i++ {
		b.Memory[i] = EncodeJmp(i, JmpAlways)
	}
	b.usedSpaceMask &^= uint32((1<<length)-1) << offset
}

// Phase0 samples GPIO inputs and steps every enabled SM. Each SM may
// register a pin-drive request for this tick, but nothing is committed to
// the visible pin state until Phase1 runs (spec.md §4.A tick_phase0,
// §5's two-phase tick model: no SM observes another's mid-tick writes).
func (b *Block) Phase0() {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.GPIO.SamplePhase0()
	for _, sm := range b.SMs {
		sm.Step()
	}
}

// Phase1 commits this tick's pin-drive requests (spec.md §4.A
// tick_phase1).
func (b *Block) Phase1() {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	b.GPIO.CommitPhase1()
}

// Tick advances the block by exactly one clock cycle: Phase0 then Phase1.
func (b *Block) Tick() {
	b.Phase0()
	b.Phase1()
}

// SMStatus collects the FIFO not-full/not-empty bits INTR/INTS need from
// the current state of every SM's FIFOs.
func (b *Block) SMStatus() SMStatusBits {
	var s SMStatusBits
	for i, sm := range b.SMs {
		s.TxNotFull[i] = !sm.TX.IsFull()
		s.RxNotEmpty[i] = !sm.RX.IsEmpty()
	}
	return s
}
