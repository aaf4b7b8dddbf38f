package pio

// StateMachine is one of the four independent execution contexts within
// a PIO block (spec.md §3 SM Execution Context, §4.F). Grounded on the
// teacher's rp2-pio/statemachine.go (same method names — SetEnabled,
// Restart, SetConfig, Exec — and the same ClearFIFOs/forced-instruction
// shape) reinterpreted against in-memory state instead of hardware
// registers reached through HW()/unsafe.Pointer.
type StateMachine struct {
	Index uint8
	block *Block

	PC uint8

	X, Y uint32
	ISR  ShiftRegister
	OSR  ShiftRegister

	TX *FIFO
	RX *FIFO

	ClkDiv    uint32
	ExecCtrl  uint32
	ShiftCtrl uint32
	PinCtrl   uint32

	DelayRemaining uint8
	Stalled        bool
	Enabled        bool

	forced     bool
	forcedWord uint16

	// pendingInject/pendingInjectWord carry an OUT EXEC / MOV EXEC payload
	// from execute() back to Step(): unlike forced/forcedWord (an external
	// SMx_INSTR write, consumed at the top of the *next* Step), an injected
	// instruction runs immediately, in the same tick, honoring the
	// triggering instruction's own delay/side-set slot rather than its own.
	pendingInject     bool
	pendingInjectWord uint16

	lastInstrWord uint16
	DecodeErr     *DecodeError

	clkAcc clockAccumulator

	heldSideSetValid bool
	heldSideSet      uint8
	heldPinDirs      bool
}

func newStateMachine(index uint8, block *Block) *StateMachine {
	sm := &StateMachine{
		Index: index,
		block: block,
		TX:    NewFIFO(),
		RX:    NewFIFO(),
	}
	sm.ISR.Direction = ShiftLeft
	sm.OSR.Direction = ShiftLeft
	sm.DefaultStateMachineConfig()
	return sm
}

// SetEnabled starts or stops the state machine. A disabled SM does not
// step, does not drive pins, and does not consume the clock divider
// accumulator.
func (sm *StateMachine) SetEnabled(enabled bool) { sm.Enabled = enabled }

// Restart resets PC, shift registers, scratch registers and stall state,
// matching the teacher's Restart/ClkDivRestart split: Restart alone does
// not reset the clock divider accumulator, so a running clock phase
// relationship with other SMs survives a single SM restart.
func (sm *StateMachine) Restart() {
	sm.PC = 0
	sm.X, sm.Y = 0, 0
	sm.ISR.Reset()
	sm.OSR.Reset()
	sm.Stalled = false
	sm.DelayRemaining = 0
	sm.forced = false
	sm.pendingInject = false
	sm.DecodeErr = nil
	sm.heldSideSetValid = false
}

// ClkDivRestart resets the fractional clock divider accumulator so the
// next tick starts a fresh division cycle.
func (sm *StateMachine) ClkDivRestart() { sm.clkAcc.reset() }

// ClearFIFOs empties both FIFOs without touching their sticky debug
// latches. Grounded on the teacher's ClearFIFOs XOR-twice trick in
// statemachine.go, reduced to its observable effect since there is no
// hardware shift register to toggle here.
func (sm *StateMachine) ClearFIFOs() {
	sm.TX.Clear()
	sm.RX.Clear()
}

// Exec forces word to be the next instruction executed in place of
// memory[PC], as SMx_INSTR writes or `out exec`/`mov exec` do on real
// silicon.
func (sm *StateMachine) Exec(word uint16) {
	sm.forced = true
	sm.forcedWord = word
}

// applyFifoJoin keeps each FIFO's configured depth in sync with this SM's
// SHIFTCTRL.FJOIN bits.
func (sm *StateMachine) applyFifoJoin() {
	switch sm.fifoJoin() {
	case FifoJoinTx:
		sm.TX.SetJoined(true)
		sm.RX.SetJoined(false)
	case FifoJoinRx:
		sm.RX.SetJoined(true)
		sm.TX.SetJoined(false)
	default:
		sm.TX.SetJoined(false)
		sm.RX.SetJoined(false)
	}
}

func (sm *StateMachine) wrap(pc uint8) uint8 {
	top := sm.WrapTop()
	bottom := sm.WrapBottom()
	if pc > top || pc < bottom {
		return bottom
	}
	return pc
}

// Step runs the per-tick algorithm from spec.md §4.F, gated by the clock
// divider. It samples GPIO inputs via the block's phase-0 snapshot and
// registers this SM's pin drive intent for phase 1 via RequestDrive.
func (sm *StateMachine) Step() {
	if !sm.Enabled {
		return
	}
	sm.applyFifoJoin()
	sm.syncShiftRegisters()
	if !sm.clkAcc.step(sm.clkDiv()) {
		return
	}

	if sm.DelayRemaining > 0 && !sm.Stalled {
		sm.DelayRemaining--
		sm.driveHeldSideSet()
		return
	}

	var word uint16
	if sm.forced {
		word = sm.forcedWord
	} else {
		word = sm.block.Memory[sm.PC]
	}
	sm.lastInstrWord = word

	instr, err := Decode(word, sm.sideSetConfig())
	if err != nil {
		var de *DecodeError
		if ok := asDecodeError(err, &de); ok {
			sm.DecodeErr = de
			sm.Stalled = true
		}
		return
	}

	wasForced := sm.forced

	result := sm.execute(instr)

	if result.stalled {
		// Keep the forced word armed (if any) so the identical
		// instruction is retried next tick instead of falling through
		// to memory[PC].
		sm.Stalled = true
		return
	}
	sm.forced = false
	sm.Stalled = false

	pcChanged := result.pcChanged
	if sm.pendingInject {
		word := sm.pendingInjectWord
		sm.pendingInject = false
		// The injected word's own delay/side-set slot is discarded: it
		// runs immediately, under the triggering instruction's slot
		// (already handled below via instr.Delay/instr.SideSetValid).
		if injInstr, err := Decode(word, SideSetConfig{}); err == nil {
			if sm.execute(injInstr).pcChanged {
				pcChanged = true
			}
		}
	}

	if instr.SideSetValid {
		sm.heldSideSetValid = true
		sm.heldSideSet = instr.SideSet
		sm.heldPinDirs = sm.sideSetConfig().PinDirs
		sm.driveSideSet(instr.SideSet, sm.sideSetConfig().PinDirs)
	} else {
		sm.heldSideSetValid = false
	}

	if !pcChanged && !wasForced {
		sm.PC = sm.wrap(sm.PC + 1)
	}
	// A forced instruction that did not itself branch does not advance
	// PC; the next tick re-reads memory[PC] normally.
	sm.DelayRemaining = instr.Delay
}

func (sm *StateMachine) driveHeldSideSet() {
	if sm.heldSideSetValid {
		sm.driveSideSet(sm.heldSideSet, sm.heldPinDirs)
	}
}

func (sm *StateMachine) driveSideSet(value uint8, pinDirs bool) {
	cfg := sm.sideSetConfig()
	base := sm.sidesetBase()
	n := cfg.Count
	if cfg.OptionalEnable {
		if n == 0 {
			return
		}
		n--
	}
	if n == 0 {
		return
	}
	if pinDirs {
		sm.block.GPIO.RequestDrive(sm.Index, base, n, 0, false, uint32(value), true, 2)
	} else {
		sm.block.GPIO.RequestDrive(sm.Index, base, n, uint32(value), true, 0, false, 2)
	}
}

// LastInstr returns the raw word last fetched (or forced) for execution,
// the value the MMR facade's SMx_INSTR register echoes back on read.
func (sm *StateMachine) LastInstr() uint16 { return sm.lastInstrWord }

func asDecodeError(err error, out **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if ok {
		*out = de
	}
	return ok
}
