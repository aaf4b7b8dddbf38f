package pio

// executeResult reports the outcome of one decoded instruction's execution
// back to Step: whether the SM must stay on this instruction next tick
// (stalled) and whether PC was set directly rather than auto-incremented
// (pcChanged).
type executeResult struct {
	stalled   bool
	pcChanged bool
}

// execute runs the decoded instruction's runtime semantics (spec.md §4.E).
// The teacher has no interpreter of its own — program words only ever run
// on real silicon — so this is new code, grounded on the field layout
// instr.go/decode.go already established and on the Open Question
// decisions recorded in SPEC_FULL.md §0: JMP X!=Y compares X against Y,
// IN from Y reads the Y scratch register, and MOV's two operations are
// INVERT and BIT_REVERSE.
func (sm *StateMachine) execute(instr Instr) executeResult {
	switch instr.Kind {
	case InstrJMP:
		return sm.execJMP(instr)
	case InstrWAIT:
		return sm.execWAIT(instr)
	case InstrIN:
		return sm.execIN(instr)
	case InstrOUT:
		return sm.execOUT(instr)
	case InstrPUSH:
		return sm.execPUSH(instr)
	case InstrPULL:
		return sm.execPULL(instr)
	case InstrMOV:
		return sm.execMOV(instr)
	case InstrIRQ:
		return sm.execIRQ(instr)
	case InstrSET:
		return sm.execSET(instr)
	}
	return executeResult{}
}

func (sm *StateMachine) execJMP(instr Instr) executeResult {
	var branch bool
	switch instr.JmpCond {
	case JmpAlways:
		branch = true
	case JmpXZero:
		branch = sm.X == 0
	case JmpXNZeroDec:
		branch = sm.X != 0
		sm.X--
	case JmpYZero:
		branch = sm.Y == 0
	case JmpYNZeroDec:
		branch = sm.Y != 0
		sm.Y--
	case JmpXNotEqualY:
		branch = sm.X != sm.Y
	case JmpPinInput:
		branch = sm.block.GPIO.GetPin(sm.JmpPin())
	case JmpOSRNotEmpty:
		branch = !sm.OSR.IsEmpty()
	}
	if branch {
		sm.PC = instr.Addr
		return executeResult{pcChanged: true}
	}
	return executeResult{}
}

func (sm *StateMachine) execWAIT(instr Instr) executeResult {
	var observed bool
	switch instr.WaitSrc {
	case WaitSrcGPIO:
		observed = sm.block.GPIO.GetPin(instr.WaitPin)
	case WaitSrcPIN:
		observed = sm.block.GPIO.GetPin((sm.inBase() + instr.WaitPin) & 0x1f)
	case WaitSrcIRQ:
		idx := RelIndex(sm.Index, instr.WaitIRQIndex, instr.WaitIRQRel)
		observed = sm.block.IRQ.IsSet(idx)
	}
	if observed != instr.WaitPolarity {
		return executeResult{stalled: true}
	}
	if instr.WaitSrc == WaitSrcIRQ && instr.WaitPolarity {
		idx := RelIndex(sm.Index, instr.WaitIRQIndex, instr.WaitIRQRel)
		sm.block.IRQ.ClearMasked(1 << idx)
	}
	return executeResult{}
}

func (sm *StateMachine) execIN(instr Instr) executeResult {
	n := instr.Count
	if n == 0 {
		n = 32
	}
	var data uint32
	switch instr.SrcDest {
	case SrcDestPins:
		for i := uint8(0); i < n; i++ {
			pin := (sm.inBase() + i) & 0x1f
			if sm.block.GPIO.GetPin(pin) {
				data |= 1 << i
			}
		}
	case SrcDestX:
		data = sm.X
	case SrcDestY:
		data = sm.Y
	case SrcDestNull:
		data = 0
	case SrcDestISR:
		data = sm.ISR.Bits
	case SrcDestOSR:
		data = sm.OSR.Bits
	}
	sm.ISR.ShiftIn(n, data)

	if sm.autopushEnabled() && sm.ISR.IsFull() {
		if sm.RX.Push(sm.ISR.Bits) {
			sm.ISR.Reset()
		} else {
			sm.RX.Stall = true
		}
	}
	return executeResult{}
}

func (sm *StateMachine) execOUT(instr Instr) executeResult {
	if sm.autopullEnabled() && sm.OSR.IsEmpty() {
		if !sm.autoPullFill() {
			return executeResult{stalled: true}
		}
	}
	n := instr.Count
	if n == 0 {
		n = 32
	}
	value := sm.OSR.ShiftOut(n)

	switch instr.SrcDest {
	case SrcDestPins:
		sm.driveValue(sm.outBase(), sm.outCount(), value, false, 1)
	case SrcDestX:
		sm.X = value
	case SrcDestY:
		sm.Y = value
	case SrcDestNull:
		// discard
	case SrcDestPinDirs:
		sm.driveValue(sm.outBase(), sm.outCount(), value, true, 1)
	case SrcDestPC:
		sm.PC = uint8(value) & 0x1f
		return executeResult{pcChanged: true}
	case SrcDestISR:
		sm.ISR.Bits = value
	case SrcDestExecOut:
		sm.execInject(instr, uint16(value))
	}
	return executeResult{}
}

func (sm *StateMachine) execPUSH(instr Instr) executeResult {
	if instr.IfFullOrEmpty && !sm.ISR.IsFull() {
		return executeResult{}
	}
	if sm.RX.IsFull() {
		if instr.Block {
			sm.RX.Stall = true
			return executeResult{stalled: true}
		}
		sm.RX.Over = true
	} else {
		sm.RX.Push(sm.ISR.Bits)
	}
	sm.ISR.Reset()
	return executeResult{}
}

func (sm *StateMachine) execPULL(instr Instr) executeResult {
	if instr.IfFullOrEmpty && !sm.OSR.IsEmpty() {
		return executeResult{}
	}
	if !sm.autoPullFill() {
		if instr.Block {
			return executeResult{stalled: true}
		}
		sm.OSR.Bits = sm.X
		sm.OSR.Counter = 0
	}
	return executeResult{}
}

func (sm *StateMachine) execMOV(instr Instr) executeResult {
	var value uint32
	switch instr.MovSrc {
	case SrcDestPins:
		for i := uint8(0); i < 32; i++ {
			if sm.block.GPIO.GetPin((sm.inBase() + i) & 0x1f) {
				value |= 1 << i
			}
		}
	case SrcDestX:
		value = sm.X
	case SrcDestY:
		value = sm.Y
	case SrcDestNull:
		value = 0
	case SrcDestStatus:
		value = sm.movStatus()
	case SrcDestISR:
		value = sm.ISR.Bits
	case SrcDestOSR:
		value = sm.OSR.Bits
	}

	switch instr.MovOp {
	case MovOpInvert:
		value = ^value
	case MovOpBitReverse:
		value = BitReverse(value)
	}

	switch instr.MovDest {
	case SrcDestPins:
		sm.driveValue(sm.outBase(), sm.outCount(), value, false, 1)
	case SrcDestX:
		sm.X = value
	case SrcDestY:
		sm.Y = value
	case SrcDestExecMov:
		sm.execInject(instr, uint16(value))
	case SrcDestPC:
		sm.PC = uint8(value) & 0x1f
		return executeResult{pcChanged: true}
	case SrcDestISR:
		sm.ISR.Bits = value
		sm.ISR.Counter = 0
	case SrcDestOSR:
		sm.OSR.Bits = value
		sm.OSR.Counter = 0
	}
	return executeResult{}
}

func (sm *StateMachine) execIRQ(instr Instr) executeResult {
	idx := RelIndex(sm.Index, instr.IRQIndex, instr.IRQRel)
	if instr.IRQClear {
		sm.block.IRQ.ClearMasked(1 << idx)
		return executeResult{}
	}
	if instr.IRQWait && sm.Stalled {
		// Retrying a set-then-wait: the flag was already raised on the
		// first entry. Only observe it from here on, so an external clear
		// (host or another SM) can actually unstall this SM instead of
		// being immediately re-raised by re-running the Set.
		if sm.block.IRQ.IsSet(idx) {
			return executeResult{stalled: true}
		}
		return executeResult{}
	}
	sm.block.IRQ.Set(idx)
	if instr.IRQWait {
		return executeResult{stalled: true}
	}
	return executeResult{}
}

func (sm *StateMachine) execSET(instr Instr) executeResult {
	n := instr.Count
	switch instr.SrcDest {
	case SrcDestPins:
		sm.driveValue(sm.setBase(), sm.setCount(), uint32(n), false, 0)
	case SrcDestX:
		sm.X = uint32(n)
	case SrcDestY:
		sm.Y = uint32(n)
	case SrcDestPinDirs:
		sm.driveValue(sm.setBase(), sm.setCount(), uint32(n), true, 0)
	}
	return executeResult{}
}

// execInject arms word to run immediately, in place, as OUT EXEC/MOV EXEC
// do on real silicon: Step picks this up right after the triggering
// instruction finishes and executes it within the same tick, under the
// triggering instruction's own delay/side-set slot rather than any slot
// encoded in word itself. This is deliberately not routed through Exec
// (which arms an external SMx_INSTR-style force for the *next* tick's
// fetch) — an EXEC-injected word must not survive past this tick.
func (sm *StateMachine) execInject(instr Instr, word uint16) {
	sm.pendingInject = true
	sm.pendingInjectWord = word
}

// driveValue registers an SM's pin drive intent at OUT/SET priority
// (1 and 0 respectively; side-set uses priority 2 via driveSideSet).
func (sm *StateMachine) driveValue(base, count uint8, value uint32, asDirs bool, priority uint8) {
	if count == 0 {
		return
	}
	if asDirs {
		sm.block.GPIO.RequestDrive(sm.Index, base, count, 0, false, value, true, priority)
	} else {
		sm.block.GPIO.RequestDrive(sm.Index, base, count, value, true, 0, false, priority)
	}
}

func (sm *StateMachine) autopushEnabled() bool { return sm.ShiftCtrl&(1<<shiftAutopushPos) != 0 }
func (sm *StateMachine) autopullEnabled() bool { return sm.ShiftCtrl&(1<<shiftAutopullPos) != 0 }

// autoPullFill pops TX into OSR for both autopull and an explicit PULL. It
// returns false, leaving the OSR untouched and latching TX.Stall, if TX has
// nothing to offer.
func (sm *StateMachine) autoPullFill() bool {
	word, ok := sm.TX.Pop()
	if !ok {
		sm.TX.Stall = true
		return false
	}
	sm.OSR.Bits = word
	sm.OSR.Counter = 0
	return true
}

// movStatus implements MOV's STATUS source: all-ones when the configured
// FIFO (TX or RX, selected by EXECCTRL.STATUS_SEL) has fewer than
// STATUS_N words queued, all-zeros otherwise (spec.md §4.E).
func (sm *StateMachine) movStatus() uint32 {
	n := int(bitsGet(sm.ExecCtrl, execStatusNMsk, execStatusNPos))
	selRx := sm.ExecCtrl&(1<<execStatusSelPos) != 0
	var level int
	if selRx {
		level = sm.RX.Level()
	} else {
		level = sm.TX.Level()
	}
	if level < n {
		return 0xffffffff
	}
	return 0
}
