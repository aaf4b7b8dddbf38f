package pio

// This file packs/unpacks the per-SM configuration registers (CLKDIV,
// EXECCTRL, SHIFTCTRL, PINCTRL) as raw 32-bit words, the same way the
// teacher's rp2-pio/config.go builds StateMachineConfig by OR-ing
// shifted fields into ExecCtrl/ShiftCtrl/PinCtrl — except here those
// words ARE the state machine's live register values (read/written
// directly by the MMR facade), not a value later poked into hardware.
//
// spec.md does not pin down bit positions for these three registers (only
// FSTAT/FDEBUG/FLEVEL/DBG_CFGINFO get an exact layout in §4.I); the
// layout below is an internal choice, kept consistent across encode,
// decode and the facade.

// CLKDIV: bits 31:16 INT, bits 15:8 FRAC.
const (
	clkdivFracPos = 8
	clkdivIntPos  = 16
)

// EXECCTRL bit layout.
const (
	execStatusNPos    = 0
	execStatusNMsk    = 0x1f << execStatusNPos
	execStatusSelPos  = 5
	execOutStickyPos  = 6
	execInlineOutEnPos = 7
	execOutEnSelPos   = 8
	execOutEnSelMsk   = 0x1f << execOutEnSelPos
	execJmpPinPos     = 13
	execJmpPinMsk     = 0x1f << execJmpPinPos
	execWrapBottomPos = 18
	execWrapBottomMsk = 0x1f << execWrapBottomPos
	execWrapTopPos    = 23
	execWrapTopMsk    = 0x1f << execWrapTopPos
	execSidePindirPos = 28
	execSideEnPos     = 29
	execStalledPos    = 30
)

// SHIFTCTRL bit layout.
const (
	shiftPullThreshPos = 16
	shiftPullThreshMsk = 0x1f << shiftPullThreshPos
	shiftPushThreshPos = 21
	shiftPushThreshMsk = 0x1f << shiftPushThreshPos
	shiftOutDirPos     = 26
	shiftInDirPos      = 27
	shiftAutopullPos   = 28
	shiftAutopushPos   = 29
	shiftFjoinRxPos    = 30
	shiftFjoinTxPos    = 31
)

// PINCTRL bit layout.
const (
	pinOutBasePos     = 0
	pinOutBaseMsk     = 0x1f << pinOutBasePos
	pinSetBasePos     = 5
	pinSetBaseMsk     = 0x1f << pinSetBasePos
	pinSidesetBasePos = 10
	pinSidesetBaseMsk = 0x1f << pinSidesetBasePos
	pinInBasePos      = 15
	pinInBaseMsk      = 0x1f << pinInBasePos
	pinOutCountPos    = 20
	pinOutCountMsk    = 0x3f << pinOutCountPos
	pinSetCountPos    = 26
	pinSetCountMsk    = 0x7 << pinSetCountPos
	pinSidesetCountPos = 29
	pinSidesetCountMsk = 0x7 << pinSidesetCountPos
)

func bitsSet(word uint32, mask uint32, pos uint, value uint32) uint32 {
	return (word &^ mask) | ((value << pos) & mask)
}
func bitsGet(word uint32, mask uint32, pos uint) uint32 { return (word & mask) >> pos }
func boolBit32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// --- CLKDIV ---

func (sm *StateMachine) SetClkDivIntFrac(whole uint16, frac uint8) {
	sm.ClkDiv = (uint32(frac) << clkdivFracPos) | (uint32(whole) << clkdivIntPos)
}
func (sm *StateMachine) clkDiv() ClkDiv {
	return ClkDiv{
		Int:  uint16(sm.ClkDiv >> clkdivIntPos),
		Frac: uint8(sm.ClkDiv >> clkdivFracPos),
	}
}

// --- EXECCTRL ---

func (sm *StateMachine) SetWrap(bottom, top uint8) {
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, execWrapBottomMsk, execWrapBottomPos, uint32(bottom))
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, execWrapTopMsk, execWrapTopPos, uint32(top))
}
func (sm *StateMachine) WrapBottom() uint8 { return uint8(bitsGet(sm.ExecCtrl, execWrapBottomMsk, execWrapBottomPos)) }
func (sm *StateMachine) WrapTop() uint8    { return uint8(bitsGet(sm.ExecCtrl, execWrapTopMsk, execWrapTopPos)) }

func (sm *StateMachine) SetJmpPin(pin uint8) {
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, execJmpPinMsk, execJmpPinPos, uint32(pin))
}
func (sm *StateMachine) JmpPin() uint8 { return uint8(bitsGet(sm.ExecCtrl, execJmpPinMsk, execJmpPinPos)) }

func (sm *StateMachine) SetSidesetParams(bitCount uint8, optional, pindirs bool) {
	if bitCount > 5 {
		panic("pio: SetSidesetParams: bitCount")
	}
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinSidesetCountMsk, pinSidesetCountPos, uint32(bitCount))
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, 1<<execSideEnPos, execSideEnPos, boolBit32(optional))
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, 1<<execSidePindirPos, execSidePindirPos, boolBit32(pindirs))
}

func (sm *StateMachine) sideSetConfig() SideSetConfig {
	return SideSetConfig{
		Count:          uint8(bitsGet(sm.PinCtrl, pinSidesetCountMsk, pinSidesetCountPos)),
		OptionalEnable: sm.ExecCtrl&(1<<execSideEnPos) != 0,
		PinDirs:        sm.ExecCtrl&(1<<execSidePindirPos) != 0,
	}
}

func (sm *StateMachine) SetMovStatus(statusSel uint8, statusN uint8) {
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, 1<<execStatusSelPos, execStatusSelPos, uint32(statusSel&1))
	sm.ExecCtrl = bitsSet(sm.ExecCtrl, execStatusNMsk, execStatusNPos, uint32(statusN))
}

// --- SHIFTCTRL ---

func (sm *StateMachine) SetInShift(shiftRight, autoPush bool, pushThreshold uint8) {
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, 1<<shiftInDirPos, shiftInDirPos, boolBit32(shiftRight))
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, 1<<shiftAutopushPos, shiftAutopushPos, boolBit32(autoPush))
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, shiftPushThreshMsk, shiftPushThreshPos, uint32(pushThreshold&0x1f))
}

func (sm *StateMachine) SetOutShift(shiftRight, autoPull bool, pullThreshold uint8) {
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, 1<<shiftOutDirPos, shiftOutDirPos, boolBit32(shiftRight))
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, 1<<shiftAutopullPos, shiftAutopullPos, boolBit32(autoPull))
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, shiftPullThreshMsk, shiftPullThreshPos, uint32(pullThreshold&0x1f))
}

func (sm *StateMachine) inShiftRight() bool  { return sm.ShiftCtrl&(1<<shiftInDirPos) != 0 }
func (sm *StateMachine) outShiftRight() bool { return sm.ShiftCtrl&(1<<shiftOutDirPos) != 0 }

func (sm *StateMachine) pushThreshold() uint8 {
	return uint8(bitsGet(sm.ShiftCtrl, shiftPushThreshMsk, shiftPushThreshPos))
}
func (sm *StateMachine) pullThreshold() uint8 {
	return uint8(bitsGet(sm.ShiftCtrl, shiftPullThreshMsk, shiftPullThreshPos))
}

// syncShiftRegisters applies SHIFTCTRL's direction and threshold fields to
// the live ISR/OSR before this tick's shift operations read them: unlike
// PINCTRL/EXECCTRL fields (read live at each use via sideSetConfig() etc.),
// direction and threshold live on the ShiftRegister itself so ShiftIn/
// ShiftOut/IsFull/IsEmpty don't need a StateMachine back-reference.
func (sm *StateMachine) syncShiftRegisters() {
	if sm.inShiftRight() {
		sm.ISR.Direction = ShiftRight
	} else {
		sm.ISR.Direction = ShiftLeft
	}
	sm.ISR.Threshold = sm.pushThreshold()

	if sm.outShiftRight() {
		sm.OSR.Direction = ShiftRight
	} else {
		sm.OSR.Direction = ShiftLeft
	}
	sm.OSR.Threshold = sm.pullThreshold()
}

func (sm *StateMachine) SetFIFOJoin(join FifoJoin) {
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, 1<<shiftFjoinTxPos, shiftFjoinTxPos, boolBit32(join == FifoJoinTx))
	sm.ShiftCtrl = bitsSet(sm.ShiftCtrl, 1<<shiftFjoinRxPos, shiftFjoinRxPos, boolBit32(join == FifoJoinRx))
}

func (sm *StateMachine) fifoJoin() FifoJoin {
	switch {
	case sm.ShiftCtrl&(1<<shiftFjoinTxPos) != 0:
		return FifoJoinTx
	case sm.ShiftCtrl&(1<<shiftFjoinRxPos) != 0:
		return FifoJoinRx
	default:
		return FifoJoinNone
	}
}

// FifoJoin enumerates how a state machine's FIFOs merge (spec.md §4.C).
type FifoJoin uint8

const (
	FifoJoinNone FifoJoin = iota
	FifoJoinTx
	FifoJoinRx
)

// --- PINCTRL ---

func (sm *StateMachine) SetOutPins(base, count uint8) {
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinOutBaseMsk, pinOutBasePos, uint32(base))
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinOutCountMsk, pinOutCountPos, uint32(count))
}
func (sm *StateMachine) SetSetPins(base, count uint8) {
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinSetBaseMsk, pinSetBasePos, uint32(base))
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinSetCountMsk, pinSetCountPos, uint32(count))
}
func (sm *StateMachine) SetInPins(base uint8) {
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinInBaseMsk, pinInBasePos, uint32(base))
}
func (sm *StateMachine) SetSidesetPins(base uint8) {
	sm.PinCtrl = bitsSet(sm.PinCtrl, pinSidesetBaseMsk, pinSidesetBasePos, uint32(base))
}

func (sm *StateMachine) outBase() uint8  { return uint8(bitsGet(sm.PinCtrl, pinOutBaseMsk, pinOutBasePos)) }
func (sm *StateMachine) outCount() uint8 { return uint8(bitsGet(sm.PinCtrl, pinOutCountMsk, pinOutCountPos)) }
func (sm *StateMachine) setBase() uint8  { return uint8(bitsGet(sm.PinCtrl, pinSetBaseMsk, pinSetBasePos)) }
func (sm *StateMachine) setCount() uint8 { return uint8(bitsGet(sm.PinCtrl, pinSetCountMsk, pinSetCountPos)) }
func (sm *StateMachine) inBase() uint8   { return uint8(bitsGet(sm.PinCtrl, pinInBaseMsk, pinInBasePos)) }
func (sm *StateMachine) sidesetBase() uint8 {
	return uint8(bitsGet(sm.PinCtrl, pinSidesetBaseMsk, pinSidesetBasePos))
}

// DefaultStateMachineConfig applies the power-on defaults mirrored from
// pio_get_default_sm_config in the teacher's rp2-pio/config.go: clkdiv
// 1.0, full 32-word wrap, right shift for both ISR and OSR (OUT emits the
// low bits first), thresholds of 32, no auto-push/pull.
func (sm *StateMachine) DefaultStateMachineConfig() {
	sm.SetClkDivIntFrac(1, 0)
	sm.SetWrap(0, 31)
	sm.SetInShift(true, false, 32)
	sm.SetOutShift(true, false, 32)
}
