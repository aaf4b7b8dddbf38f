package mmr

import "github.com/dannystaple/rp2040pio-emulator/pio"

// ExtendedFacade is the emulator-only debug window spec.md §4.I calls
// out alongside the datasheet register map: per-SM {X, Y, PC, ISR, OSR,
// delay_remaining, stalled} and the phase-0/phase-1 single-step triggers
// (spec.md §4.A tick_phase0/tick_phase1). There is no hardware register
// block to ground this on — it exists purely so an external agent (the
// TCP bridge, or a test) can drive and observe the emulator without a
// real host CPU's instruction stream, the same role the teacher's
// machine-package test helpers play for real silicon.
type ExtendedFacade struct {
	block *pio.Block
	base  uint32
	label string
}

func NewExtendedFacade(block *pio.Block, base uint32, label string) *ExtendedFacade {
	return &ExtendedFacade{block: block, base: base, label: label}
}

func (f *ExtendedFacade) Label() string { return f.label }

func (f *ExtendedFacade) Provides(addr uint32) bool {
	return addr >= f.base && addr < f.base+windowSize
}

const (
	extOffPhase0Trigger = 0x00
	extOffPhase1Trigger = 0x04
	extOffSM0           = 0x08
	extSMStride         = 32

	extSMX             = 0
	extSMY             = 4
	extSMPC            = 8
	extSMISR           = 12
	extSMOSR           = 16
	extSMDelayRemain   = 20
	extSMStalled       = 24
	extSMDecodeErrWord = 28
)

func (f *ExtendedFacade) Read(addr uint32) uint32 {
	f.block.Mu.Lock()
	defer f.block.Mu.Unlock()
	offset, _ := decodeLocal(f.base, addr)
	if offset < extOffSM0 {
		return 0
	}
	idx := (offset - extOffSM0) / extSMStride
	if int(idx) >= pio.SMCount {
		return 0
	}
	sm := f.block.SMs[idx]
	switch (offset - extOffSM0) % extSMStride {
	case extSMX:
		return sm.X
	case extSMY:
		return sm.Y
	case extSMPC:
		return uint32(sm.PC)
	case extSMISR:
		return sm.ISR.Bits
	case extSMOSR:
		return sm.OSR.Bits
	case extSMDelayRemain:
		return uint32(sm.DelayRemaining)
	case extSMStalled:
		if sm.Stalled {
			return 1
		}
		return 0
	case extSMDecodeErrWord:
		if sm.DecodeErr != nil {
			return uint32(sm.DecodeErr.Word)
		}
		return 0
	}
	return 0
}

func (f *ExtendedFacade) Write(addr uint32, value uint32) {
	offset, _ := decodeLocal(f.base, addr)
	switch offset {
	case extOffPhase0Trigger:
		f.block.Phase0()
	case extOffPhase1Trigger:
		f.block.Phase1()
	}
	// Per-SM window is read-only: it observes state, it does not inject it
	// (INSTR in the PIO facade already covers forced-instruction writes).
}
