package mmr

import "github.com/dannystaple/rp2040pio-emulator/pio"

// Register byte offsets within a PIOFacade's local address window,
// spec.md §4.I: "0x00 CTRL, 0x04 FSTAT, 0x08 FDEBUG, 0x0C FLEVEL, 0x10..
// 0x1C TXF0..TXF3, 0x20..0x2C RXF0..RXF3, 0x30 IRQ, 0x34 IRQ_FORCE, 0x38
// INPUT_SYNC_BYPASS, 0x3C DBG_PADOUT, 0x40 DBG_PADOE, 0x44 DBG_CFGINFO,
// 0x48..0xC4 INSTR_MEM0..INSTR_MEM31, then 24 bytes per SM ..., then INTR,
// IRQ0_INTE, IRQ0_INTF, IRQ0_INTS, IRQ1_INTE, IRQ1_INTF, IRQ1_INTS."
const (
	offCTRL              = 0x00
	offFSTAT             = 0x04
	offFDEBUG            = 0x08
	offFLEVEL            = 0x0C
	offTXF0              = 0x10
	offRXF0              = 0x20
	offIRQ               = 0x30
	offIRQForce          = 0x34
	offInputSyncBypass   = 0x38
	offDbgPadout         = 0x3C
	offDbgPadoe          = 0x40
	offDbgCfgInfo        = 0x44
	offInstrMem0         = 0x48
	offSM0               = offInstrMem0 + 4*pio.MemorySize // 0xC8
	smStride             = 24
	smClkdivOff          = 0
	smExecCtrlOff        = 4
	smShiftCtrlOff       = 8
	smAddrOff            = 12
	smInstrOff           = 16
	smPinCtrlOff         = 20
)

var offINTR = offSM0 + pio.SMCount*smStride // 0x128
var offIRQ0INTE = offINTR + 4
var offIRQ0INTF = offINTR + 8
var offIRQ0INTS = offINTR + 12
var offIRQ1INTE = offINTR + 16
var offIRQ1INTF = offINTR + 20
var offIRQ1INTS = offINTR + 24

// PIOFacade is the datasheet-accurate register view of a pio.Block
// (spec.md §4.I, component I). Grounded on the teacher's smHW/pioHW
// register-struct shape in rp2-pio/pio.go and config.go — same register
// set, same per-SM stride — but every access reaches into live pio.Block
// state instead of an unsafe.Pointer-addressed hardware struct.
type PIOFacade struct {
	block *pio.Block
	base  uint32
	label string

	ctrlReg uint32
}

// NewPIOFacade returns a facade for block, occupying the 16KB alias
// window starting at base.
func NewPIOFacade(block *pio.Block, base uint32, label string) *PIOFacade {
	return &PIOFacade{block: block, base: base, label: label}
}

func (f *PIOFacade) Label() string { return f.label }

func (f *PIOFacade) Provides(addr uint32) bool {
	return addr >= f.base && addr < f.base+windowSize
}

func (f *PIOFacade) Read(addr uint32) uint32 {
	f.block.Mu.Lock()
	defer f.block.Mu.Unlock()
	offset, _ := decodeLocal(f.base, addr)
	if v, ok := f.readSM(offset); ok {
		return v
	}
	switch offset {
	case offCTRL:
		return f.ctrlReg
	case offFSTAT:
		return f.fstat()
	case offFDEBUG:
		return f.fdebug()
	case offFLEVEL:
		return f.flevel()
	case offIRQ:
		return uint32(f.block.IRQ.Raw())
	case offIRQForce:
		return 0
	case offInputSyncBypass:
		return f.block.GPIO.InputSyncBypass()
	case offDbgPadout:
		return f.block.GPIO.DbgPadout()
	case offDbgPadoe:
		return f.block.GPIO.DbgPadoe()
	case offDbgCfgInfo:
		return uint32(pio.MemorySize)<<16 | uint32(pio.SMCount)<<8 | uint32(pio.FIFODepth)
	case uint32(offINTR):
		return uint32(f.block.IRQ.INTR(f.block.SMStatus()))
	case uint32(offIRQ0INTE):
		return uint32(f.block.IRQ.GetINTE(0))
	case uint32(offIRQ0INTF):
		return uint32(f.block.IRQ.GetINTF(0))
	case uint32(offIRQ0INTS):
		return uint32(f.block.IRQ.INTS(0, f.block.SMStatus()))
	case uint32(offIRQ1INTE):
		return uint32(f.block.IRQ.GetINTE(1))
	case uint32(offIRQ1INTF):
		return uint32(f.block.IRQ.GetINTF(1))
	case uint32(offIRQ1INTS):
		return uint32(f.block.IRQ.INTS(1, f.block.SMStatus()))
	}
	if offset >= offInstrMem0 && offset < offSM0 {
		idx := (offset - offInstrMem0) / 4
		return uint32(f.block.Memory[idx])
	}
	if _, ok := fifoIndex(offset, offTXF0); ok {
		return 0 // TXFx is write-only on real silicon
	}
	if idx, ok := fifoIndex(offset, offRXF0); ok {
		if w, ok := f.block.SMs[idx].RX.Pop(); ok {
			return w
		}
		return 0
	}
	return 0
}

func (f *PIOFacade) Write(addr uint32, value uint32) {
	f.block.Mu.Lock()
	defer f.block.Mu.Unlock()
	offset, mode := decodeLocal(f.base, addr)
	if f.writeSM(offset, mode, value) {
		return
	}
	switch offset {
	case offCTRL:
		f.writeCTRL(value, mode)
		return
	case offFDEBUG:
		// Write-one-to-clear: any write (through any alias) clears the
		// latches named by the bits set in value (spec.md §8 property 4).
		f.clearFDEBUG(value)
		return
	case offIRQ:
		f.block.IRQ.ClearMasked(uint8(value))
		return
	case offIRQForce:
		f.block.IRQ.Force(uint8(value))
		return
	case offInputSyncBypass:
		f.block.GPIO.SetInputSyncBypass(0xffffffff, applyWrite(f.block.GPIO.InputSyncBypass(), value, mode))
		return
	case uint32(offIRQ0INTE):
		f.block.IRQ.SetINTE(0, uint16(applyWrite(uint32(f.block.IRQ.GetINTE(0)), value, mode)))
		return
	case uint32(offIRQ0INTF):
		f.block.IRQ.SetINTF(0, uint16(applyWrite(uint32(f.block.IRQ.GetINTF(0)), value, mode)))
		return
	case uint32(offIRQ1INTE):
		f.block.IRQ.SetINTE(1, uint16(applyWrite(uint32(f.block.IRQ.GetINTE(1)), value, mode)))
		return
	case uint32(offIRQ1INTF):
		f.block.IRQ.SetINTF(1, uint16(applyWrite(uint32(f.block.IRQ.GetINTF(1)), value, mode)))
		return
	}
	if offset >= offInstrMem0 && offset < offSM0 {
		idx := (offset - offInstrMem0) / 4
		f.block.Memory[idx] = uint16(applyWrite(uint32(f.block.Memory[idx]), value, mode))
		return
	}
	if idx, ok := fifoIndex(offset, offTXF0); ok {
		f.block.SMs[idx].TX.Push(value)
		return
	}
	// FSTAT, FLEVEL, DBG_PADOUT/PADOE, DBG_CFGINFO, ADDR, RXFx, IRQ*_INTS
	// are read-only; writes are silently discarded.
}

func (f *PIOFacade) writeCTRL(value uint32, mode accessMode) {
	newVal := applyWrite(f.ctrlReg, value, mode)
	enable := newVal & 0xf
	restart := (newVal >> 4) & 0xf
	clkdivRestart := (newVal >> 8) & 0xf
	for i := 0; i < pio.SMCount; i++ {
		sm := f.block.SMs[i]
		sm.SetEnabled(enable&(1<<uint(i)) != 0)
		if restart&(1<<uint(i)) != 0 {
			sm.Restart()
		}
		if clkdivRestart&(1<<uint(i)) != 0 {
			sm.ClkDivRestart()
		}
	}
	f.ctrlReg = enable // restart strobes self-clear, never persist
}

func (f *PIOFacade) clearFDEBUG(value uint32) {
	for i := 0; i < pio.SMCount; i++ {
		sm := f.block.SMs[i]
		bit := uint32(1) << uint(i)
		if value&(bit<<24) != 0 {
			sm.TX.Stall = false
		}
		if value&(bit<<16) != 0 {
			sm.TX.Over = false
		}
		if value&(bit<<8) != 0 {
			sm.RX.Under = false
		}
		if value&bit != 0 {
			sm.RX.Stall = false
		}
	}
}

func (f *PIOFacade) fstat() uint32 {
	var v uint32
	for i := 0; i < pio.SMCount; i++ {
		bit := uint32(1) << uint(i)
		sm := f.block.SMs[i]
		if sm.TX.IsEmpty() {
			v |= bit << 24
		}
		if sm.TX.IsFull() {
			v |= bit << 16
		}
		if sm.RX.IsEmpty() {
			v |= bit << 8
		}
		if sm.RX.IsFull() {
			v |= bit
		}
	}
	return v
}

func (f *PIOFacade) fdebug() uint32 {
	var v uint32
	for i := 0; i < pio.SMCount; i++ {
		bit := uint32(1) << uint(i)
		sm := f.block.SMs[i]
		if sm.TX.Stall {
			v |= bit << 24
		}
		if sm.TX.Over {
			v |= bit << 16
		}
		if sm.RX.Under {
			v |= bit << 8
		}
		if sm.RX.Stall {
			v |= bit
		}
	}
	return v
}

func (f *PIOFacade) flevel() uint32 {
	var v uint32
	for i := 0; i < pio.SMCount; i++ {
		sm := f.block.SMs[i]
		byteVal := uint32(sm.TX.Level()&0xf) | uint32(sm.RX.Level()&0xf)<<4
		v |= byteVal << uint(8*i)
	}
	return v
}

func fifoIndex(offset, base uint32) (int, bool) {
	if offset < base || offset >= base+4*pio.SMCount {
		return 0, false
	}
	return int((offset - base) / 4), true
}

// readSM dispatches a per-SM register offset (CLKDIV/EXECCTRL/SHIFTCTRL/
// ADDR/INSTR/PINCTRL) to the right StateMachine.
func (f *PIOFacade) readSM(offset uint32) (uint32, bool) {
	if offset < offSM0 || offset >= uint32(offINTR) {
		return 0, false
	}
	idx := (offset - offSM0) / smStride
	sm := f.block.SMs[idx]
	switch (offset - offSM0) % smStride {
	case smClkdivOff:
		return sm.ClkDiv, true
	case smExecCtrlOff:
		return sm.ExecCtrl, true
	case smShiftCtrlOff:
		return sm.ShiftCtrl, true
	case smAddrOff:
		return uint32(sm.PC), true
	case smInstrOff:
		return uint32(sm.LastInstr()), true
	case smPinCtrlOff:
		return sm.PinCtrl, true
	}
	return 0, false
}

func (f *PIOFacade) writeSM(offset uint32, mode accessMode, value uint32) bool {
	if offset < offSM0 || offset >= uint32(offINTR) {
		return false
	}
	idx := (offset - offSM0) / smStride
	sm := f.block.SMs[idx]
	switch (offset - offSM0) % smStride {
	case smClkdivOff:
		sm.ClkDiv = applyWrite(sm.ClkDiv, value, mode)
	case smExecCtrlOff:
		sm.ExecCtrl = applyWrite(sm.ExecCtrl, value, mode)
	case smShiftCtrlOff:
		sm.ShiftCtrl = applyWrite(sm.ShiftCtrl, value, mode)
	case smAddrOff:
		// read-only
	case smInstrOff:
		sm.Exec(uint16(value))
	case smPinCtrlOff:
		sm.PinCtrl = applyWrite(sm.PinCtrl, value, mode)
	default:
		return false
	}
	return true
}
