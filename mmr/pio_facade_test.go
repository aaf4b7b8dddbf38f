package mmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannystaple/rp2040pio-emulator/pio"
)

const testBase = uint32(0x50200000)

func newTestFacade() (*pio.Block, *PIOFacade) {
	b := pio.NewBlock()
	return b, NewPIOFacade(b, testBase, "PIO0")
}

func TestPIOFacadeProvidesWindow(t *testing.T) {
	_, f := newTestFacade()
	assert.True(t, f.Provides(testBase))
	assert.True(t, f.Provides(testBase+windowSize-1))
	assert.False(t, f.Provides(testBase+windowSize))
	assert.False(t, f.Provides(testBase-1))
}

func TestPIOFacadeFSTATReflectsFIFOState(t *testing.T) {
	b, f := newTestFacade()
	v := f.Read(testBase + offFSTAT)
	assert.Equal(t, uint32(0x0f000f00), v&0x0f000f00, "every SM's TX starts empty and RX starts empty")

	b.SMs[0].TX.Push(1)
	v = f.Read(testBase + offFSTAT)
	assert.Equal(t, uint32(0), v&(1<<24), "SM0 TX no longer reports empty")
}

// TestPIOFacadeFDEBUGWriteOnceClearIsIdempotent is spec.md §8 testable
// property 4: a second identical FDEBUG clear write is a no-op.
func TestPIOFacadeFDEBUGWriteOnceClearIsIdempotent(t *testing.T) {
	b, f := newTestFacade()
	b.SMs[0].TX.Stall = true

	f.Write(testBase+offFDEBUG, 1<<24)
	assert.False(t, b.SMs[0].TX.Stall)

	f.Write(testBase+offFDEBUG, 1<<24) // repeat: nothing left to clear
	assert.False(t, b.SMs[0].TX.Stall)
}

func TestPIOFacadeFLEVELPacksPerSMNibbles(t *testing.T) {
	b, f := newTestFacade()
	b.SMs[0].TX.Push(1)
	b.SMs[0].TX.Push(2)
	b.SMs[1].RX.Push(1)

	v := f.Read(testBase + offFLEVEL)
	assert.Equal(t, uint32(2), v&0x0f, "SM0's TX level sits in the low nibble of byte 0")
	assert.Equal(t, uint32(1), (v>>12)&0x0f, "SM1's RX level sits in the high nibble of byte 1")
}

func TestPIOFacadeDBGCFGINFO(t *testing.T) {
	_, f := newTestFacade()
	v := f.Read(testBase + offDbgCfgInfo)
	assert.Equal(t, uint32(pio.MemorySize)<<16|uint32(pio.SMCount)<<8|uint32(pio.FIFODepth), v)
}

func TestPIOFacadeCTRLEnableAndSelfClearingRestart(t *testing.T) {
	b, f := newTestFacade()
	f.Write(testBase+offCTRL, 0x1) // enable SM0
	assert.True(t, b.SMs[0].Enabled)

	b.SMs[0].X = 42
	f.Write(testBase+offCTRL, 0x1|(0x1<<4)) // keep enabled, restart SM0
	assert.Equal(t, uint32(0), b.SMs[0].X, "the restart strobe bit must have fired")

	v := f.Read(testBase + offCTRL)
	assert.Equal(t, uint32(0x1), v, "the restart bits self-clear and are never read back set")
}

func TestPIOFacadeTXFWriteOnlyRXFReadOnly(t *testing.T) {
	b, f := newTestFacade()
	f.Write(testBase+offTXF0, 0xdeadbeef)
	word, ok := b.SMs[0].TX.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(0xdeadbeef), word)
	assert.Equal(t, uint32(0), f.Read(testBase+offTXF0), "TXFx reads back 0, it is write-only on real silicon")

	b.SMs[0].RX.Push(0xcafef00d)
	assert.Equal(t, uint32(0xcafef00d), f.Read(testBase+offRXF0))
	f.Write(testBase+offRXF0, 123) // RXFx writes are a no-op
	_, ok = b.SMs[0].RX.Pop()
	assert.False(t, ok, "the write above must not have enqueued anything")
}

func TestPIOFacadeInstructionMemoryReadWrite(t *testing.T) {
	b, f := newTestFacade()
	f.Write(testBase+offInstrMem0+4, 0xBEEF)
	assert.Equal(t, uint16(0xBEEF), b.Memory[1])
	assert.Equal(t, uint32(0xBEEF), f.Read(testBase+offInstrMem0+4))
}

func TestPIOFacadeSMInstrWriteForcesExec(t *testing.T) {
	b, f := newTestFacade()
	instrOff := offSM0 + smInstrOff
	f.Write(testBase+instrOff, uint32(pio.EncodeNOP()))

	b.SMs[0].SetEnabled(true)
	b.Tick()
	v := f.Read(testBase + instrOff)
	assert.Equal(t, uint32(pio.EncodeNOP()), v, "SMx_INSTR echoes back the last-executed instruction word")
}

func TestPIOFacadeIRQRegisterClearAndForce(t *testing.T) {
	b, f := newTestFacade()
	f.Write(testBase+offIRQForce, 0x05)
	assert.Equal(t, uint32(0x05), f.Read(testBase+offIRQ))

	f.Write(testBase+offIRQ, 0x01) // write-1-to-clear
	assert.Equal(t, uint32(0x04), f.Read(testBase+offIRQ))
	assert.True(t, b.IRQ.IsSet(2))
}

func TestPIOFacadeINTEINTFINTS(t *testing.T) {
	b, f := newTestFacade()
	b.IRQ.Set(0)
	f.Write(testBase+uint32(offIRQ0INTE), 0x0100) // enable the raw-flag-0 bit (bit 8)
	assert.Equal(t, uint32(1<<8), f.Read(testBase+uint32(offIRQ0INTS)))

	f.Write(testBase+uint32(offIRQ0INTF), 0x0002)
	assert.Equal(t, uint32(1<<8|1<<1), f.Read(testBase+uint32(offIRQ0INTS)))
}
