package pio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddProgramFindsFreeOffset(t *testing.T) {
	b := NewBlock()
	prog := []uint16{0x0001, 0x0002, 0x0003}

	off1, err := b.AddProgram(prog, -1)
	require.NoError(t, err)
	assert.Equal(t, uint8(MemorySize-3), off1, "findOffsetForProgram packs from the top down")

	off2, err := b.AddProgram(prog, -1)
	require.NoError(t, err)
	assert.Less(t, int(off2), int(off1))
}

func TestAddProgramAtOffsetRejectsOverlap(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.AddProgramAtOffset([]uint16{1, 2, 3}, 0, 0))
	err := b.AddProgramAtOffset([]uint16{4, 5}, 1, 1)
	assert.Error(t, err)
}

func TestAddProgramPatchesJMPTargets(t *testing.T) {
	b := NewBlock()
	prog := []uint16{EncodeJmp(0, JmpAlways)}
	require.NoError(t, b.AddProgramAtOffset(prog, 5, 5))
	assert.Equal(t, EncodeJmp(5, JmpAlways), b.Memory[5], "a non-relocatable program's JMP targets are rebased to its load offset")
}

func TestClearProgramSectionFillsSelfTraps(t *testing.T) {
	b := NewBlock()
	require.NoError(t, b.AddProgramAtOffset([]uint16{1, 2, 3}, 0, 0))
	b.ClearProgramSection(0, 3)
	for i := uint8(0); i < 3; i++ {
		assert.Equal(t, EncodeJmp(i, JmpAlways), b.Memory[i])
	}
	// cleared space is usable again
	assert.NoError(t, b.AddProgramAtOffset([]uint16{9}, 0, 0))
}

// TestTwoPhaseTickIsolation runs SM0 alone (SM1 is configured on the same
// pin but disabled) and checks that its `set pins, 0` is not committed by
// Phase0 and leaves pin 0 low after Phase1. Cross-SM arbitration on a
// contested pin is covered by TestGPIOCrossSMArbitrationHigherIndexWins.
func TestTwoPhaseTickIsolation(t *testing.T) {
	b := NewBlock()
	sm0, sm1 := b.SMs[0], b.SMs[1]
	sm0.SetSetPins(0, 1)
	sm1.SetSetPins(0, 1)
	sm0.SetWrap(0, 0)
	sm1.SetWrap(0, 0)
	b.Memory[0] = EncodeSet(SrcDestPins, 0) // sm0 drives pin0 low
	sm0.SetEnabled(true)
	sm1.Enabled = false // sm1 contributes no request this tick

	b.Phase0()
	assert.False(t, b.GPIO.DbgPadout()&1 != 0, "Phase0 alone must not commit any drive request")
	b.Phase1()
	assert.False(t, b.GPIO.DbgPadout()&1 != 0)
}

func TestSMStatusReflectsFIFOLevels(t *testing.T) {
	b := NewBlock()
	status := b.SMStatus()
	assert.True(t, status.TxNotFull[0])
	assert.False(t, status.RxNotEmpty[0])

	b.SMs[0].RX.Push(42)
	status = b.SMStatus()
	assert.True(t, status.RxNotEmpty[0])
}
