package pio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeRoundTrip exercises spec.md §8 testable property 3:
// encode(decode(w)) reproduces w for every opcode, with and without a
// configured side-set slot.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	noSide := SideSetConfig{}
	withSide := SideSetConfig{Count: 2, PinDirs: false}
	optionalSide := SideSetConfig{Count: 3, OptionalEnable: true}

	words := []struct {
		name string
		word uint16
		cfg  SideSetConfig
	}{
		{"jmp", EncodeJmp(17, JmpXNZeroDec), noSide},
		{"wait gpio", EncodeWait(true, WaitSrcGPIO, 5, false), noSide},
		{"wait irq rel", EncodeWait(false, WaitSrcIRQ, 3, true), withSide},
		{"in x", EncodeIn(SrcDestX, 8), noSide},
		{"out pindirs", EncodeOut(SrcDestPinDirs, 0), withSide},
		{"push block", EncodePush(true, true), noSide},
		{"pull noblock", EncodePull(false, false), optionalSide},
		{"mov invert", EncodeMov(SrcDestY, MovOpInvert, SrcDestX), noSide},
		{"irq set rel", EncodeIRQ(false, false, true, 2), optionalSide},
		{"set pins", EncodeSet(SrcDestPins, 21), noSide},
	}

	for _, tc := range words {
		t.Run(tc.name, func(t *testing.T) {
			instr, err := Decode(tc.word, tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.word, instr.Encode(tc.cfg), "round trip mismatch for %s", tc.name)
		})
	}
}

func TestDecodeReservedFieldsError(t *testing.T) {
	cfg := SideSetConfig{}

	// WAIT source 3 is reserved.
	word := encodeArgs(instrBitsWAIT, 0b011, 0)
	_, err := Decode(word, cfg)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)

	// MOV operation 3 is reserved.
	word = EncodeMov(SrcDestX, MovOp(3), SrcDestY)
	_, err = Decode(word, cfg)
	require.Error(t, err)

	// JMP has no reserved condition: all 8 encodings decode cleanly.
	for c := JmpCond(0); c < 8; c++ {
		_, err := Decode(EncodeJmp(0, c), cfg)
		assert.NoError(t, err)
	}
}

func TestAssemblerSideAndDelay(t *testing.T) {
	asm := Assembler{SideSet: SideSetConfig{Count: 2}}
	w := asm.Set(SrcDestPins, 5).Side(3).Delay(4).Encode()
	instr, err := Decode(w, asm.SideSet)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), instr.SideSet)
	assert.True(t, instr.SideSetValid)
	assert.Equal(t, uint8(4), instr.Delay)
}

func TestClkDivFromFrequency(t *testing.T) {
	whole, frac, err := ClkDivFromFrequency(1_000_000, 125_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint16(125), whole)
	assert.Equal(t, uint8(0), frac)
}
