package pio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgramHexAndComments(t *testing.T) {
	text := "e001 // set pins, 1\n0x6001\n\n  a042  \n"
	words, err := ParseProgram(text)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xe001, 0x6001, 0xa042}, words)
}

func TestParseProgramMalformedLine(t *testing.T) {
	_, err := ParseProgram("e001\nnot-hex\n")
	require.Error(t, err)
	var pe *ProgramError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
}

func TestParseProgramTooLarge(t *testing.T) {
	text := ""
	for i := 0; i < MemorySize+1; i++ {
		text += "0000\n"
	}
	_, err := ParseProgram(text)
	require.Error(t, err)
}
