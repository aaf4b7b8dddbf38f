package mmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLocalSplitsRegionIntoAccessModes(t *testing.T) {
	base := uint32(0x50200000)

	off, mode := decodeLocal(base, base+0x04)
	assert.Equal(t, uint32(0x04), off)
	assert.Equal(t, modeNormal, mode)

	off, mode = decodeLocal(base, base+regionSize+0x04)
	assert.Equal(t, uint32(0x04), off)
	assert.Equal(t, modeXOR, mode)

	off, mode = decodeLocal(base, base+2*regionSize+0x04)
	assert.Equal(t, modeSet, mode)

	off, mode = decodeLocal(base, base+3*regionSize+0x04)
	assert.Equal(t, modeClear, mode)
}

// TestApplyWriteXORTwiceIsANoOp is spec.md §8 testable property 5: two
// identical XOR-aliased writes to the same register cancel out.
func TestApplyWriteXORTwiceIsANoOp(t *testing.T) {
	cur := uint32(0x0000ff00)
	once := applyWrite(cur, 0x00ff00ff, modeXOR)
	twice := applyWrite(once, 0x00ff00ff, modeXOR)
	assert.Equal(t, cur, twice)
}

func TestApplyWriteSetAndClear(t *testing.T) {
	cur := uint32(0b1010)
	assert.Equal(t, uint32(0b1110), applyWrite(cur, 0b0100, modeSet))
	assert.Equal(t, uint32(0b1000), applyWrite(cur, 0b0010, modeClear))
	assert.Equal(t, uint32(0xffffffff), applyWrite(cur, 0xffffffff, modeNormal))
}
