// Package mmr implements the datasheet-accurate memory-mapped register
// facade over a pio.Block (spec.md §4.I): the PIOFacade exposes exactly
// the registers a real RP2040 driver would poke, and the ExtendedFacade
// layers an emulator-only debug window (internal scratch registers, PC,
// single-step triggers) on top, adjacent in address space but outside the
// datasheet's own register map.
package mmr

// Facade is a contiguous, labeled region of the address space with
// datasheet-style decode/encode logic (spec.md §6 "Facade"). membus.
// AddressBus dispatches to the first registered Facade whose Provides
// reports true for a given address.
type Facade interface {
	Label() string
	Provides(addr uint32) bool
	Read(addr uint32) uint32
	Write(addr uint32, value uint32)
}

// accessMode is the write-access mode selected by address bits 13:12
// within a facade's local address window (spec.md §6): each facade
// occupies a 16KB alias window, split into four 4KB regions that apply
// the same write to its registers differently. Reads are mode-
// independent; only writes are affected.
type accessMode uint8

const (
	modeNormal accessMode = iota
	modeXOR
	modeSet
	modeClear
)

// windowSize is the size in bytes of one facade's full alias window: four
// 4KB (0x1000) regions selected by address bits 13:12.
const windowSize = 0x4000
const regionSize = 0x1000

func decodeLocal(base, addr uint32) (offset uint32, mode accessMode) {
	local := addr - base
	mode = accessMode((local / regionSize) & 0x3)
	offset = local % regionSize
	return
}

// applyWrite folds value into the current register contents cur according
// to mode, implementing the same normal/XOR/SET/CLEAR aliasing every
// RP2040 peripheral register block uses (spec.md §8 testable property 5:
// two XOR writes of the same value are a no-op).
func applyWrite(cur, value uint32, mode accessMode) uint32 {
	switch mode {
	case modeXOR:
		return cur ^ value
	case modeSet:
		return cur | value
	case modeClear:
		return cur &^ value
	default:
		return value
	}
}
