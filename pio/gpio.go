package pio

// Direction is a GPIO pin direction.
type Direction uint8

const (
	DirIn Direction = iota
	DirOut
)

const numPins = 32

// pinDriveRequest is one SM's proposal for how it would like to drive a
// range of pins this tick, collected at phase 0 and resolved at phase 1.
// Priority within a single SM is side-set overrides OUT overrides SET
// (spec.md §4.B); across SMs, the higher SM index wins ties on a
// contested pin.
type pinDriveRequest struct {
	active   bool
	base     uint8
	count    uint8
	levels   uint32 // bit i (relative to base) is the level for pin base+i
	hasLevel bool
	dirs     uint32 // bit i is the direction for pin base+i, 1=out
	hasDirs  bool
	priority uint8 // 0=SET, 1=OUT, 2=side-set
}

// GPIOFabric models the 32 GPIO pins shared by every state machine in a
// PIO block: level, direction, input-sync-bypass, and the arbitration of
// which SM (if any) drives a given pin this tick (spec.md §4.B).
type GPIOFabric struct {
	level             uint32
	dir               uint32
	inputSyncBypass   uint32
	sampled           uint32 // phase-0 snapshot of level, what SMs read this tick
	requests          [SMCount]pinDriveRequest
}

// NewGPIOFabric returns a fabric with all pins low and configured as
// inputs.
func NewGPIOFabric() *GPIOFabric { return &GPIOFabric{} }

// SamplePhase0 snapshots the current pin levels for this tick's SMs to
// read; per spec.md §5, SMs observe the previous tick's committed outputs,
// not anything proposed so far this tick.
func (g *GPIOFabric) SamplePhase0() {
	g.sampled = g.level
	for i := range g.requests {
		g.requests[i] = pinDriveRequest{}
	}
}

// GetPin returns the phase-0 sampled level of pin i, i.e. the level last
// committed at phase 1. The input-sync-bypass mask is not consulted: every
// pin reads the same snapshot, and no two-cycle synchronizer delay is
// modeled for pins whose bypass bit is clear.
func (g *GPIOFabric) GetPin(i uint8) bool {
	return bitAt(g.sampled, i)
}

// SetPinLevel directly asserts a pin's level, bypassing SM arbitration.
// Used by tests to drive inputs.
func (g *GPIOFabric) SetPinLevel(i uint8, v bool) {
	g.level = setBit(g.level, i, v)
}

func (g *GPIOFabric) GetDir(i uint8) Direction {
	if bitAt(g.dir, i) {
		return DirOut
	}
	return DirIn
}

func (g *GPIOFabric) SetDir(i uint8, d Direction) {
	g.dir = setBit(g.dir, i, d == DirOut)
}

// InputSyncBypass returns the current bypass mask (bit set = synchronizer
// bypassed for that pin).
func (g *GPIOFabric) InputSyncBypass() uint32 { return g.inputSyncBypass }

// SetInputSyncBypass applies the bypass mask the same way the hardware
// register does: value bits selected by mask replace the corresponding
// bypass bits (spec.md §4.B).
func (g *GPIOFabric) SetInputSyncBypass(mask, value uint32) {
	g.inputSyncBypass = (g.inputSyncBypass &^ mask) | (value & mask)
}

// RequestDrive records SM smIndex's proposal to drive count pins starting
// at base with the given levels/dirs this tick, at the given priority
// (0=SET, 1=OUT, 2=side-set). Multiple calls from the same SM in the same
// tick (e.g. OUT then a side-set) are expected; the highest-priority call
// wins for that SM's own pins.
func (g *GPIOFabric) RequestDrive(smIndex uint8, base, count uint8, levels uint32, hasLevel bool, dirMask uint32, hasDirs bool, priority uint8) {
	r := &g.requests[smIndex]
	if r.active && r.priority > priority {
		return
	}
	*r = pinDriveRequest{
		active:   true,
		base:     base,
		count:    count,
		levels:   levels,
		hasLevel: hasLevel,
		dirs:     dirMask,
		hasDirs:  hasDirs,
		priority: priority,
	}
}

// CommitPhase1 resolves all SMs' drive requests for this tick and commits
// new pin levels/directions. On a pin contested by more than one SM, the
// higher SM index wins (spec.md §4.B).
func (g *GPIOFabric) CommitPhase1() {
	for smIndex := 0; smIndex < SMCount; smIndex++ {
		r := g.requests[smIndex]
		if !r.active {
			continue
		}
		for i := uint8(0); i < r.count; i++ {
			pin := r.base + i
			if pin >= numPins {
				continue
			}
			if r.hasLevel {
				g.level = setBit(g.level, pin, bitAt(r.levels, i))
			}
			if r.hasDirs {
				g.dir = setBit(g.dir, pin, bitAt(r.dirs, i))
			}
		}
	}
}

// DbgPadout mirrors the DBG_PADOUT register: the PIO-commanded output
// level for every pin, regardless of whether it is currently driven as an
// input (spec.md §4.I).
func (g *GPIOFabric) DbgPadout() uint32 { return g.level }

// DbgPadoe mirrors DBG_PADOE: the PIO-commanded output-enable state.
func (g *GPIOFabric) DbgPadoe() uint32 { return g.dir }

func bitAt(v uint32, i uint8) bool { return v&(1<<uint(i))&0xFFFFFFFF != 0 }

func setBit(v uint32, i uint8, set bool) uint32 {
	mask := uint32(1) << uint(i)
	if set {
		return v | mask
	}
	return v &^ mask
}
