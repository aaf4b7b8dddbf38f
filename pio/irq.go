package pio

// IRQUnit models the 8 block-level IRQ flags and the two host interrupt
// controllers (spec.md §4.G). Grounded on the teacher's GetIRQ/ClearIRQ
// (write-one-to-clear shape, rp2-pio/pio.go) and the irqINTHW{E,F,S}
// register triple in its pioHW struct.
type IRQUnit struct {
	raw uint8 // 8 flags

	inte [2]uint16 // 12-bit each
	intf [2]uint16
}

// Raw returns the current 8-bit raw IRQ flag vector.
func (u *IRQUnit) Raw() uint8 { return u.raw }

// Set raises the given IRQ flag (0..7).
func (u *IRQUnit) Set(idx uint8) { u.raw |= 1 << (idx & 7) }

// IsSet reports whether the given IRQ flag is currently raised.
func (u *IRQUnit) IsSet(idx uint8) bool { return u.raw&(1<<(idx&7)) != 0 }

// ClearMasked clears every flag where mask has a 1 bit, matching the
// IRQ register's write-to-clear semantics.
func (u *IRQUnit) ClearMasked(mask uint8) { u.raw &^= mask }

// Force sets every flag where mask has a 1 bit, matching the IRQ_FORCE
// register.
func (u *IRQUnit) Force(mask uint8) { u.raw |= mask }

// RelIndex maps a state machine-relative IRQ index (spec.md data model
// invariant 5: `rel` addressing maps index i|0x10 to (sm_num+i)&3) to an
// absolute flag index 0..7. Without rel, the low 3 bits of idx are the
// flag. With rel, the result is (idx + smIndex) & 3: bit 2 of idx is
// discarded and a relative index always lands on flags 0..3, matching
// testable property 6.
func RelIndex(smIndex uint8, idx uint8, rel bool) uint8 {
	if !rel {
		return idx & 7
	}
	return (idx&3 + smIndex) & 3
}

// SMStatusBits holds the per-SM TX-not-full/RX-not-empty status that
// pack() places in bits 0..7 of the 12-bit INTR/INTE/INTF/INTS words.
type SMStatusBits struct {
	TxNotFull  [SMCount]bool
	RxNotEmpty [SMCount]bool
}

// pack lays SM status out in the RP2040 INTR/INTS layout:
// bits 0..3 = SM0..3 RX-not-empty, bits 4..7 =
// SM0..3 TX-not-full, bits 8..11 correspond to the 4 lowest block-level
// IRQ flags. INTE/INTF/INTS are therefore 12 bits wide, matching
// spec.md's "12-bit each".
func (s SMStatusBits) pack() uint16 {
	var v uint16
	for i := 0; i < SMCount; i++ {
		if s.RxNotEmpty[i] {
			v |= 1 << uint(i)
		}
		if s.TxNotFull[i] {
			v |= 1 << uint(4+i)
		}
	}
	return v
}

// INTR returns the raw interrupt source word (SM status bits plus the low
// 4 raw IRQ flags), before any INTE/INTF masking — this is the register
// value the datasheet calls INTR.
func (u *IRQUnit) INTR(status SMStatusBits) uint16 {
	return status.pack() | (uint16(u.raw&0x0f) << 8)
}

// INTS computes the masked/forced interrupt status for controller line
// 0 or 1: `INTS = (raw & INTE) | INTF` (spec.md §4.G).
func (u *IRQUnit) INTS(line int, status SMStatusBits) uint16 {
	raw := u.INTR(status)
	return (raw & u.inte[line]) | u.intf[line]
}

func (u *IRQUnit) SetINTE(line int, value uint16) { u.inte[line] = value & 0x0fff }
func (u *IRQUnit) SetINTF(line int, value uint16) { u.intf[line] = value & 0x0fff }
func (u *IRQUnit) GetINTE(line int) uint16         { return u.inte[line] }
func (u *IRQUnit) GetINTF(line int) uint16         { return u.intf[line] }
