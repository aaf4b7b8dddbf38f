package pio

import "fmt"

// Instr is the decoded form of a 16-bit PIO instruction word: the
// mechanical inverse of the Encode* functions in instr.go. The teacher
// has no decoder of its own (hardware only ever executes programs the
// host already assembled); this is new code grounded on the same
// opcode/field layout constants instr.go defines. See SPEC_FULL.md §4.
type Instr struct {
	Kind InstrKind
	Raw  uint16

	Delay        uint8
	SideSet      uint8
	SideSetValid bool

	// JMP
	JmpCond JmpCond
	Addr    uint8

	// WAIT
	WaitPolarity bool
	WaitSrc      WaitSource
	WaitPin      uint8 // valid for GPIO/PIN sources
	WaitIRQIndex uint8 // valid for IRQ source
	WaitIRQRel   bool

	// IN / OUT / SET share the count-or-data 5-bit field.
	SrcDest SrcDest
	Count   uint8 // IN/OUT: 0 means 32. SET: literal 0..31 data.

	// PUSH / PULL
	IfFullOrEmpty bool
	Block         bool

	// MOV
	MovDest SrcDest
	MovOp   MovOp
	MovSrc  SrcDest

	// IRQ
	IRQClear bool
	IRQWait  bool
	IRQIndex uint8
	IRQRel   bool
}

// Decode parses a 16-bit instruction word into an Instr, extracting the
// delay/side-set slot per cfg. It returns a *DecodeError (never a panic)
// for any reserved field per spec.md §4.E/§7: a reserved JMP condition
// does not exist (all 8 encodings of the 3-bit field are valid, so JMP
// cannot fail to decode), but reserved WAIT sources, reserved MOV ops,
// and WAIT/IRQ index bit 3 set are all rejected.
func Decode(word uint16, cfg SideSetConfig) (Instr, error) {
	raw5 := uint8((word >> 8) & 0x1f)
	delay, side, valid := splitDelaySideSet(raw5, cfg)
	arg1 := uint8((word >> 5) & 0b111)
	arg2 := uint8(word & 0x1f)

	instr := Instr{
		Raw:          word,
		Delay:        delay,
		SideSet:      side,
		SideSetValid: valid,
	}

	switch majorInstrBits(word) {
	case instrBitsJMP:
		instr.Kind = InstrJMP
		instr.JmpCond = JmpCond(arg1)
		instr.Addr = arg2
	case instrBitsWAIT:
		instr.Kind = InstrWAIT
		instr.WaitPolarity = arg1&0b100 != 0
		src := WaitSource(arg1 & 0b011)
		if src == waitSrcReserved {
			return instr, &DecodeError{Word: word, Reason: "WAIT: reserved source 3"}
		}
		instr.WaitSrc = src
		if src == WaitSrcIRQ {
			if arg2&0x08 != 0 {
				return instr, &DecodeError{Word: word, Reason: "WAIT IRQ: index bit 3 reserved, must be 0"}
			}
			instr.WaitIRQRel = arg2&0x10 != 0
			instr.WaitIRQIndex = arg2 & 0x07
		} else {
			instr.WaitPin = arg2
		}
	case instrBitsIN:
		instr.Kind = InstrIN
		sd := SrcDest(arg1)
		if sd == 4 || sd == 5 {
			return instr, &DecodeError{Word: word, Reason: fmt.Sprintf("IN: reserved source %d", sd)}
		}
		instr.SrcDest = sd
		instr.Count = arg2
	case instrBitsOUT:
		instr.Kind = InstrOUT
		instr.SrcDest = SrcDest(arg1)
		instr.Count = arg2
	case instrBitsPUSH, instrBitsPULL:
		if word&0x0080 != 0 {
			instr.Kind = InstrPULL
		} else {
			instr.Kind = InstrPUSH
		}
		if arg2 != 0 {
			return instr, &DecodeError{Word: word, Reason: "PUSH/PULL: reserved nonzero low bits"}
		}
		instr.IfFullOrEmpty = arg1&0b10 != 0
		instr.Block = arg1&0b01 != 0
	case instrBitsMOV:
		instr.Kind = InstrMOV
		instr.MovDest = SrcDest(arg1)
		if instr.MovDest == 3 {
			return instr, &DecodeError{Word: word, Reason: "MOV: reserved destination 3"}
		}
		instr.MovOp = MovOp((arg2 >> 3) & 0b11)
		if instr.MovOp == movOpReserved {
			return instr, &DecodeError{Word: word, Reason: "MOV: reserved operation 3"}
		}
		instr.MovSrc = SrcDest(arg2 & 0b111)
		if instr.MovSrc == 4 {
			return instr, &DecodeError{Word: word, Reason: "MOV: reserved source 4"}
		}
	case instrBitsIRQ:
		instr.Kind = InstrIRQ
		if arg1 == 3 {
			return instr, &DecodeError{Word: word, Reason: "IRQ: reserved arg1 3"}
		}
		instr.IRQClear = arg1 == 2
		instr.IRQWait = arg1 == 1
		if arg2&0x08 != 0 {
			return instr, &DecodeError{Word: word, Reason: "IRQ: index bit 3 reserved, must be 0"}
		}
		instr.IRQRel = arg2&0x10 != 0
		instr.IRQIndex = arg2 & 0x07
	case instrBitsSET:
		instr.Kind = InstrSET
		sd := SrcDest(arg1)
		if sd == 3 || sd >= 5 {
			return instr, &DecodeError{Word: word, Reason: fmt.Sprintf("SET: reserved destination %d", sd)}
		}
		instr.SrcDest = sd
		instr.Count = arg2
	}
	return instr, nil
}

// Encode re-encodes a decoded Instr back into its 16-bit word,
// reassembling the delay/side-set slot per cfg. Used to verify the
// round-trip testable property (spec.md §8 property 3).
func (instr Instr) Encode(cfg SideSetConfig) uint16 {
	var base uint16
	switch instr.Kind {
	case InstrJMP:
		base = EncodeJmp(instr.Addr, instr.JmpCond)
	case InstrWAIT:
		pin := instr.WaitPin
		if instr.WaitSrc == WaitSrcIRQ {
			pin = instr.WaitIRQIndex
		}
		base = EncodeWait(instr.WaitPolarity, instr.WaitSrc, pin, instr.WaitIRQRel)
	case InstrIN:
		base = EncodeIn(instr.SrcDest, instr.Count)
	case InstrOUT:
		base = EncodeOut(instr.SrcDest, instr.Count)
	case InstrPUSH:
		base = EncodePush(instr.IfFullOrEmpty, instr.Block)
	case InstrPULL:
		base = EncodePull(instr.IfFullOrEmpty, instr.Block)
	case InstrMOV:
		base = EncodeMov(instr.MovDest, instr.MovOp, instr.MovSrc)
	case InstrIRQ:
		base = EncodeIRQ(instr.IRQClear, instr.IRQWait, instr.IRQRel, instr.IRQIndex)
	case InstrSET:
		base = EncodeSet(instr.SrcDest, instr.Count)
	}
	raw5 := joinDelaySideSet(cfg, instr.Delay, instr.SideSet, instr.SideSetValid)
	return (base &^ 0x1f00) | (uint16(raw5) << 8)
}

var srcDestNames = map[SrcDest]string{0: "pins", 1: "x", 2: "y", 3: "null"}
var outDestNames = map[SrcDest]string{0: "pins", 1: "x", 2: "y", 3: "null", 4: "pindirs", 5: "pc", 6: "isr", 7: "exec"}
var movSrcNames = map[SrcDest]string{0: "pins", 1: "x", 2: "y", 3: "null", 5: "status", 6: "isr", 7: "osr"}
var movDestNames = map[SrcDest]string{0: "pins", 1: "x", 2: "y", 4: "exec", 5: "pc", 6: "isr", 7: "osr"}
var setDestNames = map[SrcDest]string{0: "pins", 1: "x", 2: "y", 4: "pindirs"}

var jmpCondNames = map[JmpCond]string{
	JmpAlways: "", JmpXZero: "!x", JmpXNZeroDec: "x--", JmpYZero: "!y",
	JmpYNZeroDec: "y--", JmpXNotEqualY: "x!=y", JmpPinInput: "pin", JmpOSRNotEmpty: "!osre",
}

// Disassemble renders a decoded Instr as PIO assembly text, pairing the
// Assembler fluent encoder (spec.md §4 implies a textual form via
// testable property 3, `assemble(disassemble(w)) == w`).
func Disassemble(instr Instr) string {
	var body string
	switch instr.Kind {
	case InstrJMP:
		cond := jmpCondNames[instr.JmpCond]
		if cond == "" {
			body = fmt.Sprintf("jmp %d", instr.Addr)
		} else {
			body = fmt.Sprintf("jmp %s, %d", cond, instr.Addr)
		}
	case InstrWAIT:
		pol := 0
		if instr.WaitPolarity {
			pol = 1
		}
		switch instr.WaitSrc {
		case WaitSrcGPIO:
			body = fmt.Sprintf("wait %d gpio %d", pol, instr.WaitPin)
		case WaitSrcPIN:
			body = fmt.Sprintf("wait %d pin %d", pol, instr.WaitPin)
		case WaitSrcIRQ:
			rel := ""
			if instr.WaitIRQRel {
				rel = " rel"
			}
			body = fmt.Sprintf("wait %d irq %d%s", pol, instr.WaitIRQIndex, rel)
		}
	case InstrIN:
		body = fmt.Sprintf("in %s, %d", srcDestName(srcDestNames, instr.SrcDest), normCount(instr.Count))
	case InstrOUT:
		body = fmt.Sprintf("out %s, %d", srcDestName(outDestNames, instr.SrcDest), normCount(instr.Count))
	case InstrPUSH:
		body = fmt.Sprintf("push %s %s", ifWord(instr.IfFullOrEmpty, "iffull"), blockWord(instr.Block))
	case InstrPULL:
		body = fmt.Sprintf("pull %s %s", ifWord(instr.IfFullOrEmpty, "ifempty"), blockWord(instr.Block))
	case InstrMOV:
		op := ""
		switch instr.MovOp {
		case MovOpInvert:
			op = "~"
		case MovOpBitReverse:
			op = "::"
		}
		body = fmt.Sprintf("mov %s, %s%s", srcDestName(movDestNames, instr.MovDest), op, srcDestName(movSrcNames, instr.MovSrc))
	case InstrIRQ:
		verb := "set"
		if instr.IRQClear {
			verb = "clear"
		} else if instr.IRQWait {
			verb = "wait"
		}
		rel := ""
		if instr.IRQRel {
			rel = " rel"
		}
		body = fmt.Sprintf("irq %s %d%s", verb, instr.IRQIndex, rel)
	case InstrSET:
		body = fmt.Sprintf("set %s, %d", srcDestName(setDestNames, instr.SrcDest), instr.Count)
	}
	if instr.SideSetValid {
		body = fmt.Sprintf("%-24s side %d", body, instr.SideSet)
	}
	if instr.Delay > 0 {
		body = fmt.Sprintf("%-24s [%d]", body, instr.Delay)
	}
	return body
}

func srcDestName(names map[SrcDest]string, sd SrcDest) string {
	if n, ok := names[sd]; ok {
		return n
	}
	return fmt.Sprintf("?%d", sd)
}

func normCount(n uint8) uint8 {
	if n == 0 {
		return 32
	}
	return n
}

func ifWord(b bool, word string) string {
	if b {
		return word
	}
	return ""
}

func blockWord(b bool) string {
	if b {
		return "block"
	}
	return "noblock"
}
