package pio

import (
	"strconv"
	"strings"
)

// ParseProgram parses the plain-text program format from spec.md §6: one
// 16-bit hex instruction word per line, with an optional trailing or
// whole-line `//` comment, blank lines ignored. It is a parser only, not
// the interactive loader spec.md excludes — callers feed the returned
// words into Block.AddProgram/AddProgramAtOffset themselves.
func ParseProgram(text string) ([]uint16, error) {
	var words []uint16
	for lineNo, rawLine := range strings.Split(text, "\n") {
		line := rawLine
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "0x")
		line = strings.TrimPrefix(line, "0X")
		word, err := strconv.ParseUint(line, 16, 16)
		if err != nil {
			return nil, &ProgramError{Line: lineNo + 1, Text: rawLine, Err: err}
		}
		words = append(words, uint16(word))
	}
	if len(words) > MemorySize {
		return nil, &ProgramError{Line: len(words), Text: "", Err: ErrOutOfProgramSpace}
	}
	return words, nil
}
