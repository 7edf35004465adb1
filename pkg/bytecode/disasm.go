package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing.
func (l *Listing) Disassemble() string {
	var sb strings.Builder

	if l.Name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", l.Name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions\n", len(l.Code)))

	for i, in := range l.Code {
		sb.WriteString(fmt.Sprintf("%04d  %s\n", i, in))
	}
	return sb.String()
}

// DisassembleToLines returns one line per instruction, without offsets.
func (l *Listing) DisassembleToLines() []string {
	lines := make([]string, len(l.Code))
	for i, in := range l.Code {
		lines[i] = in.String()
	}
	return lines
}
