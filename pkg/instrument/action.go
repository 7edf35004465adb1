package instrument

import (
	"fmt"
	"strings"
)

// Action distinguishes a read from a write at a field or array access.
// The sink receives it as a constant of its action enum.
type Action uint8

const (
	Read Action = iota
	Write
)

// String returns the name of the enum constant the action maps to.
func (a Action) String() string {
	switch a {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// Valid reports whether a is Read or Write.
func (a Action) Valid() bool {
	return a == Read || a == Write
}

// ParseAction accepts "read" or "write" in any case.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}
