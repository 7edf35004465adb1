package instrument

import (
	"fmt"
	"slices"

	"github.com/chazu/stacklog/pkg/bytecode"
)

// frameValue is one operand-stack entry a probe expects to find.
type frameValue struct {
	label string
	typ   bytecode.Type
}

// frame returns the stack a probe for ev runs on, above an untouched
// "below" marker, and the labels it must leave behind.
func frame(ev Event) (before []frameValue, after []string) {
	before = []frameValue{{"below", bytecode.Int}}
	after = []string{"below"}

	switch ev := ev.(type) {
	case Return:
		if ev.Type.Sort() != bytecode.SortVoid {
			before = append(before, frameValue{"value", ev.Type})
			after = append(after, "value")
		}
	case FieldAccess:
		before = append(before, frameValue{"ctx", bytecode.ObjectType}, frameValue{"value", ev.Type})
		after = append(after, "value", "ctx")
	case ArrayAccess:
		before = append(before,
			frameValue{"arrayText", bytecode.StringType},
			frameValue{"index", bytecode.Int},
			frameValue{"elementText", bytecode.StringType})
	case Exception:
		before = append(before, frameValue{"throwable", bytecode.ThrowableType})
		after = append(after, "throwable")
	}
	return before, after
}

// Verify runs code, the probe emitted for ev, on a simulated operand stack
// holding what that kind of probe expects, and checks that the stack it
// leaves is what the original code needs next. Stack errors from the
// simulator are returned as is; a wrong but well-formed result wraps
// ErrStackDisturbed.
func Verify(code []bytecode.Instruction, ev Event) error {
	before, after := frame(ev)

	sim := bytecode.NewSimulator()
	for _, v := range before {
		sim.Push(v.label, v.typ)
	}
	if err := sim.Run(code); err != nil {
		return fmt.Errorf("%s probe: %w", ev.Kind(), err)
	}
	if got := sim.Labels(); !slices.Equal(got, after) {
		return fmt.Errorf("%w: %s probe leaves %s, want %v", ErrStackDisturbed, ev.Kind(), sim, after)
	}
	return nil
}
