package bytecode

import (
	"errors"
	"fmt"
	"strings"
)

// Stack simulation errors.
var (
	ErrStackUnderflow   = errors.New("operand stack underflow")
	ErrSplitValue       = errors.New("instruction splits a two-slot value")
	ErrCategoryMismatch = errors.New("value width does not match")
	ErrUnsupportedOp    = errors.New("opcode not supported by simulator")
)

// Value is one logical entry on a simulated operand stack.
type Value struct {
	Label string // Where the value came from, e.g. "local1" or "toString()"
	Sort  Sort
}

// Width returns the number of slots the value occupies.
func (v Value) Width() int {
	return v.Sort.Width()
}

// slot is one machine word of the operand stack. A width-2 value is a low
// slot followed by a high slot.
type slot struct {
	val  Value
	high bool
}

// shuffle describes a pop/dup/swap instruction as slot arithmetic: copy the
// top n slots and insert the copy m slots further down. Every boundary the
// instruction touches must fall between values.
type shuffle struct {
	copy  int
	depth int
}

var shuffles = map[Opcode]shuffle{
	OpDup:    {1, 0},
	OpDupX1:  {1, 1},
	OpDupX2:  {1, 2},
	OpDup2:   {2, 0},
	OpDup2X1: {2, 1},
	OpDup2X2: {2, 2},
}

// Simulator tracks slot-level operand-stack contents through a sequence of
// instructions, enforcing the JVM's value-category rules. It is used to
// check that instrumentation leaves the original stack intact.
type Simulator struct {
	slots []slot
}

// NewSimulator creates a simulator with an empty stack.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Push places a value of type t on the stack.
func (s *Simulator) Push(label string, t Type) {
	v := Value{Label: label, Sort: t.Sort()}
	s.slots = append(s.slots, slot{val: v})
	if v.Width() == 2 {
		s.slots = append(s.slots, slot{val: v, high: true})
	}
}

// Depth returns the number of occupied slots.
func (s *Simulator) Depth() int {
	return len(s.slots)
}

// Values returns the logical values from bottom to top.
func (s *Simulator) Values() []Value {
	var out []Value
	for _, sl := range s.slots {
		if !sl.high {
			out = append(out, sl.val)
		}
	}
	return out
}

// Labels returns the value labels from bottom to top.
func (s *Simulator) Labels() []string {
	vals := s.Values()
	labels := make([]string, len(vals))
	for i, v := range vals {
		labels[i] = v.Label
	}
	return labels
}

// String renders the stack bottom to top.
func (s *Simulator) String() string {
	return "[" + strings.Join(s.Labels(), " ") + "]"
}

// Emit applies in and panics on a stack error. It lets a Simulator stand in
// as a Sink in tests that expect every instruction to be valid.
func (s *Simulator) Emit(in Instruction) {
	if err := s.Apply(in); err != nil {
		panic(fmt.Sprintf("simulator: %s: %v", in, err))
	}
}

// Run applies each instruction in order, stopping at the first error.
func (s *Simulator) Run(code []Instruction) error {
	for i, in := range code {
		if err := s.Apply(in); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, in, err)
		}
	}
	return nil
}

// Apply simulates a single instruction.
func (s *Simulator) Apply(in Instruction) error {
	op := in.Op
	info := GetOpcodeInfo(op)

	switch {
	case op == OpNop:
		return nil

	case op == OpLdc:
		s.Push(in.Const.String(), in.Const.Type())
		return nil

	case op.IsLoad():
		s.Push(fmt.Sprintf("local%d", in.Local), TypeOf(info.Sort))
		return nil

	case op.IsArrayLoad():
		if _, err := s.pop(1); err != nil { // index
			return err
		}
		arr, err := s.pop(1)
		if err != nil {
			return err
		}
		s.Push(arr.Label+"[]", TypeOf(info.Sort))
		return nil

	case op.IsArrayStore():
		if _, err := s.pop(info.Sort.Width()); err != nil {
			return err
		}
		if _, err := s.pop(1); err != nil {
			return err
		}
		_, err := s.pop(1)
		return err

	case op == OpPop:
		return s.drop(1)

	case op == OpPop2:
		return s.drop(2)

	case op == OpSwap:
		return s.swap()

	case op >= OpDup && op <= OpDup2X2:
		sh := shuffles[op]
		return s.dup(sh.copy, sh.depth)

	case op == OpReturn:
		return nil

	case op.IsReturn():
		_, err := s.pop(info.Sort.Width())
		return err

	case op == OpGetStatic:
		t, err := ParseType(in.Member.Desc)
		if err != nil {
			return err
		}
		s.Push(in.Member.Name, t)
		return nil

	case op == OpPutStatic:
		t, err := ParseType(in.Member.Desc)
		if err != nil {
			return err
		}
		_, err = s.pop(t.Width())
		return err

	case op == OpGetField:
		t, err := ParseType(in.Member.Desc)
		if err != nil {
			return err
		}
		obj, err := s.pop(1)
		if err != nil {
			return err
		}
		s.Push(obj.Label+"."+in.Member.Name, t)
		return nil

	case op == OpPutField:
		t, err := ParseType(in.Member.Desc)
		if err != nil {
			return err
		}
		if _, err := s.pop(t.Width()); err != nil {
			return err
		}
		_, err = s.pop(1)
		return err

	case op == OpInvokeStatic:
		return s.invoke(in.Member)
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedOp, op)
}

// invoke pops the call's arguments, checking each against its parameter
// width, and pushes the result.
func (s *Simulator) invoke(m MemberRef) error {
	params, ret, err := ParseMethodDescriptor(m.Desc)
	if err != nil {
		return err
	}
	for i := len(params) - 1; i >= 0; i-- {
		if _, err := s.pop(params[i].Width()); err != nil {
			return fmt.Errorf("argument %d of %s: %w", i, m.Name, err)
		}
	}
	if ret.Sort() != SortVoid {
		s.Push(m.Name+"()", ret)
	}
	return nil
}

// pop removes exactly one value of the given width.
func (s *Simulator) pop(width int) (Value, error) {
	n := len(s.slots)
	if n < width || width == 0 {
		return Value{}, ErrStackUnderflow
	}
	top := s.slots[n-1]
	if top.val.Width() != width {
		return Value{}, fmt.Errorf("%w: want %d slot(s), top is %s (%s)",
			ErrCategoryMismatch, width, top.val.Label, top.val.Sort)
	}
	s.slots = s.slots[:n-width]
	return top.val, nil
}

// drop removes n slots without regard to how many values they hold,
// as pop and pop2 do.
func (s *Simulator) drop(n int) error {
	if err := s.checkBoundary(n); err != nil {
		return err
	}
	s.slots = s.slots[:len(s.slots)-n]
	return nil
}

func (s *Simulator) swap() error {
	if err := s.checkBoundary(1); err != nil {
		return err
	}
	if err := s.checkBoundary(2); err != nil {
		return err
	}
	n := len(s.slots)
	s.slots[n-1], s.slots[n-2] = s.slots[n-2], s.slots[n-1]
	return nil
}

func (s *Simulator) dup(n, m int) error {
	if err := s.checkBoundary(n); err != nil {
		return err
	}
	if m > 0 {
		if err := s.checkBoundary(n + m); err != nil {
			return err
		}
	}
	size := len(s.slots)
	top := make([]slot, n)
	copy(top, s.slots[size-n:])

	at := size - n - m
	out := make([]slot, 0, size+n)
	out = append(out, s.slots[:at]...)
	out = append(out, top...)
	out = append(out, s.slots[at:]...)
	s.slots = out
	return nil
}

// checkBoundary verifies that the top d slots can be separated from the
// rest of the stack without cutting a two-slot value in half.
func (s *Simulator) checkBoundary(d int) error {
	size := len(s.slots)
	if d > size {
		return ErrStackUnderflow
	}
	if d < size && s.slots[size-d].high {
		return fmt.Errorf("%w: %s at depth %d", ErrSplitValue, s.slots[size-d].val.Label, d)
	}
	return nil
}
