package bytecode

// Sink receives instructions in order. Implementations append; an emitter
// never reads back what it wrote.
type Sink interface {
	Emit(in Instruction)
}

// Listing is an in-memory, append-only instruction sequence. It is the
// reference Sink used by tests and tools.
type Listing struct {
	// Name labels the listing in disassembly (usually the method id).
	Name string `cbor:"name,omitempty"`

	// Code holds the instructions in emission order.
	Code []Instruction `cbor:"code"`
}

// NewListing creates an empty listing.
func NewListing(name string) *Listing {
	return &Listing{
		Name: name,
		Code: make([]Instruction, 0, 16),
	}
}

// Emit appends an instruction.
func (l *Listing) Emit(in Instruction) {
	l.Code = append(l.Code, in)
}

// Instructions returns a copy of the emitted instructions.
func (l *Listing) Instructions() []Instruction {
	out := make([]Instruction, len(l.Code))
	copy(out, l.Code)
	return out
}

// Opcodes returns the opcode of each emitted instruction.
func (l *Listing) Opcodes() []Opcode {
	ops := make([]Opcode, len(l.Code))
	for i, in := range l.Code {
		ops[i] = in.Op
	}
	return ops
}

// Len returns the number of instructions.
func (l *Listing) Len() int {
	return len(l.Code)
}

// Truncate drops every instruction from n onward. Callers use it to
// discard a partially emitted probe after an emission error.
func (l *Listing) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(l.Code) {
		l.Code = l.Code[:n]
	}
}
