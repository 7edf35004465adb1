// Package bytecode models the slice of the JVM instruction set that logging
// instrumentation touches: opcodes, type descriptors, decoded instructions,
// an append-only Listing sink and a slot-level operand-stack Simulator.
//
// # Slots and widths
//
// The JVM operand stack is measured in slots. long and double values
// occupy two adjacent slots; every other value occupies one. The untyped
// stack instructions (pop, pop2, dup, dup_x1, dup_x2, dup2, dup2_x1,
// dup2_x2, swap) operate on slots, not values, so the right variant
// depends on the widths of the values involved:
//
//	dup      copy 1 slot                   ..., v -> ..., v, v
//	dup_x1   copy 1 slot, insert 1 down    ..., w, v -> ..., v, w, v
//	dup_x2   copy 1 slot, insert 2 down    ..., W, v -> ..., v, W, v
//	dup2     copy 2 slots                  ..., V -> ..., V, V
//	dup2_x1  copy 2 slots, insert 1 down   ..., w, V -> ..., V, w, V
//	dup2_x2  copy 2 slots, insert 2 down   ..., W, V -> ..., V, W, V
//
// (capital letters are two-slot values). An instruction that would cut a
// two-slot value in half is invalid; the Simulator reports it as
// ErrSplitValue.
//
// # Sinks
//
// Emitters write through the Sink interface. Listing is the in-memory
// implementation; it disassembles in javap style and round-trips through
// canonical CBOR (MarshalListing / UnmarshalListing) so emitted probes can
// be cached or handed to a class writer in another process.
package bytecode
