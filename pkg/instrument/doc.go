// Package instrument emits the instruction sequences that log values at
// instrumentation points of a JVM method: method entry and exit,
// arguments, return values, field and array accesses and exceptions.
//
// Each sequence copies or loads the value of interest without disturbing
// what the original code still needs on the operand stack, converts the
// copy to a String through the sink's toString overload for its sort, and
// calls a fixed static method of the logging sink.
//
// The sink's entry points are resolved once, by NewRegistry or the
// process-wide Init, against a declared Surface. Emission never fails for
// configuration reasons after that. It fails only on input outside the
// closed sets it knows: a value type outside the ten recognized sorts
// (ErrUnknownType), an invalid Action or a foreign Event.
//
// Verify replays an emitted probe on a bytecode.Simulator to check that it
// leaves the operand stack as the original code expects.
//
// Duplicate and swap variants are chosen by the combined slot widths of the
// values involved (see widthPattern), never by their logical type.
package instrument
