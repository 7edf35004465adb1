package bytecode

import "fmt"

// Opcode is a JVM instruction opcode. Values match the class-file encoding.
// Only the instructions the logging emitter writes, plus the ones that
// consume its output at an instrumentation site, are defined.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x14)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpLdc Opcode = 0x12 // Push constant: ldc <const>

	// ========================================================================
	// Local variable loads (0x15-0x19)
	// ========================================================================

	OpILoad Opcode = 0x15 // Push int-class local (boolean, byte, char, short, int)
	OpLLoad Opcode = 0x16 // Push long local (two slots)
	OpFLoad Opcode = 0x17 // Push float local
	OpDLoad Opcode = 0x18 // Push double local (two slots)
	OpALoad Opcode = 0x19 // Push reference local

	// ========================================================================
	// Array loads (0x2E-0x35)
	// ========================================================================

	OpIALoad Opcode = 0x2E
	OpLALoad Opcode = 0x2F
	OpFALoad Opcode = 0x30
	OpDALoad Opcode = 0x31
	OpAALoad Opcode = 0x32
	OpBALoad Opcode = 0x33
	OpCALoad Opcode = 0x34
	OpSALoad Opcode = 0x35

	// ========================================================================
	// Array stores (0x4F-0x56)
	// ========================================================================

	OpIAStore Opcode = 0x4F
	OpLAStore Opcode = 0x50
	OpFAStore Opcode = 0x51
	OpDAStore Opcode = 0x52
	OpAAStore Opcode = 0x53
	OpBAStore Opcode = 0x54
	OpCAStore Opcode = 0x55
	OpSAStore Opcode = 0x56

	// ========================================================================
	// Stack manipulation (0x57-0x5F)
	// ========================================================================

	OpPop    Opcode = 0x57 // Pop one slot
	OpPop2   Opcode = 0x58 // Pop two slots
	OpDup    Opcode = 0x59 // ..., v -> ..., v, v
	OpDupX1  Opcode = 0x5A // ..., w, v -> ..., v, w, v
	OpDupX2  Opcode = 0x5B // ..., x, w, v -> ..., v, x, w, v
	OpDup2   Opcode = 0x5C // copy top two slots
	OpDup2X1 Opcode = 0x5D // copy top two slots under the third
	OpDup2X2 Opcode = 0x5E // copy top two slots under the fourth
	OpSwap   Opcode = 0x5F // ..., w, v -> ..., v, w

	// ========================================================================
	// Return (0xAC-0xB1)
	// ========================================================================

	OpIReturn Opcode = 0xAC
	OpLReturn Opcode = 0xAD
	OpFReturn Opcode = 0xAE
	OpDReturn Opcode = 0xAF
	OpAReturn Opcode = 0xB0
	OpReturn  Opcode = 0xB1

	// ========================================================================
	// Fields and calls (0xB2-0xBF)
	// ========================================================================

	OpGetStatic    Opcode = 0xB2 // Push static field: getstatic <owner.name:desc>
	OpPutStatic    Opcode = 0xB3
	OpGetField     Opcode = 0xB4
	OpPutField     Opcode = 0xB5
	OpInvokeStatic Opcode = 0xB8 // Call static method: invokestatic <owner.name desc>
	OpAThrow       Opcode = 0xBF
)

// OperandKind says which Instruction field carries an opcode's operand.
type OperandKind uint8

const (
	OperandNone     OperandKind = iota
	OperandLocal                // Instruction.Local
	OperandConstant             // Instruction.Const
	OperandMember               // Instruction.Member
)

// OpcodeInfo provides metadata about each opcode for disassembly and
// stack simulation.
type OpcodeInfo struct {
	Name    string      // Mnemonic as printed by javap
	Operand OperandKind // Operand carried by the instruction
	Sort    Sort        // Value sort moved by typed loads, stores and returns
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"nop", OperandNone, SortVoid},
	OpLdc: {"ldc", OperandConstant, SortVoid},

	// Local loads
	OpILoad: {"iload", OperandLocal, SortInt},
	OpLLoad: {"lload", OperandLocal, SortLong},
	OpFLoad: {"fload", OperandLocal, SortFloat},
	OpDLoad: {"dload", OperandLocal, SortDouble},
	OpALoad: {"aload", OperandLocal, SortObject},

	// Array loads
	OpIALoad: {"iaload", OperandNone, SortInt},
	OpLALoad: {"laload", OperandNone, SortLong},
	OpFALoad: {"faload", OperandNone, SortFloat},
	OpDALoad: {"daload", OperandNone, SortDouble},
	OpAALoad: {"aaload", OperandNone, SortObject},
	OpBALoad: {"baload", OperandNone, SortByte},
	OpCALoad: {"caload", OperandNone, SortChar},
	OpSALoad: {"saload", OperandNone, SortShort},

	// Array stores
	OpIAStore: {"iastore", OperandNone, SortInt},
	OpLAStore: {"lastore", OperandNone, SortLong},
	OpFAStore: {"fastore", OperandNone, SortFloat},
	OpDAStore: {"dastore", OperandNone, SortDouble},
	OpAAStore: {"aastore", OperandNone, SortObject},
	OpBAStore: {"bastore", OperandNone, SortByte},
	OpCAStore: {"castore", OperandNone, SortChar},
	OpSAStore: {"sastore", OperandNone, SortShort},

	// Stack manipulation
	OpPop:    {"pop", OperandNone, SortVoid},
	OpPop2:   {"pop2", OperandNone, SortVoid},
	OpDup:    {"dup", OperandNone, SortVoid},
	OpDupX1:  {"dup_x1", OperandNone, SortVoid},
	OpDupX2:  {"dup_x2", OperandNone, SortVoid},
	OpDup2:   {"dup2", OperandNone, SortVoid},
	OpDup2X1: {"dup2_x1", OperandNone, SortVoid},
	OpDup2X2: {"dup2_x2", OperandNone, SortVoid},
	OpSwap:   {"swap", OperandNone, SortVoid},

	// Return
	OpIReturn: {"ireturn", OperandNone, SortInt},
	OpLReturn: {"lreturn", OperandNone, SortLong},
	OpFReturn: {"freturn", OperandNone, SortFloat},
	OpDReturn: {"dreturn", OperandNone, SortDouble},
	OpAReturn: {"areturn", OperandNone, SortObject},
	OpReturn:  {"return", OperandNone, SortVoid},

	// Fields and calls
	OpGetStatic:    {"getstatic", OperandMember, SortVoid},
	OpPutStatic:    {"putstatic", OperandMember, SortVoid},
	OpGetField:     {"getfield", OperandMember, SortVoid},
	OpPutField:     {"putfield", OperandMember, SortVoid},
	OpInvokeStatic: {"invokestatic", OperandMember, SortVoid},
	OpAThrow:       {"athrow", OperandNone, SortObject},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0x..)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandKind returns which operand the opcode carries.
func (op Opcode) OperandKind() OperandKind {
	return GetOpcodeInfo(op).Operand
}

// IsLoad returns true for the typed local-variable loads.
func (op Opcode) IsLoad() bool {
	return op >= OpILoad && op <= OpALoad
}

// IsArrayLoad returns true for the typed array element loads.
func (op Opcode) IsArrayLoad() bool {
	return op >= OpIALoad && op <= OpSALoad
}

// IsArrayStore returns true for the typed array element stores.
func (op Opcode) IsArrayStore() bool {
	return op >= OpIAStore && op <= OpSAStore
}

// IsStackOp returns true for the untyped pop, dup and swap instructions.
func (op Opcode) IsStackOp() bool {
	return op >= OpPop && op <= OpSwap
}

// IsReturn returns true if this opcode leaves the method.
func (op Opcode) IsReturn() bool {
	return (op >= OpIReturn && op <= OpReturn) || op == OpAThrow
}

// LoadOpcode returns the local-variable load for a value type: iload for the
// int-class sorts, the wide loads for long and double, aload for references.
// ok is false for void and unrecognized sorts.
func LoadOpcode(t Type) (op Opcode, ok bool) {
	switch t.Sort() {
	case SortBoolean, SortByte, SortChar, SortShort, SortInt:
		return OpILoad, true
	case SortFloat:
		return OpFLoad, true
	case SortLong:
		return OpLLoad, true
	case SortDouble:
		return OpDLoad, true
	case SortArray, SortObject:
		return OpALoad, true
	default:
		return OpNop, false
	}
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
