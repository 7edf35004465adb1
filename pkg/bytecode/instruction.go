package bytecode

import (
	"fmt"
	"strconv"
)

// ConstKind tags the value held by a Constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstString
)

// Constant is an ldc operand: an int or a string.
type Constant struct {
	Kind ConstKind `cbor:"k"`
	Int  int32     `cbor:"i,omitempty"`
	Str  string    `cbor:"s,omitempty"`
}

// IntConst returns an int constant.
func IntConst(v int32) Constant {
	return Constant{Kind: ConstInt, Int: v}
}

// StringConst returns a string constant.
func StringConst(s string) Constant {
	return Constant{Kind: ConstString, Str: s}
}

// Type returns the type of the value ldc pushes for this constant.
func (c Constant) Type() Type {
	if c.Kind == ConstString {
		return StringType
	}
	return Int
}

// String renders the constant the way javap does.
func (c Constant) String() string {
	if c.Kind == ConstString {
		return strconv.Quote(c.Str)
	}
	return strconv.Itoa(int(c.Int))
}

// MemberRef identifies a field or method at the instruction level:
// owning class internal name, member name and descriptor.
type MemberRef struct {
	Owner string `cbor:"o"`
	Name  string `cbor:"n"`
	Desc  string `cbor:"d"`
}

// String renders the reference as owner.name:desc.
func (m MemberRef) String() string {
	return m.Owner + "." + m.Name + ":" + m.Desc
}

// Instruction is a single decoded instruction. Which operand field is
// meaningful is given by Op.OperandKind().
type Instruction struct {
	Op     Opcode    `cbor:"op"`
	Local  int       `cbor:"l,omitempty"`
	Const  Constant  `cbor:"c,omitempty"`
	Member MemberRef `cbor:"m,omitempty"`
}

// Insn returns an operand-less instruction.
func Insn(op Opcode) Instruction {
	return Instruction{Op: op}
}

// Ldc returns an ldc instruction pushing c.
func Ldc(c Constant) Instruction {
	return Instruction{Op: OpLdc, Const: c}
}

// LdcString returns an ldc of a string literal.
func LdcString(s string) Instruction {
	return Ldc(StringConst(s))
}

// LdcInt returns an ldc of an int literal.
func LdcInt(v int32) Instruction {
	return Ldc(IntConst(v))
}

// VarInsn returns a local-variable instruction.
func VarInsn(op Opcode, index int) Instruction {
	return Instruction{Op: op, Local: index}
}

// MemberInsn returns a field access or call instruction.
func MemberInsn(op Opcode, owner, name, desc string) Instruction {
	return Instruction{Op: op, Member: MemberRef{Owner: owner, Name: name, Desc: desc}}
}

// String renders the instruction in javap style, e.g. "iload 1" or
// "invokestatic Logger.logReturn:(Ljava/lang/String;)V".
func (in Instruction) String() string {
	switch in.Op.OperandKind() {
	case OperandLocal:
		return fmt.Sprintf("%s %d", in.Op, in.Local)
	case OperandConstant:
		return fmt.Sprintf("%s %s", in.Op, in.Const)
	case OperandMember:
		return fmt.Sprintf("%s %s", in.Op, in.Member)
	default:
		return in.Op.String()
	}
}
