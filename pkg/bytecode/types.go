package bytecode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescriptor is returned when a field or method descriptor is malformed.
var ErrBadDescriptor = errors.New("malformed descriptor")

// Sort is the category of a JVM type. The ordering follows the class-file
// tooling convention so sorts can be compared and iterated.
type Sort uint8

const (
	SortVoid Sort = iota
	SortBoolean
	SortChar
	SortByte
	SortShort
	SortInt
	SortFloat
	SortLong
	SortDouble
	SortArray
	SortObject

	// SortInvalid is reported for descriptors that name no known category.
	SortInvalid Sort = 0xFF
)

var sortNames = [...]string{
	SortVoid:    "void",
	SortBoolean: "boolean",
	SortChar:    "char",
	SortByte:    "byte",
	SortShort:   "short",
	SortInt:     "int",
	SortFloat:   "float",
	SortLong:    "long",
	SortDouble:  "double",
	SortArray:   "array",
	SortObject:  "object",
}

// String returns the Java spelling of the sort.
func (s Sort) String() string {
	if int(s) < len(sortNames) {
		return sortNames[s]
	}
	return fmt.Sprintf("Sort(%d)", s)
}

// Width returns the number of operand-stack slots a value of this sort
// occupies: 2 for long and double, 0 for void, 1 otherwise.
func (s Sort) Width() int {
	switch s {
	case SortLong, SortDouble:
		return 2
	case SortVoid, SortInvalid:
		return 0
	default:
		return 1
	}
}

// ValueSorts lists the ten sorts a value on the operand stack can have.
func ValueSorts() []Sort {
	return []Sort{
		SortBoolean, SortByte, SortChar, SortShort, SortInt,
		SortLong, SortFloat, SortDouble, SortArray, SortObject,
	}
}

// Type is a JVM type identified by its descriptor, e.g. "I", "[J" or
// "Ljava/lang/String;".
type Type struct {
	desc string
}

// Primitive and common reference types.
var (
	Void    = Type{"V"}
	Boolean = Type{"Z"}
	Char    = Type{"C"}
	Byte    = Type{"B"}
	Short   = Type{"S"}
	Int     = Type{"I"}
	Float   = Type{"F"}
	Long    = Type{"J"}
	Double  = Type{"D"}

	ObjectType    = Type{"Ljava/lang/Object;"}
	StringType    = Type{"Ljava/lang/String;"}
	ThrowableType = Type{"Ljava/lang/Throwable;"}
)

// TypeOf returns the type for sort s: the primitive for primitive sorts,
// java/lang/Object for SortObject and Object[] for SortArray.
func TypeOf(s Sort) Type {
	switch s {
	case SortVoid:
		return Void
	case SortBoolean:
		return Boolean
	case SortChar:
		return Char
	case SortByte:
		return Byte
	case SortShort:
		return Short
	case SortInt:
		return Int
	case SortFloat:
		return Float
	case SortLong:
		return Long
	case SortDouble:
		return Double
	case SortArray:
		return ArrayOf(ObjectType)
	case SortObject:
		return ObjectType
	default:
		return Type{}
	}
}

// ObjectOf returns the reference type for an internal class name such as
// "java/lang/String".
func ObjectOf(internalName string) Type {
	return Type{"L" + internalName + ";"}
}

// ArrayOf returns the one-dimensional array type with the given element type.
func ArrayOf(elem Type) Type {
	return Type{"[" + elem.desc}
}

// RawType wraps a descriptor without validating it. Sort reports
// SortInvalid if the descriptor is malformed.
func RawType(desc string) Type {
	return Type{desc}
}

// ParseType validates a field descriptor and returns its type.
func ParseType(desc string) (Type, error) {
	n, err := scanType(desc, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(desc) {
		return Type{}, fmt.Errorf("%w: trailing data in %q", ErrBadDescriptor, desc)
	}
	return Type{desc}, nil
}

// Descriptor returns the type's descriptor.
func (t Type) Descriptor() string {
	return t.desc
}

// String returns the descriptor.
func (t Type) String() string {
	return t.desc
}

// Sort returns the category of the type.
func (t Type) Sort() Sort {
	if t.desc == "" {
		return SortInvalid
	}
	switch t.desc[0] {
	case 'V':
		return sortIfLen(t.desc, SortVoid)
	case 'Z':
		return sortIfLen(t.desc, SortBoolean)
	case 'C':
		return sortIfLen(t.desc, SortChar)
	case 'B':
		return sortIfLen(t.desc, SortByte)
	case 'S':
		return sortIfLen(t.desc, SortShort)
	case 'I':
		return sortIfLen(t.desc, SortInt)
	case 'F':
		return sortIfLen(t.desc, SortFloat)
	case 'J':
		return sortIfLen(t.desc, SortLong)
	case 'D':
		return sortIfLen(t.desc, SortDouble)
	case '[':
		if n, err := scanType(t.desc, 0); err == nil && n == len(t.desc) {
			return SortArray
		}
	case 'L':
		if n, err := scanType(t.desc, 0); err == nil && n == len(t.desc) {
			return SortObject
		}
	}
	return SortInvalid
}

func sortIfLen(desc string, s Sort) Sort {
	if len(desc) != 1 {
		return SortInvalid
	}
	return s
}

// Width returns the number of operand-stack slots the type occupies.
func (t Type) Width() int {
	return t.Sort().Width()
}

// InternalName returns the class name of an object type
// ("java/lang/String"), or the descriptor for any other type.
func (t Type) InternalName() string {
	if t.Sort() == SortObject {
		return t.desc[1 : len(t.desc)-1]
	}
	return t.desc
}

// Elem returns the element type of an array type.
func (t Type) Elem() Type {
	if t.Sort() != SortArray {
		return Type{}
	}
	return Type{t.desc[1:]}
}

// ParseMethodDescriptor splits a method descriptor such as
// "(ILjava/lang/String;)V" into its parameter types and return type.
func ParseMethodDescriptor(desc string) (params []Type, ret Type, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, Type{}, fmt.Errorf("%w: %q does not start with '('", ErrBadDescriptor, desc)
	}
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		end, err := scanType(desc, pos)
		if err != nil {
			return nil, Type{}, err
		}
		p := Type{desc[pos:end]}
		if p.Sort() == SortVoid {
			return nil, Type{}, fmt.Errorf("%w: void parameter in %q", ErrBadDescriptor, desc)
		}
		params = append(params, p)
		pos = end
	}
	if pos >= len(desc) {
		return nil, Type{}, fmt.Errorf("%w: unterminated parameter list in %q", ErrBadDescriptor, desc)
	}
	pos++ // ')'
	end, err := scanType(desc, pos)
	if err != nil {
		return nil, Type{}, err
	}
	if end != len(desc) {
		return nil, Type{}, fmt.Errorf("%w: trailing data in %q", ErrBadDescriptor, desc)
	}
	return params, Type{desc[pos:end]}, nil
}

// MethodDescriptor builds a method descriptor from parameter and return types.
func MethodDescriptor(ret Type, params ...Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.desc)
	}
	sb.WriteByte(')')
	sb.WriteString(ret.desc)
	return sb.String()
}

// ArgumentSlots returns the number of operand-stack slots consumed by the
// parameters of a method descriptor.
func ArgumentSlots(desc string) (int, error) {
	params, _, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range params {
		n += p.Width()
	}
	return n, nil
}

// scanType returns the end offset of the single type descriptor starting at pos.
func scanType(desc string, pos int) (int, error) {
	if pos >= len(desc) {
		return 0, fmt.Errorf("%w: unexpected end of %q", ErrBadDescriptor, desc)
	}
	switch desc[pos] {
	case 'V', 'Z', 'C', 'B', 'S', 'I', 'F', 'J', 'D':
		return pos + 1, nil
	case '[':
		start := pos
		for pos < len(desc) && desc[pos] == '[' {
			pos++
		}
		if pos-start > 255 {
			return 0, fmt.Errorf("%w: too many array dimensions in %q", ErrBadDescriptor, desc)
		}
		if pos < len(desc) && desc[pos] == 'V' {
			return 0, fmt.Errorf("%w: void array element in %q", ErrBadDescriptor, desc)
		}
		return scanType(desc, pos)
	case 'L':
		semi := strings.IndexByte(desc[pos:], ';')
		if semi <= 1 {
			return 0, fmt.Errorf("%w: bad class name in %q", ErrBadDescriptor, desc)
		}
		return pos + semi + 1, nil
	default:
		return 0, fmt.Errorf("%w: unknown type code %q in %q", ErrBadDescriptor, desc[pos], desc)
	}
}
