package instrument

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/stacklog/pkg/bytecode"
)

func testEmitter(t *testing.T) *Emitter {
	t.Helper()
	return NewEmitter(testRegistry(t))
}

func call(name, desc string) bytecode.Instruction {
	return bytecode.MemberInsn(bytecode.OpInvokeStatic, testOwner, name, desc)
}

func toStringCall(param string) bytecode.Instruction {
	return call("toString", "("+param+")Ljava/lang/String;")
}

func action(name string) bytecode.Instruction {
	return bytecode.MemberInsn(bytecode.OpGetStatic, testAction, name, "L"+testAction+";")
}

var (
	logMethodEntry = call("logMethodEntry", "(Ljava/lang/String;)V")
	logMethodExit  = call("logMethodExit", "(Ljava/lang/String;Ljava/lang/String;)V")
	logArgument    = call("logArgument", "(ILjava/lang/String;)V")
	logReturn      = call("logReturn", "(Ljava/lang/String;)V")
	logField       = call("logField", "(Ljava/lang/String;Ljava/lang/String;L"+testAction+";)V")
	logArray       = call("logArray", "(Ljava/lang/String;ILjava/lang/String;L"+testAction+";)V")
	logException   = call("logException", "(Ljava/lang/Throwable;)V")
	logString      = call("log", "(Ljava/lang/String;)V")
)

// conversionParam is the toString parameter descriptor each sort binds to.
var conversionParam = map[bytecode.Sort]string{
	bytecode.SortBoolean: "Z",
	bytecode.SortByte:    "B",
	bytecode.SortChar:    "C",
	bytecode.SortShort:   "S",
	bytecode.SortInt:     "I",
	bytecode.SortLong:    "J",
	bytecode.SortFloat:   "F",
	bytecode.SortDouble:  "D",
	bytecode.SortArray:   "Ljava/lang/Object;",
	bytecode.SortObject:  "Ljava/lang/Object;",
}

func emitted(t *testing.T, fn func(sink bytecode.Sink) error) []bytecode.Instruction {
	t.Helper()
	l := bytecode.NewListing("")
	if err := fn(l); err != nil {
		t.Fatalf("emit: %v", err)
	}
	return l.Instructions()
}

func TestEmitterRegistry(t *testing.T) {
	reg := testRegistry(t)
	if got := NewEmitter(reg).Registry(); got != reg {
		t.Errorf("Registry() = %p, want %p", got, reg)
	}
}

func TestEmitMethodEntry(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error { return e.EmitMethodEntry(s, "Foo.bar(I)V") })
	want := []bytecode.Instruction{bytecode.LdcString("Foo.bar(I)V"), logMethodEntry}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitMethodExit(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error { return e.EmitMethodExit(s, "Foo.bar(I)V", "x1") })
	want := []bytecode.Instruction{
		bytecode.LdcString("Foo.bar(I)V"),
		bytecode.LdcString("x1"),
		logMethodExit,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exit mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitArgumentInt(t *testing.T) {
	e := testEmitter(t)
	l := bytecode.NewListing("")

	slots, err := e.EmitArgument(l, 1, bytecode.Int)
	if err != nil {
		t.Fatalf("EmitArgument: %v", err)
	}
	if slots != 1 {
		t.Errorf("slots = %d, want 1", slots)
	}

	want := []bytecode.Instruction{
		bytecode.LdcInt(1),
		bytecode.VarInsn(bytecode.OpILoad, 1),
		toStringCall("I"),
		logArgument,
	}
	if diff := cmp.Diff(want, l.Instructions()); diff != "" {
		t.Errorf("argument mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitArgumentAllSorts(t *testing.T) {
	e := testEmitter(t)

	loads := map[bytecode.Sort]bytecode.Opcode{
		bytecode.SortBoolean: bytecode.OpILoad,
		bytecode.SortByte:    bytecode.OpILoad,
		bytecode.SortChar:    bytecode.OpILoad,
		bytecode.SortShort:   bytecode.OpILoad,
		bytecode.SortInt:     bytecode.OpILoad,
		bytecode.SortLong:    bytecode.OpLLoad,
		bytecode.SortFloat:   bytecode.OpFLoad,
		bytecode.SortDouble:  bytecode.OpDLoad,
		bytecode.SortArray:   bytecode.OpALoad,
		bytecode.SortObject:  bytecode.OpALoad,
	}

	for _, s := range bytecode.ValueSorts() {
		t.Run(s.String(), func(t *testing.T) {
			l := bytecode.NewListing("")
			slots, err := e.EmitArgument(l, 3, bytecode.TypeOf(s))
			if err != nil {
				t.Fatalf("EmitArgument: %v", err)
			}

			wantSlots := 1
			if s == bytecode.SortLong || s == bytecode.SortDouble {
				wantSlots = 2
			}
			if slots != wantSlots {
				t.Errorf("slots = %d, want %d", slots, wantSlots)
			}

			want := []bytecode.Instruction{
				bytecode.LdcInt(3),
				bytecode.VarInsn(loads[s], 3),
				toStringCall(conversionParam[s]),
				logArgument,
			}
			if diff := cmp.Diff(want, l.Instructions()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			// The probe must leave the operand stack as it found it.
			sim := bytecode.NewSimulator()
			if err := sim.Run(l.Code); err != nil {
				t.Fatalf("simulate: %v", err)
			}
			if sim.Depth() != 0 {
				t.Errorf("stack depth after probe = %d, want 0", sim.Depth())
			}
		})
	}
}

func TestEmitArguments(t *testing.T) {
	e := testEmitter(t)
	l := bytecode.NewListing("")

	// instance method: slot 0 is this, then J (1-2), I (3), D (4-5), Object (6)
	if err := e.EmitArguments(l, "(JIDLjava/lang/Object;)V", 1); err != nil {
		t.Fatalf("EmitArguments: %v", err)
	}

	var loads []bytecode.Instruction
	for _, in := range l.Code {
		if in.Op.IsLoad() {
			loads = append(loads, in)
		}
	}
	want := []bytecode.Instruction{
		bytecode.VarInsn(bytecode.OpLLoad, 1),
		bytecode.VarInsn(bytecode.OpILoad, 3),
		bytecode.VarInsn(bytecode.OpDLoad, 4),
		bytecode.VarInsn(bytecode.OpALoad, 6),
	}
	if diff := cmp.Diff(want, loads); diff != "" {
		t.Errorf("slot bookkeeping mismatch (-want +got):\n%s", diff)
	}

	if err := e.EmitArguments(l, "(I", 0); !errors.Is(err, bytecode.ErrBadDescriptor) {
		t.Errorf("bad descriptor error = %v", err)
	}
}

func TestEmitReturnAllSorts(t *testing.T) {
	e := testEmitter(t)

	for _, s := range bytecode.ValueSorts() {
		t.Run(s.String(), func(t *testing.T) {
			typ := bytecode.TypeOf(s)
			got := emitted(t, func(sink bytecode.Sink) error { return e.EmitReturn(sink, typ) })

			dup := bytecode.OpDup
			if typ.Width() == 2 {
				dup = bytecode.OpDup2
			}
			want := []bytecode.Instruction{
				bytecode.Insn(dup),
				toStringCall(conversionParam[s]),
				logReturn,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			sim := bytecode.NewSimulator()
			sim.Push("ret", typ)
			if err := sim.Run(got); err != nil {
				t.Fatalf("simulate: %v", err)
			}
			if diff := cmp.Diff([]string{"ret"}, sim.Labels()); diff != "" {
				t.Errorf("return value consumed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmitReturnDouble(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error { return e.EmitReturn(s, bytecode.Double) })
	want := []bytecode.Instruction{bytecode.Insn(bytecode.OpDup2), toStringCall("D"), logReturn}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	sim := bytecode.NewSimulator()
	sim.Push("ret", bytecode.Double)
	if err := sim.Run(got); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if sim.Depth() != 2 {
		t.Errorf("depth after probe = %d, want 2", sim.Depth())
	}
	if err := sim.Apply(bytecode.Insn(bytecode.OpDReturn)); err != nil {
		t.Errorf("dreturn after probe: %v", err)
	}
}

func TestEmitReturnVoid(t *testing.T) {
	e := testEmitter(t)
	got := emitted(t, func(s bytecode.Sink) error { return e.EmitReturn(s, bytecode.Void) })
	if len(got) != 0 {
		t.Errorf("void return emitted %v", got)
	}
}

func TestEmitFieldWriteLong(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error {
		return e.EmitField(s, "count", bytecode.Long, Write)
	})
	want := []bytecode.Instruction{
		bytecode.Insn(bytecode.OpDup2X1),
		toStringCall("J"),
		bytecode.LdcString("count"),
		action("WRITE"),
		logField,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	// ..., obj, value  ->  probe  ->  ..., value, obj  ->  swap  ->  putfield
	sim := bytecode.NewSimulator()
	sim.Push("obj", bytecode.ObjectOf("a/Foo"))
	sim.Push("value", bytecode.Long)
	if err := sim.Run(got); err != nil {
		t.Fatalf("simulate probe: %v", err)
	}
	if diff := cmp.Diff([]string{"value", "obj"}, sim.Labels()); diff != "" {
		t.Fatalf("after probe (-want +got):\n%s", diff)
	}

	restore := bytecode.NewListing("")
	if err := SwapOneWordAndTwoWords(restore, bytecode.Long); err != nil {
		t.Fatal(err)
	}
	restore.Emit(bytecode.MemberInsn(bytecode.OpPutField, "a/Foo", "count", "J"))
	if err := sim.Run(restore.Code); err != nil {
		t.Fatalf("simulate putfield: %v", err)
	}
	if sim.Depth() != 0 {
		t.Errorf("depth after putfield = %d, want 0 (%s)", sim.Depth(), sim)
	}
}

func TestEmitFieldAllSorts(t *testing.T) {
	e := testEmitter(t)

	for _, s := range bytecode.ValueSorts() {
		for _, a := range []Action{Read, Write} {
			typ := bytecode.TypeOf(s)
			got := emitted(t, func(sink bytecode.Sink) error { return e.EmitField(sink, "f", typ, a) })

			wantDup := bytecode.OpDupX1
			if typ.Width() == 2 {
				wantDup = bytecode.OpDup2X1
			}
			if got[0].Op != wantDup {
				t.Errorf("%s %s: first op = %s, want %s", s, a, got[0].Op, wantDup)
			}
			if got[3] != action(a.String()) {
				t.Errorf("%s %s: action = %s", s, a, got[3])
			}

			sim := bytecode.NewSimulator()
			sim.Push("ctx", bytecode.ObjectType)
			sim.Push("value", typ)
			if err := sim.Run(got); err != nil {
				t.Fatalf("%s %s: simulate: %v", s, a, err)
			}
			if diff := cmp.Diff([]string{"value", "ctx"}, sim.Labels()); diff != "" {
				t.Errorf("%s %s: stack (-want +got):\n%s", s, a, diff)
			}
		}
	}
}

func TestEmitArray(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error { return e.EmitArray(s, Read) })
	want := []bytecode.Instruction{action("READ"), logArray}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// The caller-prepared triple is consumed; what lies below survives.
	sim := bytecode.NewSimulator()
	sim.Push("arr", bytecode.ArrayOf(bytecode.Int))
	sim.Push("arrayText", bytecode.StringType)
	sim.Push("index", bytecode.Int)
	sim.Push("elementText", bytecode.StringType)
	if err := sim.Run(got); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if diff := cmp.Diff([]string{"arr"}, sim.Labels()); diff != "" {
		t.Errorf("stack (-want +got):\n%s", diff)
	}
}

func TestEmitException(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error { return e.EmitException(s) })
	want := []bytecode.Instruction{bytecode.Insn(bytecode.OpDup), logException}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	sim := bytecode.NewSimulator()
	sim.Push("exc", bytecode.ThrowableType)
	if err := sim.Run(append(got, bytecode.Insn(bytecode.OpAThrow))); err != nil {
		t.Fatalf("simulate: %v", err)
	}
}

func TestEmitMessage(t *testing.T) {
	e := testEmitter(t)

	got := emitted(t, func(s bytecode.Sink) error { return e.EmitMessage(s, "hello") })
	want := []bytecode.Instruction{bytecode.LdcString("hello"), logString}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitConvertToString(t *testing.T) {
	e := testEmitter(t)

	for _, s := range bytecode.ValueSorts() {
		got := emitted(t, func(sink bytecode.Sink) error {
			return e.EmitConvertToString(sink, bytecode.TypeOf(s))
		})
		want := []bytecode.Instruction{toStringCall(conversionParam[s])}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", s, diff)
		}
	}
}

func TestEmitUnknownTypeWritesNothing(t *testing.T) {
	e := testEmitter(t)
	bad := []bytecode.Type{bytecode.RawType("Q"), bytecode.RawType(""), bytecode.Void}

	for _, typ := range bad {
		l := bytecode.NewListing("")

		if err := e.EmitConvertToString(l, typ); !errors.Is(err, ErrUnknownType) {
			t.Errorf("EmitConvertToString(%q) error = %v, want ErrUnknownType", typ, err)
		}
		if _, err := e.EmitArgument(l, 0, typ); !errors.Is(err, ErrUnknownType) {
			t.Errorf("EmitArgument(%q) error = %v, want ErrUnknownType", typ, err)
		}
		if err := e.EmitField(l, "f", typ, Read); !errors.Is(err, ErrUnknownType) {
			t.Errorf("EmitField(%q) error = %v, want ErrUnknownType", typ, err)
		}
		if l.Len() != 0 {
			t.Errorf("%q: failed emission wrote %v", typ, l.Code)
		}
	}

	l := bytecode.NewListing("")
	if err := e.EmitReturn(l, bytecode.RawType("Q")); !errors.Is(err, ErrUnknownType) {
		t.Errorf("EmitReturn(Q) error = %v, want ErrUnknownType", err)
	}
	if l.Len() != 0 {
		t.Errorf("failed return probe wrote %v", l.Code)
	}
}

func TestEmitArgumentSlotRange(t *testing.T) {
	e := testEmitter(t)

	for _, index := range []int{-1, 65536, 1 << 40} {
		l := bytecode.NewListing("")
		n, err := e.EmitArgument(l, index, bytecode.Int)
		if !errors.Is(err, ErrBadLocal) {
			t.Errorf("EmitArgument(%d) error = %v, want ErrBadLocal", index, err)
		}
		if n != 0 || l.Len() != 0 {
			t.Errorf("EmitArgument(%d) = %d slots, wrote %v", index, n, l.Code)
		}
	}

	l := bytecode.NewListing("")
	if _, err := e.EmitArgument(l, 65535, bytecode.Int); err != nil {
		t.Errorf("EmitArgument(65535): %v", err)
	}

	// The second long starts past the last slot.
	if err := e.EmitArguments(bytecode.NewListing(""), "(JJ)V", 65534); !errors.Is(err, ErrBadLocal) {
		t.Errorf("EmitArguments overflow error = %v, want ErrBadLocal", err)
	}
}

func TestEmitUnknownAction(t *testing.T) {
	e := testEmitter(t)
	l := bytecode.NewListing("")

	if err := e.EmitField(l, "f", bytecode.Int, Action(9)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("EmitField error = %v, want ErrUnknownAction", err)
	}
	if err := e.EmitArray(l, Action(9)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("EmitArray error = %v, want ErrUnknownAction", err)
	}
	if l.Len() != 0 {
		t.Errorf("failed emission wrote %v", l.Code)
	}
}

type bogusEvent struct{}

func (bogusEvent) Kind() EventKind { return EventKind(99) }
func (bogusEvent) isEvent()        {}

func TestEmitDispatch(t *testing.T) {
	e := testEmitter(t)

	tests := []struct {
		ev    Event
		first bytecode.Opcode
		slots int
	}{
		{MethodEntry{MethodID: "m"}, bytecode.OpLdc, 0},
		{MethodExit{MethodID: "m", ExitID: "0"}, bytecode.OpLdc, 0},
		{Argument{Index: 2, Type: bytecode.Double}, bytecode.OpLdc, 2},
		{Return{Type: bytecode.Int}, bytecode.OpDup, 0},
		{FieldAccess{Name: "f", Type: bytecode.Float, Action: Read}, bytecode.OpDupX1, 0},
		{ArrayAccess{Action: Write}, bytecode.OpGetStatic, 0},
		{Exception{}, bytecode.OpDup, 0},
		{Message{Text: "hi"}, bytecode.OpLdc, 0},
	}

	for _, tt := range tests {
		l := bytecode.NewListing("")
		slots, err := e.Emit(l, tt.ev)
		if err != nil {
			t.Errorf("Emit(%s): %v", tt.ev.Kind(), err)
			continue
		}
		if slots != tt.slots {
			t.Errorf("Emit(%s) slots = %d, want %d", tt.ev.Kind(), slots, tt.slots)
		}
		if l.Len() == 0 || l.Code[0].Op != tt.first {
			t.Errorf("Emit(%s) first op = %v, want %s", tt.ev.Kind(), l.Opcodes(), tt.first)
		}
	}

	if _, err := e.Emit(bytecode.NewListing(""), bogusEvent{}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Emit(bogus) error = %v, want ErrUnknownEvent", err)
	}
}
