package instrument

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/stacklog/pkg/bytecode"
)

var log = commonlog.GetLogger("stacklog.instrument")

// maxLocal is the highest local slot a wide load can address.
const maxLocal = 65535

// Emitter appends logging instrumentation to an instruction sink. Every
// Emit method either writes its whole sequence or, on error, writes
// nothing; the sink is only used for the duration of the call.
type Emitter struct {
	reg *Registry
}

// NewEmitter creates an emitter bound to a resolved registry.
func NewEmitter(reg *Registry) *Emitter {
	return &Emitter{reg: reg}
}

// Registry returns the registry the emitter calls through.
func (e *Emitter) Registry() *Registry {
	return e.reg
}

func (e *Emitter) call(sink bytecode.Sink, t Target) {
	sink.Emit(e.reg.Target(t).Instruction())
}

func (e *Emitter) converter(t bytecode.Type) (CallDescriptor, error) {
	c, ok := e.reg.Converter(t.Sort())
	if !ok {
		return CallDescriptor{}, fmt.Errorf("%w: %q (%s)", ErrUnknownType, t.Descriptor(), t.Sort())
	}
	return c, nil
}

func (e *Emitter) pushAction(sink bytecode.Sink, a Action) {
	ref := e.reg.ActionConstant(a)
	sink.Emit(bytecode.MemberInsn(bytecode.OpGetStatic, ref.Owner, ref.Name, ref.Desc))
}

// EmitConvertToString converts the value on top of the stack to a String
// by calling the sink's overload for its sort.
//
//	..., value -> ..., text
func (e *Emitter) EmitConvertToString(sink bytecode.Sink, t bytecode.Type) error {
	c, err := e.converter(t)
	if err != nil {
		return err
	}
	sink.Emit(c.Instruction())
	return nil
}

// EmitMethodEntry logs entry into the method identified by methodID.
//
//	... -> ...
func (e *Emitter) EmitMethodEntry(sink bytecode.Sink, methodID string) error {
	sink.Emit(bytecode.LdcString(methodID))
	e.call(sink, TargetMethodEntry)
	log.Debugf("entry %s", methodID)
	return nil
}

// EmitMethodExit logs the exit path exitID of methodID.
//
//	... -> ...
func (e *Emitter) EmitMethodExit(sink bytecode.Sink, methodID, exitID string) error {
	sink.Emit(bytecode.LdcString(methodID))
	sink.Emit(bytecode.LdcString(exitID))
	e.call(sink, TargetMethodExit)
	log.Debugf("exit %s %s", methodID, exitID)
	return nil
}

// EmitArgument logs the argument held in local slot index. It returns the
// number of local slots the argument occupies (2 for long and double,
// otherwise 1) so the caller can advance to the next argument's slot. An
// index outside 0..65535 is an ErrBadLocal.
//
//	... -> ...
func (e *Emitter) EmitArgument(sink bytecode.Sink, index int, t bytecode.Type) (int, error) {
	if index < 0 || index > maxLocal {
		return 0, fmt.Errorf("%w: argument slot %d", ErrBadLocal, index)
	}
	load, ok := bytecode.LoadOpcode(t)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d has type %q", ErrUnknownType, index, t.Descriptor())
	}
	conv, err := e.converter(t)
	if err != nil {
		return 0, err
	}

	sink.Emit(bytecode.LdcInt(int32(index)))
	sink.Emit(bytecode.VarInsn(load, index))
	sink.Emit(conv.Instruction())
	e.call(sink, TargetArgument)

	log.Debugf("argument %d %s", index, t)
	return t.Width(), nil
}

// EmitReturn logs the value about to be returned. The value is duplicated
// (dup or dup2 by width) so the original still reaches the return
// instruction. A void return emits nothing.
//
//	..., value -> ..., value
func (e *Emitter) EmitReturn(sink bytecode.Sink, t bytecode.Type) error {
	if t.Sort() == bytecode.SortVoid {
		return nil
	}
	conv, err := e.converter(t)
	if err != nil {
		return err
	}

	emitDupUnder(sink, t, 0)
	sink.Emit(conv.Instruction())
	e.call(sink, TargetReturn)

	log.Debugf("return %s", t)
	return nil
}

// EmitField logs a field value sitting on top of a one-slot context value
// (the owning object of a putfield, or whatever consumes the value next).
// The value is copied beneath the context (dup_x1, or dup2_x1 for a wide
// value); the top copy is converted and passed to the sink with the field
// name and action. The surviving value ends up below the context; a put
// site restores field-instruction order with SwapOneWordAndTwoWords(sink, t).
//
//	..., ctx, value -> ..., value, ctx
func (e *Emitter) EmitField(sink bytecode.Sink, name string, t bytecode.Type, a Action) error {
	conv, err := e.converter(t)
	if err != nil {
		return err
	}
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownAction, a)
	}

	emitDupUnder(sink, t, 1)
	sink.Emit(conv.Instruction())
	sink.Emit(bytecode.LdcString(name))
	e.pushAction(sink, a)
	e.call(sink, TargetField)

	log.Debugf("field %s %s %s", name, t, a)
	return nil
}

// EmitArray appends the action constant and the call to the sink's array
// entry point. Unlike EmitField it does not duplicate anything: the caller
// must already have pushed the array text, index and element text, since
// the values to preserve differ between loads and stores.
//
// Field and array logging therefore draw the duplication boundary in
// different places: EmitField copies its own value, EmitArray only
// finishes a sequence the caller began. Verify checks each contract.
//
//	..., arrayText, index, elementText -> ...
func (e *Emitter) EmitArray(sink bytecode.Sink, a Action) error {
	if !a.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownAction, a)
	}
	e.pushAction(sink, a)
	e.call(sink, TargetArray)
	log.Debugf("array %s", a)
	return nil
}

// EmitException logs the throwable on top of the stack, leaving it in
// place for the enclosing rethrow.
//
//	..., throwable -> ..., throwable
func (e *Emitter) EmitException(sink bytecode.Sink) error {
	emitDupUnder(sink, bytecode.ThrowableType, 0)
	e.call(sink, TargetException)
	log.Debug("exception")
	return nil
}

// EmitMessage logs a fixed string.
//
//	... -> ...
func (e *Emitter) EmitMessage(sink bytecode.Sink, text string) error {
	sink.Emit(bytecode.LdcString(text))
	e.call(sink, TargetLog)
	return nil
}

// Emit dispatches ev to its Emit method. The int result is the local slot
// count for Argument events and 0 for every other kind.
func (e *Emitter) Emit(sink bytecode.Sink, ev Event) (int, error) {
	switch ev := ev.(type) {
	case MethodEntry:
		return 0, e.EmitMethodEntry(sink, ev.MethodID)
	case MethodExit:
		return 0, e.EmitMethodExit(sink, ev.MethodID, ev.ExitID)
	case Argument:
		return e.EmitArgument(sink, ev.Index, ev.Type)
	case Return:
		return 0, e.EmitReturn(sink, ev.Type)
	case FieldAccess:
		return 0, e.EmitField(sink, ev.Name, ev.Type, ev.Action)
	case ArrayAccess:
		return 0, e.EmitArray(sink, ev.Action)
	case Exception:
		return 0, e.EmitException(sink)
	case Message:
		return 0, e.EmitMessage(sink, ev.Text)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

// EmitArguments logs every parameter of a method descriptor, starting at
// local slot first (0 for static methods, 1 when slot 0 holds this).
// Unlike the single-event methods it is not all-or-nothing: arguments
// logged before an error stay in the sink.
func (e *Emitter) EmitArguments(sink bytecode.Sink, desc string, first int) error {
	params, _, err := bytecode.ParseMethodDescriptor(desc)
	if err != nil {
		return err
	}
	slot := first
	for _, p := range params {
		n, err := e.EmitArgument(sink, slot, p)
		if err != nil {
			return err
		}
		slot += n
	}
	return nil
}
