package instrument

import (
	"fmt"
	"strings"

	"github.com/chazu/stacklog/pkg/bytecode"
)

// EventKind tags the variants of Event.
type EventKind uint8

const (
	KindMethodEntry EventKind = iota
	KindMethodExit
	KindArgument
	KindReturn
	KindField
	KindArray
	KindException
	KindMessage
)

var eventKindNames = [...]string{
	KindMethodEntry: "entry",
	KindMethodExit:  "exit",
	KindArgument:    "argument",
	KindReturn:      "return",
	KindField:       "field",
	KindArray:       "array",
	KindException:   "exception",
	KindMessage:     "message",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// ParseEventKind maps a lower-case kind name back to its EventKind.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if strings.EqualFold(s, name) {
			return EventKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// Event is one instrumentation point. The set of variants is closed.
type Event interface {
	Kind() EventKind
	isEvent()
}

// MethodEntry logs entry into a method.
type MethodEntry struct {
	MethodID string
}

// MethodExit logs one exit path of a method.
type MethodExit struct {
	MethodID string
	ExitID   string
}

// Argument logs the argument stored in local slot Index.
type Argument struct {
	Index int
	Type  bytecode.Type
}

// Return logs the value about to be returned. Type may be void.
type Return struct {
	Type bytecode.Type
}

// FieldAccess logs a field value. The value sits directly below one
// context slot (the owning object of a put, or the value's consumer).
type FieldAccess struct {
	Name   string
	Type   bytecode.Type
	Action Action
}

// ArrayAccess logs an array element access. The caller prepares the
// (array text, index, element text) triple on the stack first.
type ArrayAccess struct {
	Action Action
}

// Exception logs the throwable on top of the stack.
type Exception struct{}

// Message logs a fixed string.
type Message struct {
	Text string
}

func (MethodEntry) Kind() EventKind { return KindMethodEntry }
func (MethodExit) Kind() EventKind  { return KindMethodExit }
func (Argument) Kind() EventKind    { return KindArgument }
func (Return) Kind() EventKind      { return KindReturn }
func (FieldAccess) Kind() EventKind { return KindField }
func (ArrayAccess) Kind() EventKind { return KindArray }
func (Exception) Kind() EventKind   { return KindException }
func (Message) Kind() EventKind     { return KindMessage }

func (MethodEntry) isEvent() {}
func (MethodExit) isEvent()  {}
func (Argument) isEvent()    {}
func (Return) isEvent()      {}
func (FieldAccess) isEvent() {}
func (ArrayAccess) isEvent() {}
func (Exception) isEvent()   {}
func (Message) isEvent()     {}
