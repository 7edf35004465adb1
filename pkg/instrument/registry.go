package instrument

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chazu/stacklog/pkg/bytecode"
)

// Target names one of the fixed entry points of the logging sink.
type Target uint8

const (
	TargetLog Target = iota
	TargetMethodEntry
	TargetMethodExit
	TargetArgument
	TargetReturn
	TargetField
	TargetArray
	TargetException

	targetCount
)

// String returns the sink method name for the target.
func (t Target) String() string {
	if t < targetCount {
		return targetNames[t]
	}
	return fmt.Sprintf("Target(%d)", t)
}

var targetNames = [targetCount]string{
	TargetLog:         "log",
	TargetMethodEntry: "logMethodEntry",
	TargetMethodExit:  "logMethodExit",
	TargetArgument:    "logArgument",
	TargetReturn:      "logReturn",
	TargetField:       "logField",
	TargetArray:       "logArray",
	TargetException:   "logException",
}

// Targets returns every fixed entry point in declaration order.
func Targets() []Target {
	out := make([]Target, targetCount)
	for i := range out {
		out[i] = Target(i)
	}
	return out
}

// convertName is the name shared by the sink's text-conversion overloads.
const convertName = "toString"

// signature is a required sink method: name, parameter types and return type.
type signature struct {
	name   string
	params []bytecode.Type
	ret    bytecode.Type
}

func (s signature) desc() string {
	return bytecode.MethodDescriptor(s.ret, s.params...)
}

// targetSignatures returns the required signature of each fixed entry point.
func targetSignatures(action bytecode.Type) [targetCount]signature {
	str := bytecode.StringType
	return [targetCount]signature{
		TargetLog:         {"log", []bytecode.Type{str}, bytecode.Void},
		TargetMethodEntry: {"logMethodEntry", []bytecode.Type{str}, bytecode.Void},
		TargetMethodExit:  {"logMethodExit", []bytecode.Type{str, str}, bytecode.Void},
		TargetArgument:    {"logArgument", []bytecode.Type{bytecode.Int, str}, bytecode.Void},
		TargetReturn:      {"logReturn", []bytecode.Type{str}, bytecode.Void},
		TargetField:       {"logField", []bytecode.Type{str, str, action}, bytecode.Void},
		TargetArray:       {"logArray", []bytecode.Type{str, bytecode.Int, str, action}, bytecode.Void},
		TargetException:   {"logException", []bytecode.Type{bytecode.ThrowableType}, bytecode.Void},
	}
}

// convertSignature returns the conversion overload for a value sort.
// Arrays have no common supertype below Object, so they share the
// Object overload with references.
func convertSignature(s bytecode.Sort) signature {
	param := bytecode.TypeOf(s)
	if s == bytecode.SortArray {
		param = bytecode.ObjectType
	}
	return signature{convertName, []bytecode.Type{param}, bytecode.StringType}
}

// CallDescriptor identifies a static method of the sink at the instruction
// level.
type CallDescriptor struct {
	Owner string
	Name  string
	Desc  string
}

// Instruction returns the invokestatic that calls the target.
func (c CallDescriptor) Instruction() bytecode.Instruction {
	return bytecode.MemberInsn(bytecode.OpInvokeStatic, c.Owner, c.Name, c.Desc)
}

func (c CallDescriptor) String() string {
	return c.Owner + "." + c.Name + c.Desc
}

// RegistryConfig names the sink classes every emitted call is qualified with.
type RegistryConfig struct {
	// Owner is the internal name of the logging sink class, e.g.
	// "stacklog/runtime/Logger".
	Owner string

	// ActionOwner is the internal name of the action enum. Defaults to
	// Owner + "$Action".
	ActionOwner string
}

// DefaultActionOwner returns the action enum name used when none is set.
func DefaultActionOwner(owner string) string {
	return owner + "$Action"
}

// Registry maps every log event kind to its sink call descriptor, and every
// value sort to its conversion overload. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	owner      string
	action     bytecode.Type
	targets    [targetCount]CallDescriptor
	converters [bytecode.SortObject + 1]CallDescriptor
}

// NewRegistry resolves the sink's entry points against surface. Any entry
// point the surface lacks, or declares with a different signature, is a
// *ConfigError.
func NewRegistry(cfg RegistryConfig, surface Surface) (*Registry, error) {
	if err := checkInternalName("owner", cfg.Owner); err != nil {
		return nil, err
	}
	actionOwner := cfg.ActionOwner
	if actionOwner == "" {
		actionOwner = DefaultActionOwner(cfg.Owner)
	}
	if err := checkInternalName("action", actionOwner); err != nil {
		return nil, err
	}

	r := &Registry{
		owner:  cfg.Owner,
		action: bytecode.ObjectOf(actionOwner),
	}

	for t, sig := range targetSignatures(r.action) {
		if err := resolve(surface, sig); err != nil {
			return nil, err
		}
		r.targets[t] = CallDescriptor{Owner: r.owner, Name: sig.name, Desc: sig.desc()}
	}
	for _, s := range bytecode.ValueSorts() {
		sig := convertSignature(s)
		if err := resolve(surface, sig); err != nil {
			return nil, err
		}
		r.converters[s] = CallDescriptor{Owner: r.owner, Name: sig.name, Desc: sig.desc()}
	}

	log.Infof("log target registry: %d entry points and %d conversions resolved on %s",
		targetCount, len(bytecode.ValueSorts()), r.owner)
	return r, nil
}

func checkInternalName(what, name string) error {
	if name == "" {
		return &ConfigError{Target: what, Reason: "class name is empty"}
	}
	if strings.ContainsAny(name, ".;[") {
		return &ConfigError{Target: what, Reason: fmt.Sprintf("%q is not an internal class name (use a/b/C)", name)}
	}
	return nil
}

// resolve finds sig among the surface's overloads. When it is missing the
// error describes the closest mismatch: arity first, then parameter and
// return types.
func resolve(surface Surface, sig signature) error {
	want := sig.desc()
	overloads := surface.Lookup(sig.name)
	if len(overloads) == 0 {
		return &ConfigError{Target: sig.name, Desc: want, Reason: "not declared by the sink"}
	}
	for _, d := range overloads {
		if d == want {
			return nil
		}
	}

	reason := "no overload with this signature"
next:
	for _, d := range overloads {
		params, ret, err := bytecode.ParseMethodDescriptor(d)
		if err != nil {
			reason = fmt.Sprintf("declared descriptor %q: %v", d, err)
			continue
		}
		if len(params) != len(sig.params) {
			reason = fmt.Sprintf("declared with %d parameters, want %d", len(params), len(sig.params))
			continue
		}
		for i := range params {
			if params[i] != sig.params[i] {
				reason = fmt.Sprintf("parameter %d is %s, want %s", i, params[i], sig.params[i])
				continue next
			}
		}
		if ret != sig.ret {
			reason = fmt.Sprintf("returns %s, want %s", ret, sig.ret)
		}
	}
	return &ConfigError{Target: sig.name, Desc: want, Reason: reason}
}

// Owner returns the internal name of the sink class.
func (r *Registry) Owner() string {
	return r.owner
}

// ActionType returns the type of the sink's action enum.
func (r *Registry) ActionType() bytecode.Type {
	return r.action
}

// Target returns the call descriptor for a fixed entry point.
func (r *Registry) Target(t Target) CallDescriptor {
	return r.targets[t]
}

// Converter returns the text-conversion overload for a value sort. ok is
// false for void and unrecognized sorts.
func (r *Registry) Converter(s bytecode.Sort) (c CallDescriptor, ok bool) {
	if s == bytecode.SortVoid || int(s) >= len(r.converters) {
		return CallDescriptor{}, false
	}
	return r.converters[s], true
}

// ActionConstant returns the static field reference for an action's enum
// constant.
func (r *Registry) ActionConstant(a Action) bytecode.MemberRef {
	return bytecode.MemberRef{
		Owner: r.action.InternalName(),
		Name:  a.String(),
		Desc:  r.action.Descriptor(),
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Init builds the process-wide registry. It runs at most once; later calls
// return ErrAlreadyInitialized and leave the registry untouched.
func Init(cfg RegistryConfig, surface Surface) error {
	ran := false
	defaultOnce.Do(func() {
		ran = true
		defaultRegistry, defaultErr = NewRegistry(cfg, surface)
	})
	if !ran {
		return ErrAlreadyInitialized
	}
	return defaultErr
}

// MustInit is like Init but panics if the registry cannot be built.
func MustInit(cfg RegistryConfig, surface Surface) {
	if err := Init(cfg, surface); err != nil {
		panic(fmt.Sprintf("instrument: %v", err))
	}
}

// Default returns the process-wide registry built by Init. Init must
// complete before any goroutine calls Default.
func Default() (*Registry, error) {
	if defaultRegistry == nil {
		if defaultErr != nil {
			return nil, defaultErr
		}
		return nil, ErrNotInitialized
	}
	return defaultRegistry, nil
}
