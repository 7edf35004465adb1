package instrument

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a value type matches none of the ten
	// categories the logging sink converts. It means the caller's type
	// table is out of step with the sink, not that the input was bad.
	ErrUnknownType = errors.New("unrecognized value type")

	// ErrUnknownAction is returned for an Action other than Read or Write.
	ErrUnknownAction = errors.New("unrecognized access action")

	// ErrUnknownEvent is returned by Emitter.Emit for an Event variant it
	// does not handle.
	ErrUnknownEvent = errors.New("unrecognized log event")

	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("log target registry already initialized")

	// ErrNotInitialized is returned by Default before Init has run.
	ErrNotInitialized = errors.New("log target registry not initialized")

	// ErrBadLocal is returned for a local variable index outside 0..65535.
	ErrBadLocal = errors.New("local variable index out of range")

	// ErrStackDisturbed is returned by Verify when a probe leaves the
	// operand stack different from the original code's expectations.
	ErrStackDisturbed = errors.New("probe disturbs the operand stack")
)

// ConfigError reports that the logging sink's declared surface does not
// provide an entry point the registry needs. It is raised once, while the
// registry is built, and is never recoverable at emission time.
type ConfigError struct {
	Target string // Entry point name, e.g. "logField"
	Desc   string // Descriptor the registry requires
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Desc == "" {
		return fmt.Sprintf("logging sink %s: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("logging sink %s%s: %s", e.Target, e.Desc, e.Reason)
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
