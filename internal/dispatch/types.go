package dispatch

import (
	"fmt"
)

type Kind int

const (
	MissingField Kind = iota + 1
	NotFound
	SpawnFailed
)

func (k Kind) String() string {
	switch k {
	case MissingField:
		return "MissingField"
	case NotFound:
		return "NotFound"
	case SpawnFailed:
		return "SpawnFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Invocation is one finished tool process.
type Invocation struct {
	ExecutablePath string
	Arg            string
	Stdout         string
	Stderr         string
	ExitStatus     int
}

type DispatchError struct {
	Kind Kind
	Tool string
	// Path is the computed executable path; empty for MissingField.
	Path string
	Err  error
}

func (e *DispatchError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("dispatch %s: %v", e.Kind, e.Err)
	case NotFound:
		if e.Path == "" {
			return fmt.Sprintf("dispatch %s: tool %q: %v", e.Kind, e.Tool, e.Err)
		}
		return fmt.Sprintf("dispatch %s: tool %q: %s", e.Kind, e.Tool, e.Path)
	default:
		return fmt.Sprintf("dispatch %s: %s: %v", e.Kind, e.Path, e.Err)
	}
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone: errors.Is(err, &DispatchError{Kind: NotFound}).
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	return ok && t.Kind == e.Kind
}
