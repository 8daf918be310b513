package resource

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup, status query or delete targets a
// resource that does not exist.
var ErrNotFound = errors.New("resource not found")

// AmbiguousError is returned when a name lookup matches more than one
// resource. It carries a WARNING verdict rather than CRITICAL.
type AmbiguousError struct {
	Kind    string
	Name    string
	Matches int
}

func (e *AmbiguousError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "resource"
	}
	return fmt.Sprintf("too many matches for %s name %q (%d found)", kind, e.Name, e.Matches)
}

// ClientError wraps any failure reported by the backing API.
type ClientError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ClientError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// VanishedError is returned by WaitFor when the resource disappears while a
// status other than StatusAbsent is awaited.
type VanishedError struct {
	Kind   string
	Name   string
	Target string
}

func (e *VanishedError) Error() string {
	return fmt.Sprintf("%s %s disappeared while waiting for status %q", e.Kind, e.Name, e.Target)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
