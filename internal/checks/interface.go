package checks

import (
	"context"
	"fmt"
	"time"
)

// Checker is the interface that all health checks must implement.
type Checker interface {
	// Name returns the unique identifier for this check (e.g. "volume-create-delete").
	Name() string

	// Run executes the check. It never returns an error: every failure is
	// folded into the Result's severity and message.
	Run(ctx context.Context) Result
}

// Result holds the outcome of a single check run.
type Result struct {
	// Severity is the verdict after timing classification.
	Severity Severity `json:"severity"`

	// Message is a human-readable summary of the result.
	Message string `json:"message"`

	// Elapsed is the measured duration. It is nil when the check failed
	// before any timed operation started.
	Elapsed *time.Duration `json:"elapsed,omitempty"`

	// Details contains additional key-value diagnostic information.
	Details map[string]string `json:"details,omitempty"`
}

// Timed returns a pointer to d for use as Result.Elapsed.
func Timed(d time.Duration) *time.Duration {
	return &d
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) Result
}

func (f CheckFunc) Name() string                   { return f.CheckName }
func (f CheckFunc) Run(ctx context.Context) Result { return f.Fn(ctx) }

// RunSafe runs c, converting a panic into an UNKNOWN result.
func RunSafe(ctx context.Context, c Checker) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Severity: SeverityUnknown,
				Message:  fmt.Sprintf("check %s panicked: %v", c.Name(), r),
			}
		}
	}()
	return c.Run(ctx)
}
