// Package timer measures elapsed time for a probe run and enforces an
// optional overall timeout on top of it.
package timer

import (
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// ErrDeadlineExceeded matches any *DeadlineExceededError via errors.Is.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// DeadlineExceededError reports that a timed operation ran past its timeout.
type DeadlineExceededError struct {
	Elapsed time.Duration
	Timeout time.Duration
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("timed out after %.4f seconds (timeout %s)", e.Elapsed.Seconds(), e.Timeout)
}

// Is reports whether target is ErrDeadlineExceeded.
func (e *DeadlineExceededError) Is(target error) bool {
	return target == ErrDeadlineExceeded
}

// Deadline records a start instant and an optional timeout. A zero timeout
// means the deadline never expires.
type Deadline struct {
	clk     clock.PassiveClock
	start   time.Time
	timeout time.Duration
}

// Start begins timing now. A nil clock uses the real wall clock.
func Start(clk clock.PassiveClock, timeout time.Duration) *Deadline {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if timeout < 0 {
		timeout = 0
	}
	return &Deadline{clk: clk, start: clk.Now(), timeout: timeout}
}

// Elapsed returns the time since Start. It never goes negative.
func (d *Deadline) Elapsed() time.Duration {
	elapsed := d.clk.Since(d.start)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Tick fails once the elapsed time is strictly greater than the timeout.
// Elapsed time is always measured from the original start, so repeated
// ticks do not accumulate drift.
func (d *Deadline) Tick() error {
	if d.timeout == 0 {
		return nil
	}
	if elapsed := d.Elapsed(); elapsed > d.timeout {
		return &DeadlineExceededError{Elapsed: elapsed, Timeout: d.timeout}
	}
	return nil
}
