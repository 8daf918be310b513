package agent

import (
	"time"

	"github.com/clustergate/cloudcheck/internal/checks/builtin"
)

// DefaultInterval is used for entries that carry no interval of their own.
const DefaultInterval = 5 * time.Minute

// Due determines which entries are due for execution based on their
// individual intervals and when each last ran.
// Returns the entries that need to run and the shortest remaining interval
// before the next one becomes due.
func Due(entries []builtin.Entry, lastRun func(name string) (time.Time, bool), now time.Time) (due []builtin.Entry, next time.Duration) {
	for _, e := range entries {
		interval := intervalOf(e)

		last, ok := lastRun(e.Checker.Name())
		if !ok {
			// Never ran.
			due = append(due, e)
			continue
		}

		elapsed := now.Sub(last)
		if elapsed >= interval {
			due = append(due, e)
			continue
		}

		remaining := interval - elapsed
		if next == 0 || remaining < next {
			next = remaining
		}
	}

	// Everything ran this round: wait one full interval.
	if next == 0 && len(entries) > 0 {
		next = shortestInterval(entries)
	}
	return due, next
}

func intervalOf(e builtin.Entry) time.Duration {
	if e.Interval <= 0 {
		return DefaultInterval
	}
	return e.Interval
}

// shortestInterval returns the shortest interval from a set of entries.
func shortestInterval(entries []builtin.Entry) time.Duration {
	if len(entries) == 0 {
		return DefaultInterval
	}
	shortest := intervalOf(entries[0])
	for _, e := range entries[1:] {
		if i := intervalOf(e); i < shortest {
			shortest = i
		}
	}
	return shortest
}
