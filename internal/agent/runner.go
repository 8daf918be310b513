package agent

import (
	"context"
	"time"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/builtin"
	"github.com/clustergate/cloudcheck/internal/metrics"
	"github.com/clustergate/cloudcheck/internal/server"
)

// Runner executes configured checks on their intervals. It is added to a
// controller-runtime manager and only runs on the elected leader, so two
// agent replicas never probe the same names at once.
type Runner struct {
	Entries []builtin.Entry
	State   *server.ProbeState

	// Textfile, if set, receives the metrics registry after every round.
	Textfile string

	// Clock defaults to the real clock.
	Clock clock.Clock
}

// NeedLeaderElection implements manager.LeaderElectionRunnable.
func (r *Runner) NeedLeaderElection() bool {
	return true
}

// Start implements manager.Runnable. It blocks until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("agent")
	ctx = log.IntoContext(ctx, logger)
	logger.Info("starting check runner", "checks", len(r.Entries))

	for {
		next := r.RunDue(ctx)
		if ctx.Err() != nil {
			logger.Info("stopping check runner")
			return nil
		}

		logger.V(1).Info("waiting for next due check", "after", next.String())
		select {
		case <-ctx.Done():
			logger.Info("stopping check runner")
			return nil
		case <-r.clock().After(next):
		}
	}
}

// RunDue runs every due check once, one at a time, and returns how long
// to wait before the next check becomes due.
func (r *Runner) RunDue(ctx context.Context) time.Duration {
	logger := log.FromContext(ctx)
	clk := r.clock()

	due, _ := Due(r.Entries, r.State.LastRun, clk.Now())
	for _, e := range due {
		if ctx.Err() != nil {
			break
		}
		name := e.Checker.Name()
		result := checks.RunSafe(ctx, e.Checker)
		finished := clk.Now()

		metrics.Record(name, result, finished)
		r.State.Update(name, result, finished)
		logger.Info("check completed",
			"check", name,
			"severity", result.Severity.String(),
			"message", result.Message,
		)
	}

	if len(due) > 0 {
		logger.V(1).Info("round completed", "ran", len(due), "severity", r.State.Severity().String())
	}
	if r.Textfile != "" && len(due) > 0 {
		if err := metrics.WriteTextfile(r.Textfile); err != nil {
			logger.Error(err, "failed to write metrics textfile", "path", r.Textfile)
		}
	}

	_, next := Due(r.Entries, r.State.LastRun, clk.Now())
	if next <= 0 {
		next = DefaultInterval
	}
	return next
}

func (r *Runner) clock() clock.Clock {
	if r.Clock == nil {
		return clock.RealClock{}
	}
	return r.Clock
}
