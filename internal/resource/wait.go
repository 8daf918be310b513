package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/timer"
)

// DefaultPollInterval is the fixed delay between status queries.
const DefaultPollInterval = time.Second

// WaitFor polls c.Status at a fixed interval until the resource reports
// target or deadline expires. When target is StatusAbsent, ErrNotFound ends
// the wait successfully; for any other target it yields *VanishedError.
// Status errors other than ErrNotFound are returned unchanged.
func WaitFor(ctx context.Context, c Client, h Handle, target string, deadline *timer.Deadline, interval time.Duration, clk clock.Clock) error {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := log.FromContext(ctx).WithValues("kind", c.Kind(), "resource", h.String(), "target", target)

	last := ""
	for {
		if err := ctx.Err(); err != nil {
			return &ClientError{Op: "wait", Kind: c.Kind(), Err: err}
		}

		status, err := c.Status(ctx, h)
		switch {
		case errors.Is(err, ErrNotFound):
			if target == StatusAbsent {
				return nil
			}
			return &VanishedError{Kind: c.Kind(), Name: h.String(), Target: target}
		case err != nil:
			return err
		case status == target:
			logger.V(1).Info("Reached target status", "elapsed", deadline.Elapsed())
			return nil
		}

		if status != last {
			logger.V(1).Info("Waiting for status", "status", status)
			last = status
		}

		clk.Sleep(interval)
		if err := deadline.Tick(); err != nil {
			return fmt.Errorf("waiting for %s %s to become %s (last status %q): %w", c.Kind(), h.String(), target, last, err)
		}
	}
}
