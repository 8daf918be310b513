// Package inventory implements read-only checks over a resource client:
// listing resources and resolving a single resource by ID or name.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/resource"
	"github.com/clustergate/cloudcheck/internal/timer"
)

// ListCheck lists up to Limit resources and reports how many it found.
type ListCheck struct {
	CheckName  string
	Kind       string
	Lister     resource.Lister
	Limit      int
	Thresholds checks.Thresholds
	Clock      clock.PassiveClock
}

var _ checks.Checker = &ListCheck{}

func (c *ListCheck) Name() string { return c.CheckName }

func (c *ListCheck) Run(ctx context.Context) checks.Result {
	limit := c.Limit
	if limit <= 0 {
		limit = 1
	}

	t := timer.Start(c.Clock, 0)
	handles, err := c.Lister.List(ctx, limit)
	elapsed := t.Elapsed()
	if err != nil {
		log.FromContext(ctx).Error(err, "List failed", "check", c.CheckName, "kind", c.Kind)
		return checks.Result{
			Severity: checks.SeverityCritical,
			Message:  fmt.Sprintf("Failed to list %ss: %v", c.Kind, err),
			Elapsed:  checks.Timed(elapsed),
		}
	}

	return checks.Result{
		Severity: checks.Classify(checks.SeverityOK, elapsed, c.Thresholds),
		Message:  fmt.Sprintf("Found %d %ss", len(handles), c.Kind),
		Elapsed:  checks.Timed(elapsed),
		Details: map[string]string{
			"kind":  c.Kind,
			"count": fmt.Sprintf("%d", len(handles)),
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

// ExistsCheck resolves Target as an ID or display name.
type ExistsCheck struct {
	CheckName  string
	Client     resource.Client
	Target     string
	Thresholds checks.Thresholds
	Clock      clock.PassiveClock
}

var _ checks.Checker = &ExistsCheck{}

func (c *ExistsCheck) Name() string { return c.CheckName }

func (c *ExistsCheck) Run(ctx context.Context) checks.Result {
	kind := c.Client.Kind()

	t := timer.Start(c.Clock, 0)
	h, err := c.Client.Get(ctx, c.Target)
	elapsed := t.Elapsed()

	result := checks.Result{
		Severity: checks.SeverityForError(err),
		Elapsed:  checks.Timed(elapsed),
		Details:  map[string]string{"kind": kind, "target": c.Target},
	}
	var ambiguous *resource.AmbiguousError
	switch {
	case err == nil:
		result.Severity = checks.Classify(checks.SeverityOK, elapsed, c.Thresholds)
		result.Message = fmt.Sprintf("Found %s %s with id %s", kind, h.Name, h.ID)
		result.Details["id"] = h.ID
		if h.Size != "" {
			result.Details["size"] = h.Size
		}
	case resource.IsNotFound(err):
		result.Message = fmt.Sprintf("%s %s does not exist", kind, c.Target)
	case errors.As(err, &ambiguous):
		result.Message = fmt.Sprintf("Too many matches for name %s", c.Target)
		result.Details["matches"] = fmt.Sprintf("%d", ambiguous.Matches)
	default:
		result.Message = fmt.Sprintf("Failed to get %s %s: %v", kind, c.Target, err)
	}
	return result
}
