package lifecycle

import (
	"context"
	"fmt"

	"github.com/clustergate/cloudcheck/internal/resource"
	"github.com/clustergate/cloudcheck/internal/timer"
)

// Step names of the create/delete plan.
const (
	StepDeleteStale   = "delete-stale"
	StepAssertAbsent  = "assert-absent"
	StepCreate        = "create"
	StepWaitReady     = "wait-ready"
	StepAssertPresent = "assert-present"
	StepDelete        = "delete"
	StepWaitAbsent    = "wait-absent"
)

// Step is one named action of a probe plan.
type Step struct {
	Name   string
	Action func(ctx context.Context, pc *Context) error
}

// Context is the mutable state shared by the steps of one run.
type Context struct {
	// Handle identifies the resource created by the run.
	Handle resource.Handle
	// Created is true from a successful create until a wait-absent step
	// confirms the resource is gone. Cleanup deletes while it is set.
	Created bool
}

// ExistsError reports that the test resource already exists before a run.
type ExistsError struct {
	Kind string
	Name string
	ID   string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("A %s named %q already exists", e.Kind, e.Name)
}

// CreateDeletePlan returns the canonical create/verify/delete/verify plan
// for spec. The spec's labels are applied to the created resource.
func (p *Probe) CreateDeletePlan(spec resource.Spec) []Step {
	var steps []Step
	if p.cfg.DeleteStale {
		steps = append(steps, Step{Name: StepDeleteStale, Action: p.deleteStale(spec.Name)})
	}
	return append(steps,
		Step{Name: StepAssertAbsent, Action: p.assertAbsent(spec.Name)},
		Step{Name: StepCreate, Action: p.create(spec)},
		Step{Name: StepWaitReady, Action: p.waitReady()},
		Step{Name: StepAssertPresent, Action: p.assertPresent()},
		Step{Name: StepDelete, Action: p.deleteCreated()},
		Step{Name: StepWaitAbsent, Action: p.waitAbsent()},
	)
}

func (p *Probe) deleteStale(name string) func(context.Context, *Context) error {
	return func(ctx context.Context, _ *Context) error {
		h, err := p.client.Get(ctx, name)
		if resource.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		deadline := timer.Start(p.clk, p.cfg.DeleteTimeout)
		if err := p.client.Delete(ctx, h); err != nil && !resource.IsNotFound(err) {
			return fmt.Errorf("deleting stale %s %s: %w", p.client.Kind(), h.ID, err)
		}
		return resource.WaitFor(ctx, p.client, h, resource.StatusAbsent, deadline, p.cfg.PollInterval, p.clk)
	}
}

func (p *Probe) assertAbsent(name string) func(context.Context, *Context) error {
	return func(ctx context.Context, _ *Context) error {
		h, err := p.client.Get(ctx, name)
		if resource.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return &ExistsError{Kind: p.client.Kind(), Name: name, ID: h.ID}
	}
}

func (p *Probe) create(spec resource.Spec) func(context.Context, *Context) error {
	return func(ctx context.Context, pc *Context) error {
		h, err := p.client.Create(ctx, spec)
		if err != nil {
			return err
		}
		pc.Handle = h
		pc.Created = true
		return nil
	}
}

func (p *Probe) waitReady() func(context.Context, *Context) error {
	return func(ctx context.Context, pc *Context) error {
		deadline := timer.Start(p.clk, p.cfg.ReadyTimeout)
		return resource.WaitFor(ctx, p.client, pc.Handle, p.cfg.ReadyStatus, deadline, p.cfg.PollInterval, p.clk)
	}
}

func (p *Probe) assertPresent() func(context.Context, *Context) error {
	return func(ctx context.Context, pc *Context) error {
		h, err := p.client.Get(ctx, pc.Handle.ID)
		if err != nil {
			return err
		}
		if h.ID != pc.Handle.ID {
			return fmt.Errorf("lookup of %s returned %s", pc.Handle.ID, h.ID)
		}
		return nil
	}
}

func (p *Probe) deleteCreated() func(context.Context, *Context) error {
	return func(ctx context.Context, pc *Context) error {
		return p.client.Delete(ctx, pc.Handle)
	}
}

func (p *Probe) waitAbsent() func(context.Context, *Context) error {
	return func(ctx context.Context, pc *Context) error {
		deadline := timer.Start(p.clk, p.cfg.DeleteTimeout)
		if err := resource.WaitFor(ctx, p.client, pc.Handle, resource.StatusAbsent, deadline, p.cfg.PollInterval, p.clk); err != nil {
			return err
		}
		pc.Created = false
		return nil
	}
}

