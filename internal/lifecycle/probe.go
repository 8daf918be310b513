// Package lifecycle runs ordered create/verify/delete/verify probes against a
// resource.Client and reduces each run to a single checks.Result.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/resource"
	"github.com/clustergate/cloudcheck/internal/timer"
)

// Defaults applied by New to a zero Config.
const (
	DefaultName          = "monitoring-test"
	DefaultReadyTimeout  = 10 * time.Second
	DefaultDeleteTimeout = 10 * time.Second
)

// State is the phase of a probe run.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateCleanupRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	case StateCleanupRunning:
		return "CleanupRunning"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the per-probe settings.
type Config struct {
	// Spec describes the test resource. Spec.Name is the display name that
	// must not exist before the run.
	Spec resource.Spec

	// ReadyTimeout bounds the wait-ready step. Zero means no bound.
	ReadyTimeout time.Duration
	// DeleteTimeout bounds each wait for the resource to disappear,
	// including the one performed by cleanup.
	DeleteTimeout time.Duration
	// PollInterval is the fixed delay between status queries.
	PollInterval time.Duration
	// DeleteStale removes a leftover resource with the same name first.
	DeleteStale bool
	// ReadyStatus is the status awaited by wait-ready.
	ReadyStatus string

	Thresholds checks.Thresholds
}

// Probe is a checks.Checker that runs one lifecycle plan per Run call.
type Probe struct {
	name   string
	client resource.Client
	cfg    Config
	clk    clock.Clock
	steps  []Step
}

var _ checks.Checker = &Probe{}

// Option customizes a Probe.
type Option func(*Probe)

// WithClock sets the clock used for deadlines and poll sleeps.
func WithClock(clk clock.Clock) Option {
	return func(p *Probe) { p.clk = clk }
}

// WithSteps replaces the create/delete plan with a custom sequence.
func WithSteps(steps ...Step) Option {
	return func(p *Probe) { p.steps = steps }
}

// WithName sets the check name reported by Name.
func WithName(name string) Option {
	return func(p *Probe) { p.name = name }
}

// New returns a Probe for client. Zero Config fields take their defaults.
func New(client resource.Client, cfg Config, opts ...Option) *Probe {
	if cfg.Spec.Name == "" {
		cfg.Spec.Name = DefaultName
	}
	if cfg.ReadyStatus == "" {
		cfg.ReadyStatus = resource.StatusAvailable
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = resource.DefaultPollInterval
	}
	p := &Probe{
		name:   client.Kind() + "-create-delete",
		client: client,
		cfg:    cfg,
		clk:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements checks.Checker.
func (p *Probe) Name() string { return p.name }

// Run executes the plan, always runs cleanup, and reduces the run to a
// Result. It never panics and never returns without a verdict.
func (p *Probe) Run(ctx context.Context) checks.Result {
	runID := uuid.NewString()
	kind := p.client.Kind()
	logger := log.FromContext(ctx).WithValues("check", p.name, "kind", kind, "runID", runID)
	ctx = log.IntoContext(ctx, logger)

	total := timer.Start(p.clk, 0)
	spec := p.specForRun(runID)
	steps := p.steps
	if steps == nil {
		steps = p.CreateDeletePlan(spec)
	}

	pc := &Context{}
	transition(logger, StateRunning)
	failedStep, cause := p.runSteps(ctx, logger, steps, pc)
	if cause != nil {
		transition(logger, StateFailed, "step", failedStep, "error", cause.Error())
	} else {
		transition(logger, StateSucceeded)
	}

	cleanupNeeded := pc.Created
	if cleanupNeeded {
		transition(logger, StateCleanupRunning, "id", pc.Handle.ID)
	}
	cleanupErr := p.cleanup(ctx, pc)
	if cleanupErr != nil {
		logger.Error(cleanupErr, "Cleanup failed", "id", pc.Handle.ID)
	}
	elapsed := total.Elapsed()
	transition(logger, StateDone, "elapsed", elapsed)

	details := map[string]string{
		"kind":  kind,
		"name":  spec.Name,
		"runID": runID,
	}
	if pc.Handle.ID != "" {
		details["id"] = pc.Handle.ID
	}

	result := checks.Result{Elapsed: checks.Timed(elapsed), Details: details}
	switch {
	case cause == nil && cleanupErr == nil:
		result.Severity = checks.Classify(checks.SeverityOK, elapsed, p.cfg.Thresholds)
		result.Message = fmt.Sprintf("Successfully created and deleted %s %s", kind, spec.Name)
	case cause == nil:
		details["cleanup"] = "failed"
		result.Severity = checks.SeverityCritical
		result.Message = fmt.Sprintf("%s %s test passed but cleanup failed: %v", kind, spec.Name, cleanupErr)
	default:
		details["step"] = failedStep
		result.Severity = severityFor(cause)
		result.Message = fmt.Sprintf("%s %s: step %q failed: %v", kind, spec.Name, failedStep, cause)
		if cleanupNeeded {
			if cleanupErr == nil {
				details["cleanup"] = "succeeded"
				result.Message += "; cleanup succeeded"
			} else {
				details["cleanup"] = "failed"
				result.Severity = checks.Worst(result.Severity, checks.SeverityCritical)
				result.Message += fmt.Sprintf("; cleanup also failed: %v", cleanupErr)
			}
		}
	}
	return result
}

func (p *Probe) specForRun(runID string) resource.Spec {
	spec := p.cfg.Spec
	labels := make(map[string]string, len(spec.Labels)+1)
	for k, v := range spec.Labels {
		labels[k] = v
	}
	labels[resource.LabelRunID] = runID
	spec.Labels = labels
	return spec
}

// runSteps executes steps in order and stops at the first failure.
func (p *Probe) runSteps(ctx context.Context, logger logr.Logger, steps []Step, pc *Context) (string, error) {
	for i, step := range steps {
		logger.V(1).Info("Running step", "index", i, "step", step.Name)
		if err := runStep(ctx, step, pc); err != nil {
			return step.Name, err
		}
	}
	return "", nil
}

// cleanup deletes the created resource and waits for it to disappear. It is
// attempted once, on a context that ignores cancellation of the run.
func (p *Probe) cleanup(ctx context.Context, pc *Context) (err error) {
	if !pc.Created {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	ctx = context.WithoutCancel(ctx)
	deadline := timer.Start(p.clk, p.cfg.DeleteTimeout)
	if err := p.client.Delete(ctx, pc.Handle); err != nil && !resource.IsNotFound(err) {
		return err
	}
	if err := resource.WaitFor(ctx, p.client, pc.Handle, resource.StatusAbsent, deadline, p.cfg.PollInterval, p.clk); err != nil {
		return err
	}
	pc.Created = false
	return nil
}

// PanicError carries a value recovered from a panicking step.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func runStep(ctx context.Context, step Step, pc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return step.Action(ctx, pc)
}

func severityFor(err error) checks.Severity {
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return checks.SeverityUnknown
	}
	return checks.SeverityForError(err)
}

func transition(logger logr.Logger, s State, kv ...any) {
	logger.Info("Probe state changed", append([]any{"state", s.String()}, kv...)...)
}
