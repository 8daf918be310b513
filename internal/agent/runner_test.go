package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/builtin"
	"github.com/clustergate/cloudcheck/internal/server"
)

type countingCheck struct {
	name   string
	sev    checks.Severity
	runs   atomic.Int32
	panics bool
}

func (c *countingCheck) Name() string { return c.name }
func (c *countingCheck) Run(context.Context) checks.Result {
	c.runs.Add(1)
	if c.panics {
		panic("boom")
	}
	return checks.Result{Severity: c.sev, Message: c.name + " done", Elapsed: checks.Timed(time.Second)}
}

func TestRunner_RunDue(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	fast := &countingCheck{name: "agent-fast", sev: checks.SeverityOK}
	slow := &countingCheck{name: "agent-slow", sev: checks.SeverityWarning}
	state := server.NewProbeState()

	r := &Runner{
		Entries: []builtin.Entry{
			{Checker: fast, Interval: time.Minute},
			{Checker: slow, Interval: 5 * time.Minute},
		},
		State: state,
		Clock: fc,
	}

	next := r.RunDue(context.Background())
	if next != time.Minute {
		t.Fatalf("next = %v, want 1m", next)
	}
	if fast.runs.Load() != 1 || slow.runs.Load() != 1 {
		t.Fatalf("expected both checks to run once, got %d/%d", fast.runs.Load(), slow.runs.Load())
	}
	if state.Severity() != checks.SeverityWarning {
		t.Errorf("expected warning overall, got %v", state.Severity())
	}

	fc.Step(time.Minute)
	next = r.RunDue(context.Background())
	if fast.runs.Load() != 2 || slow.runs.Load() != 1 {
		t.Fatalf("expected only the fast check to rerun, got %d/%d", fast.runs.Load(), slow.runs.Load())
	}
	if next != time.Minute {
		t.Errorf("next = %v, want 1m", next)
	}
}

func TestRunner_PanicIsUnknown(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	state := server.NewProbeState()
	r := &Runner{
		Entries: []builtin.Entry{{Checker: &countingCheck{name: "agent-panic", panics: true}, Interval: time.Minute}},
		State:   state,
		Clock:   fc,
	}

	r.RunDue(context.Background())
	if state.Severity() != checks.SeverityUnknown {
		t.Errorf("expected unknown, got %v", state.Severity())
	}
}

func TestRunner_CancelledSkipsChecks(t *testing.T) {
	c := &countingCheck{name: "agent-cancelled"}
	r := &Runner{
		Entries: []builtin.Entry{{Checker: c, Interval: time.Minute}},
		State:   server.NewProbeState(),
		Clock:   clocktesting.NewFakeClock(time.Now()),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.RunDue(ctx)
	if c.runs.Load() != 0 {
		t.Errorf("expected no runs after cancellation, got %d", c.runs.Load())
	}
}

func TestRunner_WritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudcheck.prom")
	r := &Runner{
		Entries:  []builtin.Entry{{Checker: &countingCheck{name: "agent-textfile"}, Interval: time.Minute}},
		State:    server.NewProbeState(),
		Textfile: path,
		Clock:    clocktesting.NewFakeClock(time.Now()),
	}

	r.RunDue(context.Background())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), `cloudcheck_check_severity{check="agent-textfile"} 0`) {
		t.Errorf("textfile missing severity sample:\n%s", data)
	}
}

func TestRunner_StartLoopsUntilCancelled(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	c := &countingCheck{name: "agent-loop"}
	r := &Runner{
		Entries: []builtin.Entry{{Checker: c, Interval: time.Minute}},
		State:   server.NewProbeState(),
		Clock:   fc,
	}
	if !r.NeedLeaderElection() {
		t.Fatal("runner must only run on the leader")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	waitFor(t, func() bool { return c.runs.Load() == 1 && fc.HasWaiters() })
	fc.Step(time.Minute)
	waitFor(t, func() bool { return c.runs.Load() == 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
