package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clustergate/cloudcheck/internal/checks"
)

type stubChecker struct {
	name   string
	result checks.Result
	panics bool
}

func (s *stubChecker) Name() string { return s.name }
func (s *stubChecker) Run(_ context.Context) checks.Result {
	if s.panics {
		panic("boom")
	}
	return s.result
}

func TestRunChecks_AllPass(t *testing.T) {
	checkers := []checks.Checker{
		&stubChecker{name: "a", result: checks.Result{Severity: checks.SeverityOK, Message: "ok"}},
		&stubChecker{name: "b", result: checks.Result{Severity: checks.SeverityOK, Message: "ok"}},
	}

	report := RunChecks(context.Background(), checkers, nil)

	if report.Severity != checks.SeverityOK {
		t.Fatalf("expected OK, got %v", report.Severity)
	}
	if report.Total != 2 || report.OK != 2 {
		t.Fatalf("expected Total=2 OK=2, got %d/%d", report.Total, report.OK)
	}
	if report.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", report.ExitCode())
	}
}

func TestRunChecks_WorstSeverityWins(t *testing.T) {
	checkers := []checks.Checker{
		&stubChecker{name: "a", result: checks.Result{Severity: checks.SeverityOK}},
		&stubChecker{name: "b", result: checks.Result{Severity: checks.SeverityCritical, Message: "down"}},
		&stubChecker{name: "c", result: checks.Result{Severity: checks.SeverityWarning, Message: "slow"}},
	}

	report := RunChecks(context.Background(), checkers, nil)

	if report.Severity != checks.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %v", report.Severity)
	}
	if report.OK != 1 || report.Warning != 1 || report.Critical != 1 {
		t.Errorf("unexpected counts: %+v", report)
	}
	if report.ExitCode() != 2 {
		t.Errorf("expected exit code 2, got %d", report.ExitCode())
	}
}

func TestRunChecks_WithFilter(t *testing.T) {
	checkers := []checks.Checker{
		&stubChecker{name: "a", result: checks.Result{Severity: checks.SeverityOK}},
		&stubChecker{name: "b", result: checks.Result{Severity: checks.SeverityCritical}},
		&stubChecker{name: "c", result: checks.Result{Severity: checks.SeverityOK}},
	}

	filter := map[string]bool{"a": true, "c": true}
	report := RunChecks(context.Background(), checkers, filter)

	if report.Total != 2 {
		t.Fatalf("expected Total=2, got %d", report.Total)
	}
	if report.Severity != checks.SeverityOK {
		t.Errorf("filtered-out failures must not count, got %v", report.Severity)
	}
}

func TestRunChecks_NothingMatched(t *testing.T) {
	report := RunChecks(context.Background(), nil, map[string]bool{"x": true})
	if report.Severity != checks.SeverityUnknown {
		t.Errorf("expected UNKNOWN for an empty run, got %v", report.Severity)
	}
}

func TestRunChecks_SortedByName(t *testing.T) {
	checkers := []checks.Checker{
		&stubChecker{name: "zeta"},
		&stubChecker{name: "alpha"},
		&stubChecker{name: "mid"},
	}

	report := RunChecks(context.Background(), checkers, nil)
	if report.Checks[0].Check != "alpha" || report.Checks[1].Check != "mid" || report.Checks[2].Check != "zeta" {
		t.Errorf("expected sorted order, got %s %s %s", report.Checks[0].Check, report.Checks[1].Check, report.Checks[2].Check)
	}
}

func TestRunChecks_PanicIsUnknown(t *testing.T) {
	report := RunChecks(context.Background(), []checks.Checker{&stubChecker{name: "p", panics: true}}, nil)
	if report.Severity != checks.SeverityUnknown {
		t.Fatalf("expected UNKNOWN, got %v", report.Severity)
	}
	if report.ExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", report.ExitCode())
	}
}

func TestNewCheckResult_Elapsed(t *testing.T) {
	cr := NewCheckResult("x", checks.Result{Severity: checks.SeverityOK, Elapsed: checks.Timed(1500 * time.Millisecond)})
	if cr.ElapsedSeconds == nil || *cr.ElapsedSeconds != 1.5 {
		t.Errorf("unexpected elapsed %v", cr.ElapsedSeconds)
	}
	if NewCheckResult("x", checks.Result{}).ElapsedSeconds != nil {
		t.Error("expected nil elapsed when none was measured")
	}
}

func TestAuthFailure(t *testing.T) {
	report := AuthFailure("volume-create-delete", errors.New("token expired"))
	if report.Severity != checks.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %v", report.Severity)
	}
	if report.Checks[0].Message != "Failed to authenticate: token expired" {
		t.Errorf("unexpected message %q", report.Checks[0].Message)
	}
	if report.Checks[0].ElapsedSeconds != nil {
		t.Error("authentication failures carry no elapsed time")
	}
}
