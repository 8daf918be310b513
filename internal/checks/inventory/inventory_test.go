package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/resource"
	"github.com/clustergate/cloudcheck/internal/resource/resourcetest"
)

// slowClock advances a fake clock on every list or get call.
func slowClock(fake *resourcetest.Fake, d time.Duration) *clocktesting.FakeClock {
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))
	fake.Inject = func(op string, _ int) error {
		clk.Step(d)
		return nil
	}
	return clk
}

func TestListCheck(t *testing.T) {
	fake := resourcetest.New("volume")
	fake.Seed("a")
	fake.Seed("b")

	c := &ListCheck{CheckName: "volume-api", Kind: "volume", Lister: fake, Limit: 5}
	result := c.Run(context.Background())

	if result.Severity != checks.SeverityOK {
		t.Fatalf("expected OK, got %v", result.Severity)
	}
	if result.Message != "Found 2 volumes" {
		t.Errorf("unexpected message %q", result.Message)
	}
	if result.Elapsed == nil {
		t.Error("expected elapsed time")
	}
}

func TestListCheck_DefaultLimit(t *testing.T) {
	fake := resourcetest.New("server")
	fake.Seed("a")
	fake.Seed("b")

	result := (&ListCheck{CheckName: "server-api", Kind: "server", Lister: fake}).Run(context.Background())
	if result.Message != "Found 1 servers" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestListCheck_Failure(t *testing.T) {
	fake := resourcetest.New("volume")
	fake.Inject = func(string, int) error { return errors.New("connection refused") }

	result := (&ListCheck{CheckName: "volume-api", Kind: "volume", Lister: fake}).Run(context.Background())
	if result.Severity != checks.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %v", result.Severity)
	}
	if result.Message != "Failed to list volumes: connection refused" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestListCheck_SlowIsEscalated(t *testing.T) {
	fake := resourcetest.New("volume")
	clk := slowClock(fake, 7*time.Second)

	c := &ListCheck{
		CheckName:  "volume-api",
		Kind:       "volume",
		Lister:     fake,
		Thresholds: checks.Thresholds{Warning: 5 * time.Second, Critical: 10 * time.Second},
		Clock:      clk,
	}
	result := c.Run(context.Background())
	if result.Severity != checks.SeverityWarning {
		t.Fatalf("expected WARNING, got %v", result.Severity)
	}
	if *result.Elapsed != 7*time.Second {
		t.Errorf("elapsed = %s, want 7s", *result.Elapsed)
	}
}

func TestExistsCheck(t *testing.T) {
	fake := resourcetest.New("volume")
	h := fake.Seed("important")

	tests := []struct {
		name    string
		target  string
		setup   func()
		want    checks.Severity
		message string
	}{
		{"by name", "important", nil, checks.SeverityOK, "Found volume important with id " + h.ID},
		{"by id", h.ID, nil, checks.SeverityOK, "Found volume important with id " + h.ID},
		{"missing", "nope", nil, checks.SeverityCritical, "volume nope does not exist"},
		{"ambiguous", "dup", func() { fake.Seed("dup"); fake.Seed("dup") }, checks.SeverityWarning, "Too many matches for name dup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			result := (&ExistsCheck{CheckName: "volume-exists", Client: fake, Target: tt.target}).Run(context.Background())
			if result.Severity != tt.want {
				t.Errorf("severity = %v, want %v", result.Severity, tt.want)
			}
			if result.Message != tt.message {
				t.Errorf("message = %q, want %q", result.Message, tt.message)
			}
		})
	}
}

func TestExistsCheck_AmbiguousNotEscalatedByTiming(t *testing.T) {
	fake := resourcetest.New("volume")
	fake.Seed("dup")
	fake.Seed("dup")
	clk := slowClock(fake, time.Minute)

	c := &ExistsCheck{
		CheckName:  "volume-exists",
		Client:     fake,
		Target:     "dup",
		Thresholds: checks.Thresholds{Warning: time.Second, Critical: 2 * time.Second},
		Clock:      clk,
	}
	if got := c.Run(context.Background()).Severity; got != checks.SeverityWarning {
		t.Errorf("expected WARNING, got %v", got)
	}
}

func TestExistsCheck_ClientError(t *testing.T) {
	fake := resourcetest.New("volume")
	fake.Inject = func(string, int) error {
		return &resource.ClientError{Op: "get", Kind: "volume", Err: errors.New("503")}
	}

	result := (&ExistsCheck{CheckName: "volume-exists", Client: fake, Target: "x"}).Run(context.Background())
	if result.Severity != checks.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %v", result.Severity)
	}
	if !strings.HasPrefix(result.Message, "Failed to get volume x") {
		t.Errorf("unexpected message %q", result.Message)
	}
}
