package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/clustergate/cloudcheck/internal/checks"
)

// ProbeState holds the latest result of every check, updated by the agent.
type ProbeState struct {
	mu     sync.RWMutex
	checks map[string]*CheckState
}

// CheckState is the last observed outcome of a single check.
type CheckState struct {
	Severity       checks.Severity   `json:"severity"`
	Message        string            `json:"message,omitempty"`
	ElapsedSeconds *float64          `json:"elapsedSeconds,omitempty"`
	LastRun        time.Time         `json:"lastRun"`
	Details        map[string]string `json:"details,omitempty"`
}

// NewProbeState creates an empty ProbeState store.
func NewProbeState() *ProbeState {
	return &ProbeState{
		checks: make(map[string]*CheckState),
	}
}

// Update records the result of a check run.
func (ps *ProbeState) Update(name string, r checks.Result, now time.Time) {
	cs := &CheckState{
		Severity: r.Severity,
		Message:  r.Message,
		LastRun:  now,
		Details:  r.Details,
	}
	if r.Elapsed != nil {
		seconds := r.Elapsed.Seconds()
		cs.ElapsedSeconds = &seconds
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.checks[name] = cs
}

// LastRun returns when the named check last finished.
func (ps *ProbeState) LastRun(name string) (time.Time, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	cs, ok := ps.checks[name]
	if !ok {
		return time.Time{}, false
	}
	return cs.LastRun, true
}

// Severity returns the worst severity across all recorded checks. An empty
// store is UNKNOWN.
func (ps *ProbeState) Severity() checks.Severity {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return worst(ps.checks)
}

// snapshot returns a copy of the current state for serialization.
func (ps *ProbeState) snapshot() map[string]*CheckState {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	snap := make(map[string]*CheckState, len(ps.checks))
	for k, v := range ps.checks {
		snap[k] = v
	}
	return snap
}

func worst(states map[string]*CheckState) checks.Severity {
	if len(states) == 0 {
		return checks.SeverityUnknown
	}
	sev := checks.SeverityOK
	for _, cs := range states {
		sev = checks.Worst(sev, cs.Severity)
	}
	return sev
}

// ReadyzHandler returns an HTTP handler for the /readyz endpoint.
// Returns 200 while the worst recorded severity is OK or WARNING, 503 otherwise.
// Supports query parameters:
//
//	severity - only consider checks currently at this severity
//	check    - only consider the named check
//
// A filter that matches no check, like a state with no results yet,
// reports UNKNOWN with 503. Callers filtering by severity should read
// the response body rather than the status code.
func ReadyzHandler(state *ProbeState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := state.snapshot()

		if name := r.URL.Query().Get("check"); name != "" {
			filtered := make(map[string]*CheckState, 1)
			if cs, ok := snap[name]; ok {
				filtered[name] = cs
			}
			snap = filtered
		}
		if s := r.URL.Query().Get("severity"); s != "" {
			want, err := checks.ParseSeverity(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			filtered := make(map[string]*CheckState, len(snap))
			for name, cs := range snap {
				if cs.Severity == want {
					filtered[name] = cs
				}
			}
			snap = filtered
		}

		sev := worst(snap)
		resp := struct {
			Severity checks.Severity        `json:"severity"`
			Checks   map[string]*CheckState `json:"checks,omitempty"`
		}{
			Severity: sev,
			Checks:   snap,
		}

		w.Header().Set("Content-Type", "application/json")
		if sev <= checks.SeverityWarning {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
