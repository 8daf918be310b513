package builtin

import (
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/checks/httpcheck"
	"github.com/clustergate/cloudcheck/internal/checks/inventory"
	"github.com/clustergate/cloudcheck/internal/config"
	"github.com/clustergate/cloudcheck/internal/lifecycle"
	"github.com/clustergate/cloudcheck/internal/resource"
	"github.com/clustergate/cloudcheck/internal/resource/kube"
)

// Entry pairs a configured check with the interval the agent runs it at.
type Entry struct {
	Checker  checks.Checker
	Interval time.Duration
}

// Build constructs every check in cfg against c.
func Build(cfg *config.Config, c client.Client) ([]Entry, error) {
	entries := make([]Entry, 0, len(cfg.Checks))
	for _, check := range cfg.Checks {
		checker, err := New(check, cfg.Namespace, c)
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", check.Name, err)
		}
		entries = append(entries, Entry{Checker: checker, Interval: check.Interval.D()})
	}
	return entries, nil
}

// New constructs a single configured check.
func New(check config.Check, namespace string, c client.Client) (checks.Checker, error) {
	var th checks.Thresholds
	if check.Thresholds != nil {
		th = check.Thresholds.Checks()
	}

	if check.Type == config.TypeHTTP {
		h := check.HTTP
		return httpcheck.New(check.Name, httpcheck.Config{
			URL:            h.URL,
			Method:         h.Method,
			StatusOkay:     h.StatusOkay,
			StatusWarning:  h.StatusWarning,
			StatusCritical: h.StatusCritical,
			Timeout:        h.Timeout.D(),
			Insecure:       h.Insecure,
			CAFile:         h.CAFile,
			Headers:        h.Headers,
			Thresholds:     th,
		})
	}

	kc, err := kube.ForKind(check.Kind, c, namespace)
	if err != nil {
		return nil, err
	}

	switch check.Type {
	case config.TypeCreateDelete:
		return lifecycle.New(kc, LifecycleConfig(check), lifecycle.WithName(check.Name)), nil
	case config.TypeList:
		return &inventory.ListCheck{CheckName: check.Name, Kind: kc.Kind(), Lister: kc, Limit: check.Limit, Thresholds: th}, nil
	case config.TypeExists:
		return &inventory.ExistsCheck{CheckName: check.Name, Client: kc, Target: check.Target, Thresholds: th}, nil
	default:
		return nil, fmt.Errorf("unknown check type %q", check.Type)
	}
}

// LifecycleConfig maps a create-delete check to the probe configuration.
func LifecycleConfig(check config.Check) lifecycle.Config {
	cfg := lifecycle.Config{
		Spec: resource.Spec{
			Name:   check.Resource.Name,
			Size:   check.Resource.Size,
			Type:   check.Resource.Type,
			Zone:   check.Resource.Zone,
			Image:  check.Resource.Image,
			Labels: check.Resource.Labels,
		},
		ReadyTimeout:  check.ReadyTimeout.D(),
		DeleteTimeout: check.DeleteTimeout.D(),
		PollInterval:  check.PollInterval.D(),
		DeleteStale:   check.DeleteStale,
		ReadyStatus:   check.ReadyStatus,
	}
	if check.Thresholds != nil {
		cfg.Thresholds = check.Thresholds.Checks()
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = lifecycle.DefaultReadyTimeout
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = lifecycle.DefaultDeleteTimeout
	}
	return cfg
}

// RegisterAll registers every built check into the global registry.
func RegisterAll(entries []Entry) {
	for _, e := range entries {
		checks.Register(e.Checker)
	}
}
