// Package config loads the YAML check configuration shared by the CLI's
// run command and the agent.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/clustergate/cloudcheck/internal/checks"
)

// Check types.
const (
	TypeCreateDelete = "create-delete"
	TypeList         = "list"
	TypeExists       = "exists"
	TypeHTTP         = "http"
)

// Defaults applied by Load.
const (
	DefaultNamespace = "default"
	DefaultInterval  = 5 * time.Minute
)

// Config is the top-level check configuration file.
type Config struct {
	// Namespace is where resources are created and looked up.
	Namespace  string     `yaml:"namespace"`
	Interval   Duration   `yaml:"interval" validate:"gte=0"`
	Thresholds Thresholds `yaml:"thresholds"`
	Checks     []Check    `yaml:"checks" validate:"required,min=1,unique=Name,dive"`
}

// Thresholds are the elapsed-time limits above which a successful check
// is reported as WARNING or CRITICAL. Zero disables a limit.
type Thresholds struct {
	Warning  Duration `yaml:"warning" validate:"gte=0"`
	Critical Duration `yaml:"critical" validate:"gte=0"`
}

// Checks converts to the classifier's thresholds.
func (t Thresholds) Checks() checks.Thresholds {
	return checks.Thresholds{Warning: t.Warning.D(), Critical: t.Critical.D()}
}

// Check configures one named check. Type selects which of the grouped
// fields apply; Thresholds and Interval override the file-wide values.
type Check struct {
	Name       string      `yaml:"name" validate:"required,max=63"`
	Type       string      `yaml:"type" validate:"required,oneof=create-delete list exists http"`
	Kind       string      `yaml:"kind" validate:"omitempty,oneof=volume server object"`
	Interval   Duration    `yaml:"interval" validate:"gte=0"`
	Thresholds *Thresholds `yaml:"thresholds"`

	// create-delete
	Resource      Resource `yaml:"resource"`
	ReadyTimeout  Duration `yaml:"readyTimeout" validate:"gte=0"`
	DeleteTimeout Duration `yaml:"deleteTimeout" validate:"gte=0"`
	PollInterval  Duration `yaml:"pollInterval" validate:"gte=0"`
	DeleteStale   bool     `yaml:"deleteStale"`
	ReadyStatus   string   `yaml:"readyStatus" validate:"omitempty,oneof=available pending stopped"`

	// exists
	Target string `yaml:"target" validate:"required_if=Type exists"`

	// list
	Limit int `yaml:"limit" validate:"gte=0"`

	HTTP *HTTP `yaml:"http" validate:"required_if=Type http"`
}

// Resource describes the test resource a create-delete check creates.
type Resource struct {
	Name   string            `yaml:"name" validate:"omitempty,max=63"`
	Size   string            `yaml:"size"`
	Type   string            `yaml:"type"`
	Zone   string            `yaml:"zone"`
	Image  string            `yaml:"image"`
	Labels map[string]string `yaml:"labels"`
}

// HTTP configures an http check.
type HTTP struct {
	URL            string            `yaml:"url" validate:"required,url"`
	Method         string            `yaml:"method" validate:"omitempty,oneof=GET POST PUT DELETE HEAD"`
	StatusOkay     []int             `yaml:"statusOkay" validate:"dive,gte=100,lte=599"`
	StatusWarning  []int             `yaml:"statusWarning" validate:"dive,gte=100,lte=599"`
	StatusCritical []int             `yaml:"statusCritical" validate:"dive,gte=100,lte=599"`
	Timeout        Duration          `yaml:"timeout" validate:"gte=0"`
	Insecure       bool              `yaml:"insecure"`
	CAFile         string            `yaml:"caFile" validate:"omitempty,file"`
	Headers        map[string]string `yaml:"headers"`
}

// Load reads path, expands ${VAR} references from the environment, parses
// the YAML and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	data, err := envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Interval == 0 {
		c.Interval = Duration(DefaultInterval)
	}
	if c.Thresholds.Warning == 0 && c.Thresholds.Critical == 0 {
		c.Thresholds = Thresholds{
			Warning:  Duration(checks.DefaultWarningThreshold),
			Critical: Duration(checks.DefaultCriticalThreshold),
		}
	}
	for i := range c.Checks {
		check := &c.Checks[i]
		if check.Interval == 0 {
			check.Interval = c.Interval
		}
		if check.Thresholds == nil {
			th := c.Thresholds
			check.Thresholds = &th
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, check := range c.Checks {
		if check.Type != TypeHTTP && check.Kind == "" {
			return fmt.Errorf("invalid config: check %q: kind is required for %s checks", check.Name, check.Type)
		}
		if th := check.Thresholds; th != nil && th.Warning > 0 && th.Critical > 0 && th.Warning > th.Critical {
			return fmt.Errorf("invalid config: check %q: warning threshold %s exceeds critical threshold %s", check.Name, th.Warning, th.Critical)
		}
	}
	return nil
}
