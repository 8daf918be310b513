package config

import (
	"fmt"
	"strconv"
	"time"
)

// Duration accepts Go duration strings ("90s", "5m") or integer seconds.
// It implements pflag.Value so the same syntax works on the command line.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// ParseDuration parses a duration string or a bare number of seconds,
// which may be fractional. Negative durations are rejected.
func ParseDuration(s string) (Duration, error) {
	var parsed time.Duration
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		parsed = time.Duration(seconds * float64(time.Second))
	} else if parsed, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("duration: %q must not be negative", s)
	}
	return Duration(parsed), nil
}

// Set implements pflag.Value.
func (d *Duration) Set(s string) error {
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Type implements pflag.Value.
func (d *Duration) Type() string { return "duration" }

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var seconds int64
	if err := unmarshal(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("duration: must be a duration string or integer seconds")
	}
	return d.Set(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
