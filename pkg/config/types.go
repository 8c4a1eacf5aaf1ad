package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Shared types used across configuration structs

// Duration is a time.Duration that supports YAML parsing from duration
// strings ("30s", "5m", "1h30m") or integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements custom unmarshaling for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("duration must be a string (e.g. '30s') or integer nanoseconds")
	}
	*d = Duration(ns)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String returns the string representation.
func (d Duration) String() string {
	return time.Duration(d).String()
}
