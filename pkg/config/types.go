package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that supports YAML parsing.
//
// Supports formats like: "1s", "5m", "2h", "100ms", "1h30m"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as integer (nanoseconds)
		var ns int64
		if err := unmarshal(&ns); err != nil {
			return fmt.Errorf("duration must be a string (e.g., '1s') or integer (nanoseconds)")
		}
		*d = Duration(ns)
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
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

// Temperature is an optional sampling temperature that unmarshals
// permissively: a JSON number, a numeric string, or null. Anything else
// leaves it unset instead of failing the whole config decode.
type Temperature struct {
	value *float64
}

// TemperatureOf returns a Temperature set to the given value.
func TemperatureOf(v float64) Temperature {
	return Temperature{value: &v}
}

// UnmarshalJSON implements json.Unmarshaler for Temperature.
// Invalid values degrade to unset, never to an error.
func (t *Temperature) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		t.value = &f
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			t.value = &parsed
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Temperature.
func (t Temperature) MarshalJSON() ([]byte, error) {
	if t.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*t.value)
}

// IsSet reports whether a temperature value was provided.
func (t Temperature) IsSet() bool {
	return t.value != nil
}

// Or returns the temperature value, or def when unset.
func (t Temperature) Or(def float64) float64 {
	if t.value == nil {
		return def
	}
	return *t.value
}
