package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so koanf/yaml/env can unmarshal human-
// readable strings ("30s", "5m") the way the teacher's config package does.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
