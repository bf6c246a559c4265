package config

import (
	"fmt"
	"time"
)

// minTTL is the smallest non-zero duration ParseTTL accepts; an explicitly
// given sub-minute value is rejected outright rather than silently clamped.
// The built-in drain timeout default (10s) does not pass through ParseTTL.
const minTTL = time.Minute

// ParseTTL parses a Go duration string, with "" meaning unlimited (zero) and
// any non-zero value below one minute rejected as almost certainly a typo.
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	if d < minTTL {
		return 0, fmt.Errorf("config: duration %q is below the minimum of %s", s, minTTL)
	}
	return d, nil
}
