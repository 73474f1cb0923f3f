package cmd

import (
	"fmt"
	"strings"
	"time"

	"washbay/internal/domain"
)

// parseTimeFlag accepts an RFC3339 timestamp or a duration meaning "that
// long ago". An empty value means no bound.
func parseTimeFlag(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		utc := t.UTC()
		return &utc, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return nil, fmt.Errorf("%w: %q is neither RFC3339 nor a positive duration", domain.ErrInvalidInput, value)
	}
	t := now.Add(-d).UTC()
	return &t, nil
}
