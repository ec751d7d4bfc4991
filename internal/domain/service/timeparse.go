package service

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order; the first successful parse wins.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"2006-01-02",
}

// ParseTimestamp converts a raw timestamp string into a comparable instant.
// It returns nil when the input is empty or matches none of the supported
// layouts. Callers must treat nil as "timestamp unknown" and exclude it from
// temporal calculations rather than interpreting it as epoch zero.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}
