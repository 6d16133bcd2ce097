package similarity

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ParseTimestamp normalizes an ISO 8601 timestamp. A trailing "Z" is rewritten to "+00:00" and timestamps
// without a zone are read as UTC. ok is false for empty or unparseable input, which callers treat as missing.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// storageLayout has a fixed width so that stored timestamps sort lexically.
const storageLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp is the canonical storage form read back by [ParseTimestamp].
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storageLayout)
}
