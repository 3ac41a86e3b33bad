package history

import (
	"time"
)

const dateLayout = "2006-01-02"

// parseTimestamp parses a transcript timestamp: RFC3339 or a bare date.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseTimeBound parses a since/until argument. Besides the timestamp forms
// it accepts "YYYY-MM-DDTHH:MM:SS" (UTC) and the relative words "today"
// (midnight UTC), "week" (now-7d) and "month" (now-30d).
func ParseTimeBound(s string, now time.Time) (time.Time, error) {
	now = now.UTC()
	switch s {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, 0, -30), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, newError(KindInvalidArgument, "invalid time %q, expected RFC3339, YYYY-MM-DD, today, week or month", s)
}

// TimeWindow bounds messages by timestamp. Zero bounds are open; both
// bounds are inclusive.
type TimeWindow struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether a raw timestamp falls inside the window.
// Unparsable timestamps are kept.
func (w TimeWindow) Contains(timestamp string) bool {
	if w.Since.IsZero() && w.Until.IsZero() {
		return true
	}
	ts, ok := parseTimestamp(timestamp)
	if !ok {
		return true
	}
	if !w.Since.IsZero() && ts.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && ts.After(w.Until) {
		return false
	}
	return true
}
