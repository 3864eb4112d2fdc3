package reminder

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/notexe/mcp-reminders/internal/eventstore"
)

// epochTimer is satisfied by platform time values that can report seconds
// since the Unix epoch.
type epochTimer interface {
	TimeIntervalSince1970() float64
}

// NormalizeDueDate turns the date shapes accepted at the request boundary
// into a time.Time: platform time values, ISO-8601 text and time.Time.
// Anything else goes through the generic check, which accepts numeric epoch
// seconds and rejects the rest with a validation error naming field.
func NormalizeDueDate(field string, v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case *time.Time:
		if d != nil {
			return *d, nil
		}
	case epochTimer:
		return fromEpoch(d.TimeIntervalSince1970()), nil
	case string:
		t, err := ParseISO8601(d)
		if err != nil {
			return time.Time{}, validationError(field, err.Error())
		}
		return t, nil
	}
	return coerceDateTime(field, v)
}

func coerceDateTime(field string, v interface{}) (time.Time, error) {
	switch n := v.(type) {
	case float64:
		return fromEpoch(n), nil
	case int:
		return time.Unix(int64(n), 0), nil
	case int64:
		return time.Unix(n, 0), nil
	case json.Number:
		f, err := n.Float64()
		if err == nil {
			return fromEpoch(f), nil
		}
	}
	return time.Time{}, validationErrorf(field, "input should be a valid datetime, got %T", v)
}

func fromEpoch(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}

var (
	zonedLayouts = []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02T15",
		"2006-01-02",
	}
)

// ParseISO8601 parses the common ISO-8601 forms. Text without an offset is
// read as local wall-clock time. A space may stand in for the 'T' separator.
func ParseISO8601(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidISOError(s)
}

// ComponentsFromTime splits t, in local time, into store date components.
// Seconds are dropped.
func ComponentsFromTime(t time.Time) *eventstore.DateComponents {
	t = t.Local()
	return &eventstore.DateComponents{
		Year:   int64(t.Year()),
		Month:  int64(t.Month()),
		Day:    int64(t.Day()),
		Hour:   int64(t.Hour()),
		Minute: int64(t.Minute()),
	}
}

// TimeFromComponents rebuilds a local time from date components. Undefined
// fields fall back to year 1, January, day 1, 00:00. This is lossy: after the
// conversion an unset field looks the same as one set to its default.
func TimeFromComponents(dc *eventstore.DateComponents) time.Time {
	return time.Date(
		orDefault(dc.Year, 1),
		time.Month(orDefault(dc.Month, 1)),
		orDefault(dc.Day, 1),
		orDefault(dc.Hour, 0),
		orDefault(dc.Minute, 0),
		0, 0, time.Local,
	)
}

func orDefault(v int64, def int) int {
	if v == eventstore.Undefined {
		return def
	}
	return int(v)
}
