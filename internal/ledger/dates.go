package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/creditline/internal/domain"
)

const (
	day           = 24 * time.Hour
	secondsPerDay = int64(day / time.Second)
)

// DateLayout is the display format for ledger dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// NormalizeDate truncates t to its calendar date, expressed as UTC midnight.
// The calendar date is taken in t's own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a date-like value and normalizes it to a ledger date.
// Supported: time.Time, ISO date or date-time strings, and millisecond
// Unix timestamps given as integers, floats, json.Number or digit strings.
func ParseDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return NormalizeDate(x), nil
	case *time.Time:
		if x == nil {
			return time.Time{}, dateError("missing")
		}
		return NormalizeDate(*x), nil
	case int:
		return fromMillis(int64(x)), nil
	case int64:
		return fromMillis(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, dateError("not a finite timestamp")
		}
		return fromMillis(int64(x)), nil
	case json.Number:
		return parseDateString(x.String())
	case string:
		return parseDateString(x)
	case nil:
		return time.Time{}, dateError("missing")
	default:
		return time.Time{}, dateError(fmt.Sprintf("unsupported type %T", v))
	}
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, dateError("missing")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromMillis(ms), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return fromMillis(int64(f)), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, dateError(fmt.Sprintf("cannot parse %q", s))
}

func fromMillis(ms int64) time.Time {
	return NormalizeDate(time.UnixMilli(ms).UTC())
}

func dateError(msg string) error {
	return &domain.ErrValidation{Field: "date", Message: msg}
}

// daysBetween counts whole days from a to b. Both must be normalized.
// Unix seconds are used because time.Duration overflows past ~292 years.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// FormatDate renders a ledger date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
