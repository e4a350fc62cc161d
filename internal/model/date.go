package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// Date is a calendar day in UTC written as YYYY-MM-DD.
type Date string

// ParseDate validates s and returns it as a Date.  Full RFC 3339
// timestamps are accepted and truncated to their UTC day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t.Format(DateLayout)), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date(t.UTC().Format(DateLayout)), nil
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// DateOf returns the UTC day containing t.
func DateOf(t time.Time) Date { return Date(t.UTC().Format(DateLayout)) }

// Time returns midnight UTC of d.  An unparsable Date yields the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// UnixMilli returns midnight UTC of d in Unix milliseconds.
func (d Date) UnixMilli() int64 { return d.Time().UnixMilli() }

func (d Date) IsZero() bool { return d == "" }

// Before reports whether d is strictly earlier than o.  The layout sorts
// lexically so no parsing is needed.
func (d Date) Before(o Date) bool { return string(d) < string(o) }

// WholeDaysUntil returns floor((end-now)/day) clamped at zero.
func WholeDaysUntil(end Date, now time.Time) int {
	return WholeDaysBetween(now.UnixMilli(), end.UnixMilli())
}

// WholeDaysBetween returns the number of complete days from fromMs to toMs,
// or zero when toMs is not after fromMs.
func WholeDaysBetween(fromMs, toMs int64) int {
	if toMs <= fromMs {
		return 0
	}
	return int((toMs - fromMs) / msPerDay)
}
