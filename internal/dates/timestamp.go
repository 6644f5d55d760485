package dates

import (
	"strings"
	"time"
)

// timestampLayouts lists the date_mod shapes produced by the exporter, by the
// backfill step, and by spreadsheet round trips.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	DayLayout,
}

// ParseTimestamp parses a date_mod value. Empty or unrecognised values return
// false and are treated as not-a-time by callers. Values without a zone are
// interpreted as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// FormatDay renders ts as YYYY-MM-DD.
func FormatDay(ts time.Time) string {
	return ts.Format(DayLayout)
}
