package dates

import (
	"regexp"
	"time"
)

// DayLayout is the output form of every extracted date.
const DayLayout = "2006-01-02"

var (
	dayFirstPattern  = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})(?:\s+\d{2}:\d{2}:\d{2})?`)
	yearFirstPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})(?:\s+\d{2}:\d{2}:\d{2})?`)
)

// Extract returns the first calendar date found in value formatted as
// YYYY-MM-DD. Values that are not text yield false.
func Extract(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return ExtractString(v)
	case []byte:
		return ExtractString(string(v))
	case *string:
		if v == nil {
			return "", false
		}
		return ExtractString(*v)
	default:
		return "", false
	}
}

// ExtractString is Extract for text input.
//
// A DD/MM/YYYY match always takes precedence; YYYY-MM-DD is only considered
// when no day-first date is present. A winning match that is not a valid
// calendar date (32/13/2024) yields false without falling back.
func ExtractString(text string) (string, bool) {
	if m := dayFirstPattern.FindStringSubmatch(text); m != nil {
		return reformat(m[1], "02/01/2006")
	}
	if m := yearFirstPattern.FindStringSubmatch(text); m != nil {
		return reformat(m[1], DayLayout)
	}
	return "", false
}

func reformat(raw, layout string) (string, bool) {
	parsed, err := time.Parse(layout, raw)
	if err != nil {
		return "", false
	}
	return parsed.Format(DayLayout), true
}
