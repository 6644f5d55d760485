package fleet

import (
	"math"
	"strconv"
	"strings"
)

// UserID is the canonical identity type for users. It is always text; each
// comparison documents the coercion it applies.
type UserID string

// CanonicalUserID returns the grouping key for a raw user id: the integer form
// when the value is integral ("5.0" becomes "5"), the trimmed text otherwise.
func CanonicalUserID(raw string) UserID {
	trimmed := strings.TrimSpace(raw)
	if n, ok := parseInteger(trimmed); ok {
		return UserID(strconv.FormatInt(n, 10))
	}
	return UserID(trimmed)
}

// compareUserIDs orders integer ids numerically before any non-integer id,
// which are ordered as text.
func compareUserIDs(a, b UserID) int {
	an, aok := parseInteger(string(a))
	bn, bok := parseInteger(string(b))
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseInteger(raw string) (int64, bool) {
	v, ok := parseNumber(raw)
	if !ok || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, false
	}
	return int64(v), true
}
