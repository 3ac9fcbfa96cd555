package appointment

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHHMM converts "HH:MM" to minutes since midnight.
func ParseHHMM(v string) (int, bool) {
	parts := strings.SplitN(v, ":", 3)
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatHHMM converts minutes since midnight back to "HH:MM", wrapping at
// midnight the way the original time pickers do.
func FormatHHMM(minutes int) string {
	minutes %= 24 * 60
	if minutes < 0 {
		minutes += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes adds a number of minutes to an "HH:MM" time.
func AddMinutes(hhmm string, minutes int) (string, bool) {
	t, ok := ParseHHMM(hhmm)
	if !ok {
		return "", false
	}
	return FormatHHMM(t + minutes), true
}

// SplitISO divides "YYYY-MM-DDTHH:MM[:SS]" into date and HH:MM parts.
func SplitISO(iso string) (date, hhmm string) {
	date, rest, found := strings.Cut(iso, "T")
	if !found {
		return date, ""
	}
	return date, clipHHMM(rest)
}

func spanMinutes(start, end string) (int, bool) {
	s, ok := ParseHHMM(start)
	if !ok {
		return 0, false
	}
	e, ok := ParseHHMM(end)
	if !ok {
		return 0, false
	}
	return e - s, true
}

// clipHHMM trims seconds off "HH:MM:SS" values some endpoints return.
func clipHHMM(v string) string {
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
