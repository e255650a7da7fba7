// Package laptime converts the textual time representations found in timing
// exports into seconds, and back again for display.
package laptime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var placeholders = map[string]bool{
	"":     true,
	"--":   true,
	"-":    true,
	"n/a":  true,
	"na":   true,
	"nan":  true,
	"nat":  true,
	"null": true,
	"none": true,
}

// IsPlaceholder reports whether s is one of the tokens timing exports use to
// mean "no value".
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// Parse converts s to seconds. It accepts clock strings (M:SS.mmm,
// H:MM:SS.mmm), ISO-8601 durations (PT1M2.8S), pandas-style timedeltas
// ("0 days 00:01:02.800"), Go durations ("1m2.8s") and plain decimal seconds.
// The boolean is false for placeholders and anything unparsable.
func Parse(s string) (float64, bool) {
	s = strings.TrimSpace(s)

	if IsPlaceholder(s) {
		return math.NaN(), false
	}

	var (
		v  float64
		ok bool
	)

	switch {
	case strings.HasPrefix(s, "P") || strings.HasPrefix(s, "-P"):
		v, ok = parseISO(s)
	case strings.Contains(s, "day"):
		v, ok = parseDays(s)
	case strings.Contains(s, ":"):
		v, ok = parseClock(s)
	default:
		v, ok = parsePlain(s)
	}

	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}

	return v, true
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) float64 {
	v, ok := Parse(s)

	if !ok {
		panic(fmt.Sprintf("laptime: could not parse %q", s))
	}

	return v
}

func parsePlain(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d.Seconds(), true
	}

	return 0, false
}

// parseClock handles M:SS.fff and H:MM:SS.fff. The whole seconds and the
// fraction are recombined as a decimal string so that "2:13.572" yields the
// same float64 as the literal 133.572.
func parseClock(s string) (float64, bool) {
	negative := false

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	parts := strings.Split(s, ":")

	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	var whole int64

	for _, part := range parts[:len(parts)-1] {
		n, err := strconv.ParseInt(part, 10, 64)

		if err != nil || n < 0 {
			return 0, false
		}

		whole = whole*60 + n
	}

	secs, frac, err := splitSeconds(parts[len(parts)-1])

	if err != nil {
		return 0, false
	}

	return combine(negative, whole*60+secs, frac)
}

// parseDays handles the "N days HH:MM:SS.ffffff" form that pandas writes
// when a timedelta column is exported.
func parseDays(s string) (float64, bool) {
	fields := strings.Fields(s)

	if len(fields) != 3 || !strings.HasPrefix(fields[1], "day") {
		return 0, false
	}

	days, err := strconv.ParseInt(fields[0], 10, 64)

	if err != nil {
		return 0, false
	}

	clock, ok := parseClock(fields[2])

	if !ok {
		return 0, false
	}

	return float64(days)*86400 + clock, true
}

func parseISO(s string) (float64, bool) {
	negative := false

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	s = strings.TrimPrefix(s, "P")

	if s == "" {
		return 0, false
	}

	var (
		whole  int64
		frac   string
		inTime bool
		seen   bool
	)

	for len(s) > 0 {
		if s[0] == 'T' {
			inTime = true
			s = s[1:]
			continue
		}

		i := strings.IndexFunc(s, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		})

		if i <= 0 {
			return 0, false
		}

		num, unit := s[:i], s[i]
		s = s[i+1:]
		seen = true

		if unit == 'S' && inTime {
			secs, f, err := splitSeconds(num)

			if err != nil {
				return 0, false
			}

			whole += secs
			frac = f
			continue
		}

		n, err := strconv.ParseInt(num, 10, 64)

		if err != nil {
			return 0, false
		}

		switch {
		case unit == 'D' && !inTime:
			whole += n * 86400
		case unit == 'W' && !inTime:
			whole += n * 7 * 86400
		case unit == 'H' && inTime:
			whole += n * 3600
		case unit == 'M' && inTime:
			whole += n * 60
		default:
			// years and months have no fixed length in seconds.
			return 0, false
		}
	}

	if !seen {
		return 0, false
	}

	return combine(negative, whole, frac)
}

func splitSeconds(s string) (int64, string, error) {
	intPart, frac := s, ""

	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}

	if intPart == "" {
		intPart = "0"
	}

	n, err := strconv.ParseInt(intPart, 10, 64)

	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("laptime: bad seconds %q", s)
	}

	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, "", fmt.Errorf("laptime: bad fraction %q", s)
		}
	}

	return n, frac, nil
}

func combine(negative bool, whole int64, frac string) (float64, bool) {
	str := strconv.FormatInt(whole, 10)

	if frac != "" {
		str += "." + frac
	}

	v, err := strconv.ParseFloat(str, 64)

	if err != nil {
		return 0, false
	}

	if negative {
		v = -v
	}

	return v, true
}

// Format renders seconds as M:SS.mmm, the way lap times are shown on a timing
// screen. Missing values render as "--".
func Format(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "--"
	}

	negative := ""

	if seconds < 0 {
		negative = "-"
		seconds = -seconds
	}

	millis := int64(math.Round(seconds * 1000))
	mins := millis / 60000
	millis -= mins * 60000
	secs := millis / 1000
	millis -= secs * 1000

	return fmt.Sprintf("%s%d:%02d.%03d", negative, mins, secs, millis)
}

// FormatDelta renders a signed difference in seconds, e.g. "+1.204".
func FormatDelta(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "--"
	}

	return fmt.Sprintf("%+.3f", seconds)
}
