// Package duration parses and formats durations with day-and-larger units
// on top of Go's native format. "30d", "2 weeks", "1w2d12h", and "720h"
// are all accepted; a day is 24 hours, a month 30 days, a year 365 days.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

var unitValues = map[string]time.Duration{
	"ns": time.Nanosecond, "nanosecond": time.Nanosecond, "nanoseconds": time.Nanosecond,
	"us": time.Microsecond, "µs": time.Microsecond,
	"microsecond": time.Microsecond, "microseconds": time.Microsecond,
	"ms": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": Day, "day": Day, "days": Day,
	"w": Week, "wk": Week, "wks": Week, "week": Week, "weeks": Week,
	"mo": Month, "mos": Month, "month": Month, "months": Month,
	"y": Year, "yr": Year, "yrs": Year, "year": Year, "years": Year,
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Parse reads a duration as a sequence of number+unit tokens, with optional
// whitespace anywhere between them. Units may be spelled out ("30 days") or
// abbreviated ("30d"); tokens add up ("1w2d12h").
func Parse(s string) (time.Duration, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return 0, fmt.Errorf("duration: empty string")
	}
	neg := false
	if rest, ok := strings.CutPrefix(text, "-"); ok {
		neg = true
		text = strings.TrimSpace(rest)
	}

	var total time.Duration
	i := 0
	for i < len(text) {
		for i < len(text) && text[i] == ' ' {
			i++
		}
		if i == len(text) {
			break
		}

		start := i
		for i < len(text) && (isDigit(text[i]) || text[i] == '.') {
			i++
		}
		value, err := strconv.ParseFloat(text[start:i], 64)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid format %q", s)
		}

		for i < len(text) && text[i] == ' ' {
			i++
		}
		unitStart := i
		for i < len(text) && !isDigit(text[i]) && text[i] != ' ' && text[i] != '.' {
			i++
		}
		unit := text[unitStart:i]
		if unit == "" {
			if value == 0 {
				continue
			}
			return 0, fmt.Errorf("duration: missing unit in %q", s)
		}
		uv, ok := unitValues[unit]
		if !ok {
			return 0, fmt.Errorf("duration: unknown unit %q in %q", unit, s)
		}
		total += time.Duration(value * float64(uv))
	}

	if neg {
		total = -total
	}
	return total, nil
}

var formatSteps = []struct {
	unit time.Duration
	name string
}{
	{Year, "y"}, {Month, "mo"}, {Week, "w"}, {Day, "d"},
	{time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"},
	{time.Millisecond, "ms"}, {time.Microsecond, "µs"}, {time.Nanosecond, "ns"},
}

// Format renders d with the largest units first, omitting zero components:
// 36*time.Hour becomes "1d12h", 90*Day becomes "3mo".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	neg := ""
	if d < 0 {
		neg, d = "-", -d
	}
	var b strings.Builder
	for _, step := range formatSteps {
		if n := d / step.unit; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, step.name)
			d -= n * step.unit
		}
	}
	return neg + b.String()
}
