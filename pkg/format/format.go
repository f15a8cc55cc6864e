// Package format renders counts, rates, and schedules for CLI output.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Bytes formats a byte count with a binary-unit suffix.
// Example: Bytes(1536) => "1.5 KB"
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), units[exp])
}

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// NumberCompact formats a number in compact notation.
// Example: NumberCompact(1234567) => "1.2M"
func NumberCompact(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// Percentage formats a percentage value.
// Example: Percentage(45.678, 1) => "45.7%"
func Percentage(value float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, value)
}

var dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// CronDescription describes a 6-field cron expression (seconds column first)
// in plain English. Expressions it cannot describe come back unchanged.
// Example: CronDescription("0 0 2 * * *") => "Daily at 2AM"
func CronDescription(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 6 {
		return expr
	}
	sec, min, hour, dom, _, dow := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	if iv := interval(sec); iv > 0 {
		return fmt.Sprintf("Every %d seconds", iv)
	}
	if iv := interval(min); iv > 0 {
		return fmt.Sprintf("Every %d minutes", iv)
	}
	if iv := interval(hour); iv > 0 {
		return fmt.Sprintf("Every %d hours", iv)
	}
	if min == "*" {
		return "Every minute"
	}
	m, err := strconv.Atoi(min)
	if err != nil {
		return expr
	}
	if hour == "*" {
		if m == 0 {
			return "Every hour"
		}
		return fmt.Sprintf("Every hour at :%02d", m)
	}
	h, err := strconv.Atoi(hour)
	if err != nil {
		return expr
	}
	at := clockTime(h, m)
	if dow != "*" && dom == "*" {
		if d, err := strconv.Atoi(dow); err == nil && d >= 0 && d < 7 {
			return fmt.Sprintf("%ss at %s", dayNames[d], at)
		}
		return expr
	}
	if dom != "*" {
		if d, err := strconv.Atoi(dom); err == nil {
			return fmt.Sprintf("Day %d of each month at %s", d, at)
		}
		return expr
	}
	return fmt.Sprintf("Daily at %s", at)
}

// interval extracts the step of a */N cron field, 0 when the field is not one.
func interval(field string) int {
	rest, ok := strings.CutPrefix(field, "*/")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return n
}

func clockTime(hour, minute int) string {
	if hour == 0 && minute == 0 {
		return "midnight"
	}
	if hour == 12 && minute == 0 {
		return "noon"
	}
	period := "AM"
	h12 := hour
	switch {
	case hour == 0:
		h12 = 12
	case hour == 12:
		period = "PM"
	case hour > 12:
		period = "PM"
		h12 = hour - 12
	}
	if minute == 0 {
		return fmt.Sprintf("%d%s", h12, period)
	}
	return fmt.Sprintf("%d:%02d%s", h12, minute, period)
}

// RelativeTime formats a time as a relative duration from now.
// Example: RelativeTime(time.Now().Add(-5*time.Minute)) => "5 minutes ago"
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		return "in " + relativeSpan(-d, "a moment")
	}
	if d < time.Minute {
		return "just now"
	}
	return relativeSpan(d, "") + " ago"
}

func relativeSpan(d time.Duration, subMinute string) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d < time.Minute:
		return subMinute
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}
