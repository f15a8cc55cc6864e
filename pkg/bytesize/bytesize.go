// Package bytesize parses and formats human-readable byte sizes using
// binary (1024) units. "5MB", "1.5 GB", and a bare "1024" are all valid;
// unit names are case-insensitive and KiB-style spellings are accepted.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a byte count.
type Size int64

const (
	B  Size = 1
	KB Size = 1024
	MB Size = 1024 * KB
	GB Size = 1024 * MB
	TB Size = 1024 * GB
	PB Size = 1024 * TB
)

var units = map[string]Size{
	"":  B,
	"b": B,
	"k": KB, "kb": KB, "kib": KB,
	"m": MB, "mb": MB, "mib": MB,
	"g": GB, "gb": GB, "gib": GB,
	"t": TB, "tb": TB, "tib": TB,
	"p": PB, "pb": PB, "pib": PB,
}

// Parse reads a size like "5MB", "1.5 GB", or "1024" (bytes when no unit).
func Parse(s string) (Size, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("bytesize: empty string")
	}

	split := len(trimmed)
	for i, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}
	numPart := trimmed[:split]
	unitPart := strings.ToLower(strings.TrimSpace(trimmed[split:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid format %q", s)
	}
	mult, ok := units[unitPart]
	if !ok {
		return 0, fmt.Errorf("bytesize: unknown unit %q", unitPart)
	}
	return Size(value * float64(mult)), nil
}

// Format renders s with the largest unit that keeps the value at least 1.
// Whole values drop the fraction: Format(5*MB) is "5MB", Format(3*KB/2)
// is "1.5KB".
func Format(s Size) string {
	if s == 0 {
		return "0B"
	}
	neg := ""
	if s < 0 {
		neg, s = "-", -s
	}

	unit, name := B, "B"
	switch {
	case s >= PB:
		unit, name = PB, "PB"
	case s >= TB:
		unit, name = TB, "TB"
	case s >= GB:
		unit, name = GB, "GB"
	case s >= MB:
		unit, name = MB, "MB"
	case s >= KB:
		unit, name = KB, "KB"
	}
	if unit == B {
		return fmt.Sprintf("%s%dB", neg, s)
	}

	value := float64(s) / float64(unit)
	if value == float64(int64(value)) {
		return fmt.Sprintf("%s%d%s", neg, int64(value), name)
	}
	text := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
	return neg + text + name
}

// Bytes returns the size as int64.
func (s Size) Bytes() int64 {
	return int64(s)
}

func (s Size) String() string {
	return Format(s)
}
