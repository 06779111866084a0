// Package analysis turns model-reported highlight candidates into clip
// records and drives the per-video analysis workflow.
package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimecode converts a model-reported time string into seconds.
// Accepted shapes are HH:MM:SS, MM:SS and a plain number of seconds.
// Fractional seconds are allowed in the last component. Anything else
// yields an error.
func ParseTimecode(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time string")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time string: %q", s)
	}

	if len(parts) == 1 {
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time string: %q", s)
		}
		return v, nil
	}

	var total float64
	for i, part := range parts {
		last := i == len(parts)-1

		var v float64
		if last {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil || f < 0 || f >= 60 {
				return 0, fmt.Errorf("invalid seconds in time string: %q", s)
			}
			v = f
		} else {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid time string: %q", s)
			}
			if len(parts) == 3 && i == 1 && n >= 60 {
				return 0, fmt.Errorf("invalid minutes in time string: %q", s)
			}
			v = float64(n)
		}
		total = total*60 + v
	}
	return total, nil
}

// FormatTimecode renders seconds as HH:MM:SS, keeping fractional seconds when
// present so a round-trip through ParseTimecode recovers the value.
func FormatTimecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	whole := math.Floor(seconds)
	frac := seconds - whole

	total := int64(whole)
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60

	if frac == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}

	fracStr := strconv.FormatFloat(frac, 'f', -1, 64)
	// Drop the leading "0" from "0.5" and append to the seconds field.
	return fmt.Sprintf("%02d:%02d:%02d%s", h, m, sec, fracStr[1:])
}
