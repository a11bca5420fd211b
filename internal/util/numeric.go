package util

import (
	"strconv"
	"strings"
)

// ParseNumeric converts a cell value to a float, tolerating thousands
// separators and currency signs the way takeoff sheets write them
// ("1,250", "$600"). The second return is false when the value does not
// parse as a number at all.
func ParseNumeric(value string) (float64, bool) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return 0, false
	}
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "$", "")
	clean = strings.TrimSpace(clean)
	parsed, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// IsNumeric reports whether the value parses as a number.
func IsNumeric(value string) bool {
	_, ok := ParseNumeric(value)
	return ok
}

// IsLabel reports whether the value is a non-empty string that is not
// purely numeric.
func IsLabel(value string) bool {
	s := strings.TrimSpace(value)
	if s == "" {
		return false
	}
	return !IsNumeric(s)
}

// Round2 rounds to two decimals, keeping whole numbers whole.
func Round2(value float64) float64 {
	scaled := value * 100
	if scaled >= 0 {
		scaled += 0.5
	} else {
		scaled -= 0.5
	}
	return float64(int64(scaled)) / 100
}
