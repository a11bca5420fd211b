// Package uom normalizes unit-of-measure strings to the canonical set
// {EA, SF, LF, LVL}. The legacy "FT" spelling and all its variants always
// normalize to LF and are never emitted.
package uom

import (
	"fmt"
	"strings"
)

// Canonical units.
const (
	EA  = "EA"
	SF  = "SF"
	LF  = "LF"
	LVL = "LVL"
)

var canonical = map[string]struct{}{
	EA: {}, SF: {}, LF: {}, LVL: {},
}

var aliases = map[string]string{
	"FT":          LF,
	"FEET":        LF,
	"FOOT":        LF,
	"LINEAR FT":   LF,
	"LINEAR FEET": LF,
	"L.F.":        LF,
	"LFT":         LF,
	"LIN FT":      LF,
	"LIN. FT.":    LF,
	"LF":          LF,

	"SF":          SF,
	"SQFT":        SF,
	"SQ FT":       SF,
	"SQ.FT.":      SF,
	"SQUARE FEET": SF,
	"SQUARE FT":   SF,

	"EA":     EA,
	"EACH":   EA,
	"PCS":    EA,
	"PIECE":  EA,
	"PIECES": EA,
	"COUNT":  EA,
	"UNIT":   EA,
	"UNITS":  EA,

	"LVL":    LVL,
	"LEVEL":  LVL,
	"LEVELS": LVL,
	"FLOOR":  LVL,
	"FLOORS": LVL,
}

// Normalize maps a raw unit string to its canonical form. Unrecognized
// inputs pass through uppercased so novel spellings degrade gracefully
// instead of failing the run. Empty input stays empty.
func Normalize(unit string) string {
	u := strings.ToUpper(strings.TrimSpace(unit))
	if u == "" {
		return ""
	}
	if mapped, ok := aliases[u]; ok {
		return mapped
	}
	return u
}

// IsCanonical reports whether the unit is already a member of the
// canonical set.
func IsCanonical(unit string) bool {
	_, ok := canonical[strings.ToUpper(strings.TrimSpace(unit))]
	return ok
}

// CheckMismatch compares a parsed unit with the unit the catalog expects,
// after normalizing both. It returns a human-readable description of the
// conflict, or "" when they agree or either side is missing.
func CheckMismatch(parsed, expected string) string {
	if strings.TrimSpace(parsed) == "" || strings.TrimSpace(expected) == "" {
		return ""
	}
	parsedNorm := Normalize(parsed)
	expectedNorm := Normalize(expected)
	if parsedNorm == expectedNorm {
		return ""
	}
	return fmt.Sprintf("UOM mismatch: parsed %q (normalized: %s) vs expected %q (normalized: %s)",
		parsed, parsedNorm, expected, expectedNorm)
}
