package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeSpaces trims and collapses internal whitespace runs to one space.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeSheetName lowercases, trims and collapses whitespace so that
// "Units ", " units" and "UNITS" all compare equal.
func NormalizeSheetName(name string) string {
	return NormalizeSpaces(strings.ToLower(name))
}

// Tokenize splits on whitespace after lowercasing, dropping empty tokens.
func Tokenize(input string) []string {
	parts := strings.Fields(strings.ToLower(input))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
