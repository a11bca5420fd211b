// Package classify normalizes free-text item classifications for stable
// comparison and assigns deterministic canonical identifiers to resolved
// items.
package classify

import (
	"regexp"
	"strings"
)

// Synonym folding merges near-duplicate terms before matching. Keys may be
// multi-word phrases; longer phrases win over their words, so "gypsum
// board" folds as a unit to "drywall". The canonicalized text is used only
// for matching and never surfaced in results.
var synonyms = map[string]string{
	"mdf":                      "mdf",
	"medium density fiberboard": "mdf",
	"gypsum":                   "drywall",
	"gypsum board":             "drywall",
	"gyp board":                "drywall",

	"install":      "install",
	"installation": "install",
	"remove":       "remove",
	"removal":      "remove",
	"demo":         "demolition",
	"demolish":     "demolition",

	"baseboard":     "baseboard",
	"base board":    "baseboard",
	"base moulding": "baseboard",
	"wallpaper":     "wallpaper",
	"wall paper":    "wallpaper",
	"countertop":    "countertop",
	"counter top":   "countertop",
}

// Longest phrase in the synonym table, in words.
var maxPhraseLen = func() int {
	max := 1
	for phrase := range synonyms {
		if n := len(strings.Fields(phrase)); n > max {
			max = n
		}
	}
	return max
}()

var (
	rePunct     = regexp.MustCompile(`[:\-,;|]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Canonicalize normalizes a classification string for consistent matching:
// lowercase, trim, punctuation to spaces, collapsed whitespace, then the
// synonym table applied greedily, longest phrase first.
//
//	Canonicalize("Baseboard - MDF")   => "baseboard mdf"
//	Canonicalize("Gypsum Board, X")   => "drywall x"
func Canonicalize(classification string) string {
	if classification == "" {
		return ""
	}

	result := strings.ToLower(classification)
	result = rePunct.ReplaceAllString(result, " ")
	result = strings.TrimSpace(reWhitespace.ReplaceAllString(result, " "))
	if result == "" {
		return ""
	}

	words := strings.Split(result, " ")
	folded := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		matched := false
		longest := maxPhraseLen
		if remaining := len(words) - i; remaining < longest {
			longest = remaining
		}
		for n := longest; n >= 1; n-- {
			phrase := strings.Join(words[i:i+n], " ")
			if canon, ok := synonyms[phrase]; ok {
				folded = append(folded, canon)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			folded = append(folded, words[i])
			i++
		}
	}

	return strings.Join(folded, " ")
}
