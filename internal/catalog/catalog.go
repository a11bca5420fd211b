// Package catalog loads mapping templates: the configured set of expected
// bid items per section, their match patterns and required units. A
// template is read once at mapper construction and is read-only afterwards,
// so it may be shared across concurrent runs.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrTemplateNotFound is returned when no mapping file exists for the
// requested template name.
var ErrTemplateNotFound = errors.New("mapping template not found")

// Item is one configured expected item: ordered match patterns (literal or
// "regex:"-prefixed) and the unit its quantity must carry.
type Item struct {
	Match []string `json:"match"`
	UOM   string   `json:"uom"`
}

// MappingConfig tunes the matching engine. Thresholds are configured on a
// 0-1 scale and scaled to 0-100 by the accessors below.
type MappingConfig struct {
	FuzzyThreshold          float64           `json:"fuzzy_threshold"`
	StrictUnmappedThreshold float64           `json:"strict_unmapped_threshold"`
	PreferLargestMeasure    *bool             `json:"prefer_largest_measure"`
	UOMMappings             map[string]string `json:"uom_mappings"`
	QtyFormatting           map[string]string `json:"qty_formatting"`
	UOMCanonicalization     map[string]string `json:"uom_canonicalization"`
}

// Template is one loaded catalog configuration.
type Template struct {
	Name          string                     `json:"-"`
	SheetHint     string                     `json:"sheet_hint"`
	Sections      map[string]map[string]Item `json:"sections"`
	SectionOrder  []string                   `json:"section_order"`
	MappingConfig MappingConfig              `json:"mapping_config"`
}

// Rule is one flattened catalog entry used by the matching engine.
type Rule struct {
	Section  string
	Key      string
	Patterns []string
	UOM      string
}

// Load reads "<dir>/<name>.mapping.json".
func Load(dir, name string) (*Template, error) {
	path := filepath.Join(dir, name+".mapping.json")
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, err
	}

	var t Template
	if err := json.Unmarshal(blob, &t); err != nil {
		return nil, fmt.Errorf("parse mapping template %s: %w", name, err)
	}
	t.Name = name

	if len(t.Sections) == 0 {
		return nil, fmt.Errorf("mapping template %s has no sections", name)
	}
	return &t, nil
}

// OrderedSections returns section names in section_order, followed by any
// configured sections the order list omits, alphabetically.
func (t *Template) OrderedSections() []string {
	out := make([]string, 0, len(t.Sections))
	seen := make(map[string]struct{}, len(t.Sections))
	for _, name := range t.SectionOrder {
		if _, ok := t.Sections[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	rest := make([]string, 0)
	for name := range t.Sections {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// ItemKeys returns the item keys of a section in deterministic order.
func (t *Template) ItemKeys(section string) []string {
	items := t.Sections[section]
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Rules flattens all sections into the ordered rule list the matcher
// iterates.
func (t *Template) Rules() []Rule {
	rules := make([]Rule, 0)
	for _, section := range t.OrderedSections() {
		for _, key := range t.ItemKeys(section) {
			item := t.Sections[section][key]
			rules = append(rules, Rule{
				Section:  section,
				Key:      key,
				Patterns: item.Patterns(),
				UOM:      item.UOM,
			})
		}
	}
	return rules
}

// Patterns returns the item's match patterns with blanks dropped.
func (i Item) Patterns() []string {
	out := make([]string, 0, len(i.Match))
	for _, p := range i.Match {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExpectedItems counts every configured item across all sections.
func (t *Template) ExpectedItems() int {
	total := 0
	for _, items := range t.Sections {
		total += len(items)
	}
	return total
}

// FuzzyThreshold returns the fuzzy acceptance threshold on the 0-100 scale.
func (t *Template) FuzzyThreshold(fallback float64) float64 {
	if t.MappingConfig.FuzzyThreshold > 0 {
		return t.MappingConfig.FuzzyThreshold * 100
	}
	return fallback * 100
}

// StrictUnmappedThreshold returns the forced-unmapped floor on the 0-100
// scale.
func (t *Template) StrictUnmappedThreshold(fallback float64) float64 {
	if t.MappingConfig.StrictUnmappedThreshold > 0 {
		return t.MappingConfig.StrictUnmappedThreshold * 100
	}
	return fallback * 100
}

// PreferLargestMeasure reports whether measure selection takes the largest
// candidate (the default) or the first.
func (t *Template) PreferLargestMeasure() bool {
	if t.MappingConfig.PreferLargestMeasure == nil {
		return true
	}
	return *t.MappingConfig.PreferLargestMeasure
}
