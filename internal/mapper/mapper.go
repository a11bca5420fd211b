// Package mapper resolves normalized takeoff records against a configured
// catalog template. Matching is an ordered chain of tiers — exact,
// contains, regex, fuzzy — each side-effect-free, short-circuiting on first
// success. The first record resolving a catalog key becomes that key's
// authoritative bid item; later duplicates surface as informational
// warnings, never as double counts.
package mapper

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"takeoff/internal"
	"takeoff/internal/catalog"
	"takeoff/internal/classify"
	"takeoff/internal/config"
	"takeoff/internal/uom"
	"takeoff/internal/util"
)

// Match tiers in precedence order.
const (
	TierExact    = "exact"
	TierContains = "contains"
	TierRegex    = "regex"
	TierFuzzy    = "fuzzy"
	TierFuzzyLow = "fuzzy_low"
)

// Tier confidences (0-100 scale while matching).
const (
	confExact    = 100.0
	confContains = 95.0
	confRegex    = 90.0
)

// conflictPercent is the disagreement between same-unit measures above
// which a high-severity warning replaces the informational one.
const conflictPercent = 15.0

const regexPrefix = "regex:"

// pattern is one precompiled catalog match string.
type pattern struct {
	raw  string
	norm string         // canonicalized, for exact/contains tiers
	re   *regexp.Regexp // non-nil for regex-tagged patterns
}

// rule is a flattened catalog item with precompiled patterns.
type rule struct {
	catalog.Rule
	patterns []pattern
}

// Mapper resolves records for a single run. It holds per-run mutable state
// (the first-match-wins map lives in MapRecords) while the template itself
// stays read-only, so construct one Mapper per concurrent job.
type Mapper struct {
	template        *catalog.Template
	rules           []rule
	fuzzyThreshold  float64
	strictThreshold float64
	preferLargest   bool
}

// matchResult is the transient outcome of resolving one classification.
type matchResult struct {
	rule         *rule
	confidence   float64
	tier         string
	matchedRule  string
	matchedValue string
}

// New builds a mapper over a loaded template. Invalid regex patterns are
// logged and skipped here so a bad catalog entry can never abort a run.
func New(cfg config.Config, t *catalog.Template) *Mapper {
	m := &Mapper{
		template:        t,
		fuzzyThreshold:  t.FuzzyThreshold(cfg.FuzzyThreshold),
		strictThreshold: t.StrictUnmappedThreshold(cfg.StrictUnmappedThreshold),
		preferLargest:   t.PreferLargestMeasure(),
	}

	for _, r := range t.Rules() {
		compiled := rule{Rule: r, patterns: make([]pattern, 0, len(r.Patterns))}
		for _, raw := range r.Patterns {
			p := pattern{raw: raw}
			if strings.HasPrefix(raw, regexPrefix) {
				expr := strings.TrimSpace(strings.TrimPrefix(raw, regexPrefix))
				re, err := regexp.Compile("(?i)" + expr)
				if err != nil {
					slog.Warn("invalid regex pattern in catalog, skipping",
						"section", r.Section, "item", r.Key, "pattern", expr, "error", err)
					continue
				}
				p.re = re
			} else {
				p.norm = classify.Canonicalize(raw)
			}
			compiled.patterns = append(compiled.patterns, p)
		}
		m.rules = append(m.rules, compiled)
	}

	return m
}

// resolvedItem is the authoritative resolution of one catalog key.
type resolvedItem struct {
	section              string
	key                  string
	qty                  float64
	qtyRaw               float64
	uom                  string
	uomRaw               string
	sourceClassification string
	confidence           float64
	provenance           internal.Provenance
}

// MapRecords resolves every record and assembles the full mapping result:
// ordered sections, unmapped items, the unmapped frequency summary, flat
// bid items, and the QA report.
func (m *Mapper) MapRecords(records []internal.NormalizedRecord) internal.MapResult {
	resolved := make(map[string]resolvedItem)
	unmapped := make([]internal.UnmappedItem, 0)
	warnings := make([]internal.Warning, 0)
	ambiguous := 0

	for _, record := range records {
		match := m.findBestMatch(record.Classification)
		if match == nil {
			unmapped = append(unmapped, m.formatUnmapped(record))
			continue
		}

		requiredUOM := match.rule.UOM
		sameUOM := measuresWithUOM(record.Measures, requiredUOM)
		if len(sameUOM) == 0 {
			unmapped = append(unmapped, m.formatUnmapped(record))
			warnings = append(warnings, internal.Warning{
				Type:           internal.WarnMissingUOM,
				Classification: record.Classification,
				RequiredUOM:    requiredUOM,
				AvailableUOMs:  measureUOMs(record.Measures),
				Message:        fmt.Sprintf("No %s measure found for %q", requiredUOM, record.Classification),
			})
			continue
		}

		best := m.selectMeasure(sameUOM)
		itemKey := match.rule.Section + "." + match.rule.Key

		if _, dup := resolved[itemKey]; dup {
			warnings = append(warnings, internal.Warning{
				Type:           internal.WarnDuplicateItem,
				Severity:       internal.SeverityInfo,
				Classification: record.Classification,
				MatchedTo:      match.rule.Key,
				Confidence:     match.confidence,
				Message: fmt.Sprintf("Row %s!%d also matches %q (already resolved); first match wins",
					record.Provenance.Sheet, record.Provenance.Row, itemKey),
			})
			continue
		}

		resolved[itemKey] = resolvedItem{
			section:              match.rule.Section,
			key:                  match.rule.Key,
			qty:                  m.formatQuantity(best.Value, requiredUOM),
			qtyRaw:               best.Value,
			uom:                  m.canonicalUOM(requiredUOM),
			uomRaw:               requiredUOM,
			sourceClassification: record.Classification,
			confidence:           match.confidence / 100.0,
			provenance:           record.Provenance,
		}

		switch match.tier {
		case TierFuzzyLow:
			warnings = append(warnings, internal.Warning{
				Type:           internal.WarnLowConfidenceMatch,
				Severity:       internal.SeverityWarning,
				Classification: record.Classification,
				MatchedTo:      match.rule.Key,
				Confidence:     match.confidence,
				Message: fmt.Sprintf("LOW CONFIDENCE: Matched %q to %q with only %.1f%% confidence",
					record.Classification, match.rule.Key, match.confidence),
			})
			ambiguous++
		case TierFuzzy:
			warnings = append(warnings, internal.Warning{
				Type:           internal.WarnAmbiguousMatch,
				Classification: record.Classification,
				MatchedTo:      match.rule.Key,
				Confidence:     match.confidence,
				Message: fmt.Sprintf("Fuzzy matched %q to %q with %.1f%% confidence",
					record.Classification, match.rule.Key, match.confidence),
			})
			ambiguous++
		}

		if len(sameUOM) > 1 {
			warnings = append(warnings, m.measureWarning(record.Classification, requiredUOM, sameUOM, best))
		}
	}

	sections, bidItems, bidWarnings := m.buildOutputs(resolved)
	warnings = append(warnings, bidWarnings...)

	qa := m.buildQAReport(records, len(resolved), len(unmapped), warnings, ambiguous)

	return internal.MapResult{
		Sections:        sections,
		Unmapped:        unmapped,
		UnmappedSummary: summarizeUnmapped(unmapped),
		BidItems:        bidItems,
		QA:              qa,
	}
}

// findBestMatch runs the tier chain for one classification. Returns nil
// when nothing clears the strict unmapped threshold.
func (m *Mapper) findBestMatch(classification string) *matchResult {
	norm := classify.Canonicalize(classification)

	// Tier 1: exact match on canonicalized text.
	for i := range m.rules {
		for idx, p := range m.rules[i].patterns {
			if p.re == nil && p.norm != "" && p.norm == norm {
				return &matchResult{
					rule:         &m.rules[i],
					confidence:   confExact,
					tier:         TierExact,
					matchedRule:  fmt.Sprintf("exact:%d", idx),
					matchedValue: p.raw,
				}
			}
		}
	}

	// Tier 2: catalog pattern contained in the classification.
	for i := range m.rules {
		for idx, p := range m.rules[i].patterns {
			if p.re == nil && p.norm != "" && strings.Contains(norm, p.norm) {
				return &matchResult{
					rule:         &m.rules[i],
					confidence:   confContains,
					tier:         TierContains,
					matchedRule:  fmt.Sprintf("contains:%d", idx),
					matchedValue: p.raw,
				}
			}
		}
	}

	// Tier 3: regex-tagged patterns, case-insensitive.
	for i := range m.rules {
		for idx, p := range m.rules[i].patterns {
			if p.re != nil && p.re.MatchString(norm) {
				return &matchResult{
					rule:         &m.rules[i],
					confidence:   confRegex,
					tier:         TierRegex,
					matchedRule:  fmt.Sprintf("regex:%d", idx),
					matchedValue: p.re.String(),
				}
			}
		}
	}

	// Tier 4: fuzzy fallback, best token-sort score over literal patterns.
	var bestRule *rule
	bestScore := -1.0
	bestIdx := 0
	bestValue := ""
	for i := range m.rules {
		for idx, p := range m.rules[i].patterns {
			if p.re != nil {
				continue
			}
			score := util.TokenSortRatio(classification, p.raw)
			if score > bestScore {
				bestScore = score
				bestRule = &m.rules[i]
				bestIdx = idx
				bestValue = p.raw
			}
		}
	}
	if bestRule == nil || bestScore < m.strictThreshold {
		return nil
	}

	tier := TierFuzzy
	if bestScore < m.fuzzyThreshold {
		tier = TierFuzzyLow
	}
	return &matchResult{
		rule:         bestRule,
		confidence:   bestScore,
		tier:         tier,
		matchedRule:  fmt.Sprintf("fuzzy:%d", bestIdx),
		matchedValue: bestValue,
	}
}

// selectMeasure picks among measures already filtered to the required UOM:
// largest value by default, first otherwise.
func (m *Mapper) selectMeasure(candidates []internal.Measure) internal.Measure {
	if !m.preferLargest || len(candidates) == 1 {
		return candidates[0]
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Value > best.Value {
			best = c
		}
	}
	return best
}

// measureWarning grades a multiple-measures situation: values disagreeing
// by more than conflictPercent get a high-severity conflicting_measures
// warning, anything else an informational multiple_measures one.
func (m *Mapper) measureWarning(classification, requiredUOM string, candidates []internal.Measure, selected internal.Measure) internal.Warning {
	minVal, maxVal := candidates[0].Value, candidates[0].Value
	for _, c := range candidates[1:] {
		if c.Value < minVal {
			minVal = c.Value
		}
		if c.Value > maxVal {
			maxVal = c.Value
		}
	}

	sel := selected
	if minVal > 0 {
		percentDiff := (maxVal - minVal) / minVal * 100
		if percentDiff > conflictPercent {
			return internal.Warning{
				Type:              internal.WarnConflictingMeasures,
				Severity:          internal.SeverityHigh,
				Classification:    classification,
				Measures:          candidates,
				Selected:          &sel,
				PercentDifference: math.Round(percentDiff*10) / 10,
				Message: fmt.Sprintf("CONFLICTING VALUES: Multiple %s measures differ by %.1f%% for %q, selected largest value",
					requiredUOM, percentDiff, classification),
			}
		}
	}
	return internal.Warning{
		Type:           internal.WarnMultipleMeasures,
		Classification: classification,
		Measures:       candidates,
		Selected:       &sel,
		Message: fmt.Sprintf("Multiple %s measures found for %q, selected largest value",
			requiredUOM, classification),
	}
}

// buildOutputs assembles the ordered sections and flat bid items from the
// resolved map, emitting unit normalization warnings per bid item.
func (m *Mapper) buildOutputs(resolved map[string]resolvedItem) ([]internal.Section, []internal.BidItem, []internal.Warning) {
	sections := make([]internal.Section, 0)
	bidItems := make([]internal.BidItem, 0, len(resolved))
	warnings := make([]internal.Warning, 0)

	for _, sectionName := range m.template.OrderedSections() {
		items := make([]internal.SectionItem, 0)
		for _, itemKey := range m.template.ItemKeys(sectionName) {
			r, ok := resolved[sectionName+"."+itemKey]
			if !ok {
				continue
			}

			items = append(items, internal.SectionItem{
				Key:                  itemKey,
				Qty:                  r.qty,
				QtyRaw:               r.qtyRaw,
				UOM:                  r.uom,
				UOMRaw:               r.uomRaw,
				SourceClassification: r.sourceClassification,
				Confidence:           r.confidence,
			})

			id := classify.CanonicalID(sectionName, r.sourceClassification)

			if r.uomRaw != "" && r.uom != "" && !strings.EqualFold(r.uomRaw, r.uom) {
				warnings = append(warnings, internal.Warning{
					Type:          internal.WarnUOMNormalized,
					Severity:      internal.SeverityInfo,
					ItemID:        id,
					OriginalUOM:   r.uomRaw,
					NormalizedUOM: r.uom,
					Message:       fmt.Sprintf("UOM normalized: %q -> %q for %s", r.uomRaw, r.uom, itemKey),
				})
			}

			itemUOM := r.uom
			if itemUOM == "" {
				warnings = append(warnings, internal.Warning{
					Type:     internal.WarnUOMMissing,
					Severity: internal.SeverityWarning,
					ItemID:   id,
					Message:  fmt.Sprintf("UOM is missing for %s", itemKey),
				})
				itemUOM = uom.EA
			}

			bidItems = append(bidItems, internal.BidItem{
				ID:                   id,
				Section:              sectionName,
				Label:                itemKey,
				Qty:                  r.qty,
				QtyRaw:               r.qtyRaw,
				UOM:                  itemUOM,
				UOMRaw:               r.uomRaw,
				Provenance:           r.provenance,
				SourceClassification: r.sourceClassification,
				Confidence:           r.confidence,
			})
		}
		if len(items) > 0 {
			sections = append(sections, internal.Section{Name: sectionName, Items: items})
		}
	}

	return sections, bidItems, warnings
}

// buildQAReport computes the run-level confidence score:
// start at 1.0, deduct for unmapped rows, missing expected items, and
// ambiguous matches, clamped to [0, 1].
func (m *Mapper) buildQAReport(records []internal.NormalizedRecord, mapped, unmapped int, warnings []internal.Warning, ambiguous int) internal.QAReport {
	totalRows := len(records)
	rowsWithMeasures := 0
	for _, r := range records {
		if len(r.Measures) > 0 {
			rowsWithMeasures++
		}
	}
	expected := m.template.ExpectedItems()
	missing := expected - mapped

	confidence := 1.0
	if totalRows > 0 {
		confidence -= float64(unmapped) / float64(totalRows) * 0.3
	}
	if expected > 0 {
		confidence -= float64(missing) / float64(expected) * 0.2
	}
	if mapped > 0 && ambiguous > 0 {
		confidence -= float64(ambiguous) / float64(mapped) * 0.2
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return internal.QAReport{
		Confidence: math.Round(confidence*100) / 100,
		Warnings:   warnings,
		Stats: internal.QAStats{
			RowsTotal:        totalRows,
			RowsWithMeasures: rowsWithMeasures,
			ItemsMapped:      mapped,
			ItemsMissing:     missing,
			ItemsUnmapped:    unmapped,
			AmbiguousMatches: ambiguous,
		},
	}
}

// formatUnmapped renders a record for the unmapped list, formatting each
// measure while preserving the raw value and unit for audit.
func (m *Mapper) formatUnmapped(record internal.NormalizedRecord) internal.UnmappedItem {
	measures := make([]internal.FormattedMeasure, 0, len(record.Measures))
	for _, ms := range record.Measures {
		measures = append(measures, internal.FormattedMeasure{
			Value:    m.formatQuantity(ms.Value, ms.UOM),
			ValueRaw: ms.Value,
			UOM:      m.canonicalUOM(ms.UOM),
			UOMRaw:   ms.UOM,
			Source:   ms.Source,
		})
	}
	return internal.UnmappedItem{
		Classification: record.Classification,
		Measures:       measures,
		Provenance:     record.Provenance,
	}
}

// canonicalUOM canonicalizes a unit, consulting the template's uom_mappings
// first and its uom_canonicalization table for spellings the standard
// normalizer does not know.
func (m *Mapper) canonicalUOM(u string) string {
	if mapped, ok := m.template.MappingConfig.UOMMappings[strings.ToUpper(strings.TrimSpace(u))]; ok {
		u = mapped
	}
	normalized := uom.Normalize(u)
	if normalized == "" {
		return u
	}
	if !uom.IsCanonical(normalized) {
		if mapped, ok := m.template.MappingConfig.UOMCanonicalization[u]; ok {
			return mapped
		}
	}
	return normalized
}

// formatQuantity applies the display rule for the unit's canonical form:
// "each"-like units round to the nearest integer, everything else to two
// decimals.
func (m *Mapper) formatQuantity(value float64, u string) float64 {
	canonical := m.canonicalUOM(u)
	format, ok := m.template.MappingConfig.QtyFormatting[canonical]
	if !ok {
		if canonical == uom.EA || canonical == uom.LVL {
			format = "integer"
		} else {
			format = "decimal"
		}
	}
	if format == "integer" {
		return math.Round(value)
	}
	return util.Round2(value)
}

// measuresWithUOM filters to measures whose normalized unit equals the
// required one.
func measuresWithUOM(measures []internal.Measure, required string) []internal.Measure {
	requiredNorm := uom.Normalize(required)
	if requiredNorm == "" {
		return nil
	}
	out := make([]internal.Measure, 0, len(measures))
	for _, ms := range measures {
		if uom.Normalize(ms.UOM) == requiredNorm {
			out = append(out, ms)
		}
	}
	return out
}

func measureUOMs(measures []internal.Measure) []string {
	out := make([]string, 0, len(measures))
	for _, ms := range measures {
		out = append(out, ms.UOM)
	}
	return out
}

// summarizeUnmapped builds the frequency-ranked summary of unmapped
// classifications, keeping the first example seen for each.
func summarizeUnmapped(unmapped []internal.UnmappedItem) internal.UnmappedSummary {
	if len(unmapped) == 0 {
		return internal.UnmappedSummary{Top: []internal.UnmappedGroup{}}
	}

	counts := make(map[string]int)
	examples := make(map[string]internal.UnmappedItem)
	order := make([]string, 0)

	for _, item := range unmapped {
		if _, seen := counts[item.Classification]; !seen {
			order = append(order, item.Classification)
			examples[item.Classification] = item
		}
		counts[item.Classification]++
	}

	top := make([]internal.UnmappedGroup, 0, len(order))
	for _, classification := range order {
		top = append(top, internal.UnmappedGroup{
			Classification: classification,
			Count:          counts[classification],
			Example:        examples[classification],
		})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })

	return internal.UnmappedSummary{
		TotalUnmapped:         len(unmapped),
		UniqueClassifications: len(order),
		Top:                   top,
	}
}
