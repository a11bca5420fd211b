package mapper

import (
	"strings"
	"testing"

	"takeoff/internal"
	"takeoff/internal/catalog"
	"takeoff/internal/config"
)

func testConfig() config.Config {
	return config.Config{FuzzyThreshold: 0.85, StrictUnmappedThreshold: 0.75}
}

func testTemplate() *catalog.Template {
	return &catalog.Template{
		Name:         "test",
		SectionOrder: []string{"Units", "Exterior", "Amenity"},
		Sections: map[string]map[string]catalog.Item{
			"Units": {
				"washer_dryer":   {Match: []string{"w/d", "washer/dryer"}, UOM: "EA"},
				"walk_in_closet": {Match: []string{`regex:^w\.?i\.?c\.?$`}, UOM: "EA"},
			},
			"Exterior": {
				"stucco_wall_sf": {Match: []string{"stucco wall sf"}, UOM: "SF"},
			},
			"Amenity": {
				"lobby": {Match: []string{"lobby"}, UOM: "SF"},
			},
		},
	}
}

func record(classification string, row int, measures ...internal.Measure) internal.NormalizedRecord {
	return internal.NormalizedRecord{
		Section:        "Units",
		Classification: classification,
		Measures:       measures,
		Provenance:     internal.Provenance{Sheet: "1 Bldg", Row: row},
	}
}

func ea(v float64) internal.Measure { return internal.Measure{Value: v, UOM: "EA", Source: "C"} }
func sf(v float64) internal.Measure { return internal.Measure{Value: v, UOM: "SF", Source: "C"} }

func warningsOfType(warnings []internal.Warning, typ string) []internal.Warning {
	out := make([]internal.Warning, 0)
	for _, w := range warnings {
		if w.Type == typ {
			out = append(out, w)
		}
	}
	return out
}

func TestExactMatch(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{record("W/D", 3, ea(240))})

	if len(res.BidItems) != 1 {
		t.Fatalf("bid_items=%d unmapped=%+v", len(res.BidItems), res.Unmapped)
	}
	item := res.BidItems[0]
	if item.ID != "units.washer_dryer" {
		t.Fatalf("id=%q", item.ID)
	}
	if item.Qty != 240 || item.UOM != "EA" {
		t.Fatalf("qty=%v uom=%q", item.Qty, item.UOM)
	}
	if item.Confidence != 1.0 {
		t.Fatalf("confidence=%v", item.Confidence)
	}
	if n := len(warningsOfType(res.QA.Warnings, internal.WarnAmbiguousMatch)); n != 0 {
		t.Fatalf("exact match must not be flagged ambiguous, got %d warnings", n)
	}
}

func TestContainsMatch(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{
		record("Interior stucco wall sf allowance", 4, sf(4500)),
	})

	if len(res.BidItems) != 1 {
		t.Fatalf("bid_items=%d", len(res.BidItems))
	}
	if res.BidItems[0].Label != "stucco_wall_sf" {
		t.Fatalf("label=%q", res.BidItems[0].Label)
	}
	if res.BidItems[0].Confidence != 0.95 {
		t.Fatalf("confidence=%v", res.BidItems[0].Confidence)
	}
}

func TestRegexMatch(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{record("W.I.C.", 5, ea(120))})

	if len(res.BidItems) != 1 {
		t.Fatalf("bid_items=%d unmapped=%+v", len(res.BidItems), res.Unmapped)
	}
	if res.BidItems[0].Label != "walk_in_closet" {
		t.Fatalf("label=%q", res.BidItems[0].Label)
	}
	if res.BidItems[0].Confidence != 0.90 {
		t.Fatalf("confidence=%v", res.BidItems[0].Confidence)
	}
}

// An exact hit on one item must win even when another item is a very close
// fuzzy candidate.
func TestTierPrecedence(t *testing.T) {
	tpl := testTemplate()
	tpl.Sections["Units"]["washer_dryer_hookup"] = catalog.Item{Match: []string{"w/d hookup"}, UOM: "EA"}

	m := New(testConfig(), tpl)
	res := m.MapRecords([]internal.NormalizedRecord{record("w/d", 3, ea(240))})

	if len(res.BidItems) != 1 || res.BidItems[0].Label != "washer_dryer" {
		t.Fatalf("items=%+v", res.BidItems)
	}
	if res.BidItems[0].Confidence != 1.0 {
		t.Fatalf("confidence=%v", res.BidItems[0].Confidence)
	}
}

func TestFuzzyThresholds(t *testing.T) {
	tpl := testTemplate()
	tpl.Sections["Exterior"]["alpha"] = catalog.Item{
		Match: []string{strings.Repeat("a", 20)}, UOM: "EA",
	}
	tpl.Sections["Exterior"]["gamma"] = catalog.Item{
		Match: []string{strings.Repeat("c", 50)}, UOM: "EA",
	}

	cases := []struct {
		name           string
		classification string
		mapped         bool
		warnType       string
	}{
		{
			// 3 edits on 20 chars scores exactly 85: at the fuzzy
			// threshold, accepted with an ambiguity flag.
			name:           "at fuzzy threshold",
			classification: strings.Repeat("a", 17) + "bbb",
			mapped:         true,
			warnType:       internal.WarnAmbiguousMatch,
		},
		{
			// 4 edits on 20 chars scores 80: between strict and fuzzy,
			// accepted low-confidence.
			name:           "between thresholds",
			classification: strings.Repeat("a", 16) + "bbbb",
			mapped:         true,
			warnType:       internal.WarnLowConfidenceMatch,
		},
		{
			// 13 edits on 50 chars scores 74: below the strict floor,
			// forced unmapped.
			name:           "below strict threshold",
			classification: strings.Repeat("c", 37) + strings.Repeat("d", 13),
			mapped:         false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(testConfig(), tpl)
			res := m.MapRecords([]internal.NormalizedRecord{record(tc.classification, 9, ea(1))})

			if tc.mapped {
				if len(res.BidItems) != 1 {
					t.Fatalf("bid_items=%d unmapped=%+v", len(res.BidItems), res.Unmapped)
				}
				if n := len(warningsOfType(res.QA.Warnings, tc.warnType)); n != 1 {
					t.Fatalf("expected one %s warning, warnings=%+v", tc.warnType, res.QA.Warnings)
				}
				if res.QA.Stats.AmbiguousMatches != 1 {
					t.Fatalf("ambiguous=%d", res.QA.Stats.AmbiguousMatches)
				}
				return
			}
			if len(res.BidItems) != 0 {
				t.Fatalf("expected unmapped, got %+v", res.BidItems)
			}
			if len(res.Unmapped) != 1 {
				t.Fatalf("unmapped=%d", len(res.Unmapped))
			}
		})
	}
}

// Two same-unit measures disagreeing by more than 15% select the largest
// and raise a high-severity conflict.
func TestConflictingMeasures(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{
		record("Lobby", 12, sf(450), internal.Measure{Value: 600, UOM: "SF", Source: "D"}),
	})

	if len(res.BidItems) != 1 {
		t.Fatalf("bid_items=%d", len(res.BidItems))
	}
	if res.BidItems[0].Qty != 600 {
		t.Fatalf("qty=%v want largest", res.BidItems[0].Qty)
	}

	conflicts := warningsOfType(res.QA.Warnings, internal.WarnConflictingMeasures)
	if len(conflicts) != 1 {
		t.Fatalf("warnings=%+v", res.QA.Warnings)
	}
	w := conflicts[0]
	if w.Severity != internal.SeverityHigh {
		t.Fatalf("severity=%q", w.Severity)
	}
	if w.PercentDifference != 33.3 {
		t.Fatalf("percent_difference=%v", w.PercentDifference)
	}
	if w.Selected == nil || w.Selected.Value != 600 {
		t.Fatalf("selected=%+v", w.Selected)
	}
}

// Closely agreeing duplicates get an informational note, not a conflict.
func TestMultipleMeasuresWithinTolerance(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{
		record("Lobby", 12, sf(1000), internal.Measure{Value: 1100, UOM: "SF", Source: "D"}),
	})

	if len(warningsOfType(res.QA.Warnings, internal.WarnConflictingMeasures)) != 0 {
		t.Fatalf("10%% difference flagged as conflict: %+v", res.QA.Warnings)
	}
	if len(warningsOfType(res.QA.Warnings, internal.WarnMultipleMeasures)) != 1 {
		t.Fatalf("warnings=%+v", res.QA.Warnings)
	}
	if res.BidItems[0].Qty != 1100 {
		t.Fatalf("qty=%v", res.BidItems[0].Qty)
	}
}

// A matched classification with no measure in the required unit stays
// unmapped and reports what was available.
func TestMissingRequiredUOM(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{record("Lobby", 12, ea(3))})

	if len(res.BidItems) != 0 {
		t.Fatalf("bid_items=%+v", res.BidItems)
	}
	if len(res.Unmapped) != 1 {
		t.Fatalf("unmapped=%d", len(res.Unmapped))
	}
	missing := warningsOfType(res.QA.Warnings, internal.WarnMissingUOM)
	if len(missing) != 1 {
		t.Fatalf("warnings=%+v", res.QA.Warnings)
	}
	if missing[0].RequiredUOM != "SF" {
		t.Fatalf("required_uom=%q", missing[0].RequiredUOM)
	}
}

// The first record resolving a catalog key wins; later matches are noted
// but never double counted.
func TestFirstMatchWins(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{
		record("W/D", 3, ea(240)),
		record("Washer/Dryer", 17, ea(999)),
	})

	if len(res.BidItems) != 1 {
		t.Fatalf("bid_items=%d", len(res.BidItems))
	}
	if res.BidItems[0].Qty != 240 {
		t.Fatalf("qty=%v want first match", res.BidItems[0].Qty)
	}
	dups := warningsOfType(res.QA.Warnings, internal.WarnDuplicateItem)
	if len(dups) != 1 {
		t.Fatalf("warnings=%+v", res.QA.Warnings)
	}
	if dups[0].Severity != internal.SeverityInfo {
		t.Fatalf("severity=%q", dups[0].Severity)
	}
}

func TestUnmappedSummary(t *testing.T) {
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{
		record("Mystery Thing", 20, ea(1)),
		record("Mystery Thing", 21, ea(2)),
		record("Other Oddity", 22, ea(3)),
	})

	s := res.UnmappedSummary
	if s.TotalUnmapped != 3 || s.UniqueClassifications != 2 {
		t.Fatalf("summary=%+v", s)
	}
	if s.Top[0].Classification != "Mystery Thing" || s.Top[0].Count != 2 {
		t.Fatalf("top=%+v", s.Top)
	}
}

func TestQAConfidence(t *testing.T) {
	// Two records against a four-item template: one maps exactly, one stays
	// unmapped. confidence = 1 - 0.3*(1/2) - 0.2*(3/4) = 0.70.
	m := New(testConfig(), testTemplate())
	res := m.MapRecords([]internal.NormalizedRecord{
		record("W/D", 3, ea(240)),
		record("Mystery Thing", 4, ea(1)),
	})

	if res.QA.Confidence != 0.70 {
		t.Fatalf("confidence=%v", res.QA.Confidence)
	}
	if res.QA.Stats.ItemsMapped != 1 || res.QA.Stats.ItemsUnmapped != 1 || res.QA.Stats.ItemsMissing != 3 {
		t.Fatalf("stats=%+v", res.QA.Stats)
	}
}

func TestQAConfidenceBounds(t *testing.T) {
	m := New(testConfig(), testTemplate())

	empty := m.MapRecords(nil)
	if empty.QA.Confidence < 0 || empty.QA.Confidence > 1 {
		t.Fatalf("confidence=%v out of range", empty.QA.Confidence)
	}

	allBad := m.MapRecords([]internal.NormalizedRecord{
		record("zzz one", 1, ea(1)),
		record("zzz two", 2, ea(1)),
		record("zzz three", 3, ea(1)),
	})
	if allBad.QA.Confidence < 0 || allBad.QA.Confidence > 1 {
		t.Fatalf("confidence=%v out of range", allBad.QA.Confidence)
	}
	if allBad.QA.Confidence >= 1 {
		t.Fatalf("confidence=%v should be penalized", allBad.QA.Confidence)
	}
}
