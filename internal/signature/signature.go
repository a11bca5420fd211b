// Package signature selects and validates the takeoff worksheet inside an
// ambiguous multi-sheet workbook before extraction proceeds. Selection is
// name-first (exact, then prefix) with a content-scoring fallback; it never
// fails hard on an unexpected layout, it degrades to ok=false with
// diagnostic warnings and leaves the decision to the caller.
package signature

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"takeoff/internal/util"
)

// Selection methods.
const (
	MethodExact  = "exact"
	MethodPrefix = "prefix"
	MethodScore  = "score"
	MethodNone   = "none"
)

// Known section header vocabulary for column A.
var sectionHeaders = map[string]struct{}{
	"general":   {},
	"corridors": {},
	"exterior":  {},
	"units":     {},
	"stairs":    {},
	"amenity":   {},
	"garage":    {},
	"landscape": {},
}

// Content thresholds: name-based selections are validated loosely, the
// scoring fallback requires a real takeoff shape.
const (
	looseMinSectionHits = 1
	looseMinDataRows    = 5
	scoreMinSectionHits = 3
	scoreMinDataRows    = 15
	maxScoredRows       = 200
)

// Selection records how the takeoff sheet was chosen.
type Selection struct {
	Sheet      string   `json:"sheet,omitempty"`
	Method     string   `json:"method"`
	Candidates []string `json:"candidates_tried,omitempty"`
	Score      float64  `json:"score,omitempty"`
}

// Check is the outcome of validating a workbook against the expected
// takeoff layout.
type Check struct {
	OK           bool      `json:"ok"`
	Score        float64   `json:"score"`
	MatchedSheet string    `json:"matched_sheet,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	Selection    Selection `json:"sheet_selection"`
}

// Validate selects the takeoff sheet matching the name hint (e.g. "1 Bldg")
// and checks its content. Pure inspection: the workbook is never modified.
func Validate(f *excelize.File, hint string) Check {
	warnings := make([]string, 0)

	sheetMap := make(map[string]string)
	for _, name := range f.GetSheetList() {
		sheetMap[util.NormalizeSheetName(name)] = name
	}

	// Reference sheets are optional; their absence is informational only.
	if _, ok := sheetMap["units"]; !ok {
		warnings = append(warnings, "Missing 'Units' sheet (optional; Units may exist as a section inside the takeoff sheet).")
	}
	if _, ok := sheetMap["bid form"]; !ok {
		warnings = append(warnings, "Missing 'Bid Form' sheet (optional).")
	}

	selection := selectSheet(f, sheetMap, util.NormalizeSheetName(hint))

	check := Check{
		Warnings:  warnings,
		Selection: selection,
	}

	if selection.Sheet == "" {
		check.Warnings = append(check.Warnings, fmt.Sprintf(
			"Could not find a suitable takeoff sheet. Tried: %s",
			strings.Join(selection.Candidates, ", ")))
		return check
	}

	check.MatchedSheet = selection.Sheet
	sectionHits, dataRows, contentScore := scoreSheet(f, selection.Sheet)
	check.Score = contentScore

	switch selection.Method {
	case MethodExact, MethodPrefix:
		// Name matched: accept the sheet, but warn when its content does
		// not look like takeoff data.
		check.OK = true
		if sectionHits < looseMinSectionHits || dataRows < looseMinDataRows {
			check.Warnings = append(check.Warnings, fmt.Sprintf(
				"Sheet %q selected by name but has insufficient takeoff content (section_hits=%d, data_rows=%d).",
				selection.Sheet, sectionHits, dataRows))
		}
	case MethodScore:
		// Scoring already enforced its thresholds.
		check.OK = true
	}

	return check
}

// selectSheet applies the ordered selection rules: exact normalized name,
// prefix match (suffixes like " (4)"), then content scoring.
func selectSheet(f *excelize.File, sheetMap map[string]string, hint string) Selection {
	if original, ok := sheetMap[hint]; ok {
		return Selection{Sheet: original, Method: MethodExact, Candidates: []string{original}}
	}

	prefixMatches := make([]string, 0)
	for norm, original := range sheetMap {
		if strings.HasPrefix(norm, hint) {
			prefixMatches = append(prefixMatches, original)
		}
	}
	if len(prefixMatches) > 0 {
		sort.Strings(prefixMatches)
		return Selection{Sheet: prefixMatches[0], Method: MethodPrefix, Candidates: prefixMatches}
	}

	candidates := make([]string, 0)
	bestSheet := ""
	bestScore := 0.0
	for _, name := range f.GetSheetList() {
		sectionHits, dataRows, score := scoreSheet(f, name)
		candidates = append(candidates, fmt.Sprintf("%s (score=%.1f)", name, score))
		if sectionHits >= scoreMinSectionHits && dataRows >= scoreMinDataRows && score > bestScore {
			bestScore = score
			bestSheet = name
		}
	}
	if bestSheet != "" {
		return Selection{Sheet: bestSheet, Method: MethodScore, Candidates: candidates, Score: bestScore}
	}

	return Selection{Method: MethodNone, Candidates: candidates}
}

// scoreSheet counts takeoff signals: section-header hits in column A and
// rows where column B is a label and column C is numeric.
// score = 2*section_hits + min(data_rows, 100)/10.
func scoreSheet(f *excelize.File, sheet string) (sectionHits, dataRows int, score float64) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, 0
	}

	for i, row := range rows {
		if i >= maxScoredRows {
			break
		}
		colA := strings.ToLower(strings.TrimSpace(cell(row, 0)))
		if _, ok := sectionHeaders[colA]; ok {
			sectionHits++
		}
		if util.IsLabel(cell(row, 1)) && util.IsNumeric(cell(row, 2)) {
			dataRows++
		}
	}

	capped := dataRows
	if capped > 100 {
		capped = 100
	}
	score = float64(sectionHits*2) + float64(capped)/10
	return sectionHits, dataRows, score
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
