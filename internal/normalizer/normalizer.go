// Package normalizer walks a validated takeoff worksheet into typed,
// provenance-tagged records. Column layout is positional:
//
//	A: section headers ("General", "Corridors", ...)
//	B: classification / item label ("Stucco Wall SF", "Unit Doors")
//	C: primary quantity
//	D: optional secondary quantity (e.g. an "Ave SF" column)
//	E: notes
//
// Every physical row is snapshotted into the raw-row audit trail before any
// filtering, and every row commits exactly one decision to the stats
// tracker. Per-row anomalies never fail the run; they degrade to an ignore
// reason.
package normalizer

import (
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"takeoff/internal"
	"takeoff/internal/stats"
	"takeoff/internal/util"
)

// Result is the output of normalizing one sheet.
type Result struct {
	Sheet   string
	RawRows []internal.RawRow
	Records []internal.NormalizedRecord
	Stats   map[string]int
}

// Column A values that look like headers but never start a section.
var sectionDenylist = []string{"sheet", "schedule", "notes"}

// Keyword tables for primary-measure unit inference.
var (
	sfKeywords = []string{
		"lobby", "lounge", "fitness", "guardhouse", "gaurdhouse", "clubhouse",
		"amenities", "amenity", "residence services", "mail room", "storage",
		"flooring", "ceiling", "wall sf", "deck", "vestibule", "vest sf",
		"wall subtract", "subtract", "rec room", "garage lid",
	}
	countKeywords = []string{
		"door", "unit", "fixture", "outlet", "switch", "window", "vanity", "toilet",
	}
)

// headerHints are the first-row labels of the quantity columns, used to
// corroborate unit inference.
type headerHints struct {
	c string
	d string
}

// NormalizeSheet extracts normalized records from one worksheet. The
// running section context is threaded through the row scan as an explicit
// accumulator, so the function is safe to call concurrently on independent
// workbooks.
func NormalizeSheet(f *excelize.File, sheet string) (Result, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, err
	}

	hints := headerHints{}
	if len(rows) > 0 {
		hints.c = strings.ToLower(cell(rows[0], 2))
		hints.d = strings.ToLower(cell(rows[0], 3))
	}

	tracker := stats.NewTracker()
	rawRows := make([]internal.RawRow, 0, len(rows))
	records := make([]internal.NormalizedRecord, 0)
	currentSection := ""

	for i, row := range rows {
		rowIdx := i + 1
		a := strings.TrimSpace(cell(row, 0))
		b := strings.TrimSpace(cell(row, 1))
		c := strings.TrimSpace(cell(row, 2))
		d := strings.TrimSpace(cell(row, 3))
		e := strings.TrimSpace(cell(row, 4))

		// Audit first: every physical row appears once in raw_rows.
		rawRows = append(rawRows, internal.RawRow{
			Sheet: sheet, Row: rowIdx, A: a, B: b, C: c, D: d, E: e,
		})

		if a == "" && b == "" && c == "" && d == "" && e == "" {
			tracker.Commit(stats.Ignored(stats.ReasonEmpty))
			continue
		}

		if a != "" {
			if !isDenylisted(a) {
				currentSection = a
				slog.Debug("section context updated", "sheet", sheet, "row", rowIdx, "section", currentSection)
			}
			if b == "" {
				tracker.Commit(stats.Ignored(stats.ReasonSectionHeader))
				continue
			}
		}

		if b == "" {
			tracker.Commit(stats.Ignored(stats.ReasonNoClassification))
			continue
		}

		primary, ok := util.ParseNumeric(c)
		if !ok {
			tracker.Commit(stats.Ignored(stats.ReasonNoQuantity))
			continue
		}

		measures := []internal.Measure{{
			Value:  primary,
			UOM:    inferPrimaryUOM(b, hints),
			Source: "C",
		}}

		// The secondary column only contributes when its header hint
		// corroborates a unit; an unhinted number is more likely an
		// average than a true total.
		if secondary, ok := util.ParseNumeric(d); ok {
			if dUOM := inferSecondaryUOM(b, hints); dUOM != "" {
				measures = append(measures, internal.Measure{
					Value:  secondary,
					UOM:    dUOM,
					Source: "D",
				})
			}
		}

		record := internal.NormalizedRecord{
			Section:        currentSection,
			Classification: b,
			Measures:       measures,
			Provenance:     internal.Provenance{Sheet: sheet, Row: rowIdx},
			Notes:          e,
		}
		records = append(records, record)
		tracker.Commit(stats.Extracted())
	}

	slog.Info("sheet normalized",
		"sheet", sheet,
		"rows_total", tracker.RowsTotal,
		"rows_extracted", tracker.RowsExtracted,
		"rows_ignored", tracker.RowsIgnored)

	return Result{
		Sheet:   sheet,
		RawRows: rawRows,
		Records: records,
		Stats:   tracker.Export(),
	}, nil
}

func isDenylisted(label string) bool {
	lower := strings.ToLower(label)
	for _, skip := range sectionDenylist {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	return false
}

// inferPrimaryUOM infers the unit of the column C quantity: explicit label
// hints first, then the header row, then keyword tables. Empty when nothing
// corroborates a unit.
func inferPrimaryUOM(classification string, hints headerHints) string {
	lower := strings.ToLower(classification)

	if uomHint := labelUOMHint(lower); uomHint != "" {
		return uomHint
	}

	for _, kw := range sfKeywords {
		if strings.Contains(lower, kw) {
			return "SF"
		}
	}

	if strings.Contains(hints.c, "count") {
		return "EA"
	}

	for _, kw := range countKeywords {
		if strings.Contains(lower, kw) {
			return "EA"
		}
	}

	return ""
}

// inferSecondaryUOM gates the column D measure on its header hint. A header
// marking the column as an average suppresses it for building-total labels
// so an "Ave SF" never masquerades as a total SF.
func inferSecondaryUOM(classification string, hints headerHints) string {
	if hints.d == "" {
		return ""
	}
	lower := strings.ToLower(classification)
	if strings.Contains(hints.d, "ave") && strings.Contains(lower, "total sf") {
		return ""
	}
	if strings.Contains(hints.d, "sf") || strings.Contains(hints.d, "square") {
		return "SF"
	}
	return ""
}

// labelUOMHint reads trailing/embedded unit tokens from the label itself.
func labelUOMHint(lower string) string {
	switch {
	case strings.Contains(lower, " sf") || strings.HasSuffix(lower, "sf"):
		return "SF"
	case strings.Contains(lower, " lf") || strings.HasSuffix(lower, "lf"):
		return "LF"
	case strings.Contains(lower, " count") || strings.HasSuffix(lower, "count"):
		return "EA"
	}
	return ""
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
