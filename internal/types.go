package internal

// Provenance ties a record back to the physical cell block it came from.
type Provenance struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
}

// RawRow is the positional snapshot of one physical spreadsheet row,
// retained for audit regardless of whether the row was extracted.
type RawRow struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
	A     string `json:"A"`
	B     string `json:"B"`
	C     string `json:"C"`
	D     string `json:"D"`
	E     string `json:"E"`
}

// Measure is one numeric quantity candidate read from a row. UOM may be
// empty when no unit could be inferred; such measures never satisfy a
// catalog item's required UOM.
type Measure struct {
	Value  float64 `json:"value"`
	UOM    string  `json:"uom,omitempty"`
	Source string  `json:"source"`
}

// FormattedMeasure carries both the display value and the raw value so the
// audit trail survives rounding and UOM canonicalization.
type FormattedMeasure struct {
	Value    float64 `json:"value"`
	ValueRaw float64 `json:"value_raw"`
	UOM      string  `json:"uom,omitempty"`
	UOMRaw   string  `json:"uom_raw,omitempty"`
	Source   string  `json:"source"`
}

// NormalizedRecord is a candidate line item before catalog resolution.
type NormalizedRecord struct {
	Section        string     `json:"section,omitempty"`
	Classification string     `json:"classification"`
	Measures       []Measure  `json:"measures"`
	Provenance     Provenance `json:"provenance"`
	Notes          string     `json:"notes,omitempty"`
}

// Warning severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityHigh    = "high"
)

// Warning types emitted by the mapping engine.
const (
	WarnLowConfidenceMatch  = "low_confidence_match"
	WarnAmbiguousMatch      = "ambiguous_match"
	WarnConflictingMeasures = "conflicting_measures"
	WarnMultipleMeasures    = "multiple_measures"
	WarnMissingUOM          = "missing_uom"
	WarnDuplicateItem       = "duplicate_item"
	WarnUOMNormalized       = "uom_normalized"
	WarnUOMMissing          = "uom_missing"
	WarnUOMMismatch         = "uom_mismatch"
)

// Warning is a structured quality signal attached to the QA report.
type Warning struct {
	Type              string    `json:"type"`
	Severity          string    `json:"severity,omitempty"`
	Classification    string    `json:"classification,omitempty"`
	MatchedTo         string    `json:"matched_to,omitempty"`
	Confidence        float64   `json:"confidence,omitempty"`
	Measures          []Measure `json:"measures,omitempty"`
	Selected          *Measure  `json:"selected,omitempty"`
	PercentDifference float64   `json:"percent_difference,omitempty"`
	RequiredUOM       string    `json:"required_uom,omitempty"`
	AvailableUOMs     []string  `json:"available_uoms,omitempty"`
	ItemID            string    `json:"item_id,omitempty"`
	OriginalUOM       string    `json:"original_uom,omitempty"`
	NormalizedUOM     string    `json:"normalized_uom,omitempty"`
	ParsedUOM         string    `json:"parsed_uom,omitempty"`
	ExpectedUOM       string    `json:"expected_uom,omitempty"`
	Message           string    `json:"message"`
}

// SectionItem is one resolved catalog item inside a section.
type SectionItem struct {
	Key                  string  `json:"key"`
	Qty                  float64 `json:"qty"`
	QtyRaw               float64 `json:"qty_raw"`
	UOM                  string  `json:"uom"`
	UOMRaw               string  `json:"uom_raw"`
	SourceClassification string  `json:"source_classification"`
	Confidence           float64 `json:"confidence"`
}

// Section groups resolved items under their catalog section name.
type Section struct {
	Name  string        `json:"name"`
	Items []SectionItem `json:"items"`
}

// BidItem is the flat, UI-facing form of a resolved catalog item.
type BidItem struct {
	ID                   string     `json:"id"`
	Section              string     `json:"section"`
	Label                string     `json:"label"`
	Qty                  float64    `json:"qty"`
	QtyRaw               float64    `json:"qty_raw"`
	UOM                  string     `json:"uom"`
	UOMRaw               string     `json:"uom_raw,omitempty"`
	Provenance           Provenance `json:"provenance"`
	SourceClassification string     `json:"source_classification"`
	Confidence           float64    `json:"confidence"`
}

// UnmappedItem is a record that failed to resolve with sufficient confidence.
type UnmappedItem struct {
	Classification string             `json:"classification"`
	Measures       []FormattedMeasure `json:"measures"`
	Provenance     Provenance         `json:"provenance"`
}

// UnmappedGroup is one classification in the frequency-ranked unmapped summary.
type UnmappedGroup struct {
	Classification string       `json:"classification"`
	Count          int          `json:"count"`
	Example        UnmappedItem `json:"example"`
}

// UnmappedSummary ranks unmapped classifications worth adding to the catalog.
type UnmappedSummary struct {
	TotalUnmapped         int             `json:"total_unmapped"`
	UniqueClassifications int             `json:"unique_classifications"`
	Top                   []UnmappedGroup `json:"top"`
}

// QAStats is the run-level counts block of the QA report.
type QAStats struct {
	RowsTotal        int `json:"rows_total"`
	RowsWithMeasures int `json:"rows_with_measures"`
	ItemsMapped      int `json:"items_mapped"`
	ItemsMissing     int `json:"items_missing"`
	ItemsUnmapped    int `json:"items_unmapped"`
	AmbiguousMatches int `json:"ambiguous_matches"`
}

// QAReport is the aggregated quality signal for one mapping run.
type QAReport struct {
	Confidence float64   `json:"confidence"`
	Warnings   []Warning `json:"warnings"`
	Stats      QAStats   `json:"stats"`
}

// MapResult is everything the mapping engine produces for one sheet.
type MapResult struct {
	Sections        []Section       `json:"sections"`
	Unmapped        []UnmappedItem  `json:"unmapped"`
	UnmappedSummary UnmappedSummary `json:"unmapped_summary"`
	BidItems        []BidItem       `json:"bid_items"`
	QA              QAReport        `json:"qa"`
}
