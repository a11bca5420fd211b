// Package stats tracks per-row extraction decisions without double
// counting. Every physical row commits exactly one decision, so
// rows_extracted + rows_ignored == rows_total always holds.
package stats

// Row decision statuses.
const (
	StatusExtracted = "EXTRACTED"
	StatusIgnored   = "IGNORED"
)

// Ignore reason codes emitted by the row normalizer.
const (
	ReasonEmpty            = "empty"
	ReasonSectionHeader    = "section_header"
	ReasonNoClassification = "no_classification"
	ReasonNoQuantity       = "no_quantity"
)

// Decision is the triage outcome for a single row. A row may carry several
// reason codes but is counted once.
type Decision struct {
	Status  string
	reasons map[string]struct{}
}

// Extracted returns a decision marking the row as extracted.
func Extracted() Decision {
	return Decision{Status: StatusExtracted}
}

// Ignored returns a decision marking the row as ignored for the given reasons.
func Ignored(reasons ...string) Decision {
	d := Decision{Status: StatusIgnored, reasons: make(map[string]struct{}, len(reasons))}
	for _, r := range reasons {
		d.reasons[r] = struct{}{}
	}
	return d
}

// AddReason attaches another reason code to the decision.
func (d *Decision) AddReason(reason string) {
	if d.reasons == nil {
		d.reasons = make(map[string]struct{}, 1)
	}
	d.reasons[reason] = struct{}{}
}

// Tracker accumulates row decisions for one extraction run.
type Tracker struct {
	RowsTotal     int
	RowsExtracted int
	RowsIgnored   int

	reasonCounts map[string]int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{reasonCounts: make(map[string]int)}
}

// Commit records one row decision. It increments rows_total and exactly one
// of rows_extracted/rows_ignored; ignored rows also bump a counter per
// reason code.
func (t *Tracker) Commit(d Decision) {
	t.RowsTotal++
	switch d.Status {
	case StatusExtracted:
		t.RowsExtracted++
	case StatusIgnored:
		t.RowsIgnored++
		for reason := range d.reasons {
			t.reasonCounts[reason]++
		}
	}
}

// Export flattens the counters into a map with one ignored_<reason> key per
// observed reason plus ignored_reasons_total. The reasons total may exceed
// rows_ignored because a row can carry multiple reasons.
func (t *Tracker) Export() map[string]int {
	out := map[string]int{
		"rows_total":     t.RowsTotal,
		"rows_extracted": t.RowsExtracted,
		"rows_ignored":   t.RowsIgnored,
	}
	reasonsTotal := 0
	for reason, count := range t.reasonCounts {
		out["ignored_"+reason] = count
		reasonsTotal += count
	}
	if reasonsTotal > 0 {
		out["ignored_reasons_total"] = reasonsTotal
	}
	return out
}
