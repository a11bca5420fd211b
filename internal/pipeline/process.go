// Package pipeline wires the takeoff core together: signature validation,
// row normalization and catalog mapping for one workbook. Each call builds
// fresh normalizer/mapper state, so independent invocations may run
// concurrently; the loaded catalog template is read-only and shared.
package pipeline

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"takeoff/internal"
	"takeoff/internal/catalog"
	"takeoff/internal/config"
	"takeoff/internal/mapper"
	"takeoff/internal/normalizer"
	"takeoff/internal/signature"
	"takeoff/internal/util"
)

// SheetsAll is the special sheet selector that processes every
// non-reference sheet in the workbook.
const SheetsAll = "all"

// Reference sheets skipped by the "all" selector.
var referenceSheets = map[string]struct{}{
	"units":    {},
	"bid form": {},
}

// MismatchError reports that the workbook does not match the expected
// template layout. It carries the signature warnings so the caller can
// present a specific "wrong template" message instead of a stack trace.
type MismatchError struct {
	Template  string
	Warnings  []string
	Selection signature.Selection
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("workbook does not match template %q (method=%s): %s",
		e.Template, e.Selection.Method, strings.Join(e.Warnings, "; "))
}

// SheetResult bundles everything produced for one processed sheet.
type SheetResult struct {
	Sheet   string                      `json:"sheet"`
	RawRows []internal.RawRow           `json:"raw_rows"`
	RawData []internal.NormalizedRecord `json:"raw_data"`
	Stats   map[string]int              `json:"stats"`
	Result  internal.MapResult          `json:"result"`
}

// RunResult is the full outcome of processing one workbook.
type RunResult struct {
	File      string          `json:"file"`
	Template  string          `json:"template"`
	Signature signature.Check `json:"signature"`
	Sheets    []SheetResult   `json:"sheets"`
}

// Processor runs the extraction pipeline against one catalog template.
type Processor struct {
	cfg      config.Config
	template *catalog.Template
}

// NewProcessor loads the named template. A missing template is fatal:
// catalog.ErrTemplateNotFound is wrapped in the returned error.
func NewProcessor(cfg config.Config, templateName string) (*Processor, error) {
	t, err := catalog.Load(cfg.TemplateDir, templateName)
	if err != nil {
		return nil, err
	}
	return &Processor{cfg: cfg, template: t}, nil
}

// Template exposes the loaded catalog template.
func (p *Processor) Template() *catalog.Template { return p.template }

// Process runs the pipeline over the workbook at path. sheets selects the
// worksheets to process: nil/empty uses the signature-validated sheet, the
// special "all" value processes every non-reference sheet, anything else
// is an explicit list of sheet names. An unreadable workbook or an unknown
// explicit sheet name is fatal; a failed signature check returns
// *MismatchError.
func (p *Processor) Process(path string, sheets []string) (*RunResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	check := signature.Validate(f, p.sheetHint())
	slog.Info("signature check",
		"file", path,
		"ok", check.OK,
		"sheet", check.MatchedSheet,
		"method", check.Selection.Method,
		"score", check.Score)

	targets, err := p.resolveSheets(f, check, sheets)
	if err != nil {
		return nil, err
	}

	run := &RunResult{
		File:      path,
		Template:  p.template.Name,
		Signature: check,
		Sheets:    make([]SheetResult, 0, len(targets)),
	}

	for _, sheet := range targets {
		norm, err := normalizer.NormalizeSheet(f, sheet)
		if err != nil {
			return nil, fmt.Errorf("normalize sheet %q: %w", sheet, err)
		}

		// Fresh mapper per sheet: first-match-wins state must not leak
		// across sheets.
		m := mapper.New(p.cfg, p.template)
		result := m.MapRecords(norm.Records)

		run.Sheets = append(run.Sheets, SheetResult{
			Sheet:   sheet,
			RawRows: norm.RawRows,
			RawData: norm.Records,
			Stats:   norm.Stats,
			Result:  result,
		})
	}

	return run, nil
}

func (p *Processor) sheetHint() string {
	if strings.TrimSpace(p.template.SheetHint) != "" {
		return p.template.SheetHint
	}
	return p.cfg.SheetHint
}

func (p *Processor) resolveSheets(f *excelize.File, check signature.Check, sheets []string) ([]string, error) {
	if len(sheets) == 1 && util.NormalizeSheetName(sheets[0]) == SheetsAll {
		all := make([]string, 0)
		for _, name := range f.GetSheetList() {
			if _, ref := referenceSheets[util.NormalizeSheetName(name)]; ref {
				continue
			}
			all = append(all, name)
		}
		sort.Strings(all)
		return all, nil
	}

	if len(sheets) > 0 {
		byNorm := make(map[string]string)
		for _, name := range f.GetSheetList() {
			byNorm[util.NormalizeSheetName(name)] = name
		}
		resolved := make([]string, 0, len(sheets))
		for _, requested := range sheets {
			name, ok := byNorm[util.NormalizeSheetName(requested)]
			if !ok {
				return nil, fmt.Errorf("sheet %q not found in workbook (available: %s)",
					requested, strings.Join(f.GetSheetList(), ", "))
			}
			resolved = append(resolved, name)
		}
		return resolved, nil
	}

	if !check.OK || check.MatchedSheet == "" {
		return nil, &MismatchError{
			Template:  p.template.Name,
			Warnings:  check.Warnings,
			Selection: check.Selection,
		}
	}
	return []string{check.MatchedSheet}, nil
}
