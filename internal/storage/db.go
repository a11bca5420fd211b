// Package storage persists run audit trails: run summaries, every physical
// raw row, and the resolved bid items. The extraction core never touches
// this package; it exists for the surrounding system (CLI, review tooling)
// so a processed document can be traced row by row after the fact.
package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"takeoff/internal"
	"takeoff/internal/pipeline"
)

type DB struct {
	conn *sql.DB
}

// Open creates or opens the sqlite database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file TEXT NOT NULL,
	template TEXT NOT NULL,
	sheet TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	confidence REAL NOT NULL,
	rows_total INTEGER NOT NULL,
	rows_extracted INTEGER NOT NULL,
	rows_ignored INTEGER NOT NULL,
	items_mapped INTEGER NOT NULL,
	items_unmapped INTEGER NOT NULL,
	warnings_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS raw_rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	sheet TEXT NOT NULL,
	row_idx INTEGER NOT NULL,
	col_a TEXT, col_b TEXT, col_c TEXT, col_d TEXT, col_e TEXT
);
CREATE TABLE IF NOT EXISTS bid_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	item_id TEXT NOT NULL,
	section TEXT NOT NULL,
	label TEXT NOT NULL,
	qty REAL NOT NULL,
	qty_raw REAL NOT NULL,
	uom TEXT NOT NULL,
	uom_raw TEXT,
	source_classification TEXT NOT NULL,
	confidence REAL NOT NULL,
	sheet TEXT NOT NULL,
	row_idx INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_raw_rows_run ON raw_rows(run_id);
CREATE INDEX IF NOT EXISTS idx_bid_items_run ON bid_items(run_id);
`
	_, err := d.conn.Exec(schema)
	return err
}

// SaveSheetRun persists one processed sheet: the run summary, its raw-row
// audit trail and its resolved bid items. Returns the run id.
func (d *DB) SaveSheetRun(file, template string, sheet pipeline.SheetResult) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	warningsJSON, err := json.Marshal(sheet.Result.QA.Warnings)
	if err != nil {
		return 0, err
	}

	res, err := tx.Exec(`
INSERT INTO runs (file, template, sheet, processed_at, confidence,
	rows_total, rows_extracted, rows_ignored, items_mapped, items_unmapped, warnings_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file, template, sheet.Sheet,
		time.Now().UTC().Format(time.RFC3339),
		sheet.Result.QA.Confidence,
		sheet.Stats["rows_total"],
		sheet.Stats["rows_extracted"],
		sheet.Stats["rows_ignored"],
		sheet.Result.QA.Stats.ItemsMapped,
		sheet.Result.QA.Stats.ItemsUnmapped,
		string(warningsJSON),
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	rawStmt, err := tx.Prepare(`
INSERT INTO raw_rows (run_id, sheet, row_idx, col_a, col_b, col_c, col_d, col_e)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer rawStmt.Close()
	for _, row := range sheet.RawRows {
		if _, err := rawStmt.Exec(runID, row.Sheet, row.Row, row.A, row.B, row.C, row.D, row.E); err != nil {
			return 0, err
		}
	}

	itemStmt, err := tx.Prepare(`
INSERT INTO bid_items (run_id, item_id, section, label, qty, qty_raw, uom, uom_raw,
	source_classification, confidence, sheet, row_idx)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer itemStmt.Close()
	for _, item := range sheet.Result.BidItems {
		if _, err := itemStmt.Exec(runID, item.ID, item.Section, item.Label,
			item.Qty, item.QtyRaw, item.UOM, item.UOMRaw,
			item.SourceClassification, item.Confidence,
			item.Provenance.Sheet, item.Provenance.Row); err != nil {
			return 0, err
		}
	}

	return runID, tx.Commit()
}

// CountRawRows returns how many raw rows were stored for a run.
func (d *DB) CountRawRows(runID int64) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM raw_rows WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// BidItemsForRun reloads the persisted bid items of a run.
func (d *DB) BidItemsForRun(runID int64) ([]internal.BidItem, error) {
	rows, err := d.conn.Query(`
SELECT item_id, section, label, qty, qty_raw, uom, COALESCE(uom_raw, ''),
	source_classification, confidence, sheet, row_idx
FROM bid_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]internal.BidItem, 0)
	for rows.Next() {
		var item internal.BidItem
		if err := rows.Scan(&item.ID, &item.Section, &item.Label,
			&item.Qty, &item.QtyRaw, &item.UOM, &item.UOMRaw,
			&item.SourceClassification, &item.Confidence,
			&item.Provenance.Sheet, &item.Provenance.Row); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
