package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"takeoff/internal/config"
	"takeoff/internal/pipeline"
	"takeoff/internal/signature"
	"takeoff/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "path to the takeoff workbook (.xlsx)")
		template := fs.String("template", "baycrest_v1", "mapping template name")
		sheets := fs.String("sheets", "", "comma-separated sheet names, or \"all\"")
		out := fs.String("out", "", "write result JSON to this file instead of stdout")
		dbPath := fs.String("db", "", "record the run in this sqlite audit database")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("-file is required"))
		}

		proc, err := pipeline.NewProcessor(cfg, *template)
		must(err)

		run, err := proc.Process(*file, splitSheets(*sheets))
		var mismatch *pipeline.MismatchError
		if errors.As(err, &mismatch) {
			fmt.Fprintf(os.Stderr, "template mismatch: %s\n", mismatch.Error())
			for _, w := range mismatch.Warnings {
				fmt.Fprintf(os.Stderr, "  - %s\n", w)
			}
			os.Exit(2)
		}
		must(err)

		if *dbPath != "" {
			db, err := storage.Open(*dbPath)
			must(err)
			defer db.Close()
			for _, sheet := range run.Sheets {
				runID, err := db.SaveSheetRun(run.File, run.Template, sheet)
				must(err)
				fmt.Fprintf(os.Stderr, "audit run saved sheet=%s run_id=%d\n", sheet.Sheet, runID)
			}
		}

		blob, err := json.MarshalIndent(run, "", "  ")
		must(err)
		if *out != "" {
			must(os.MkdirAll(filepath.Dir(*out), 0o755))
			must(os.WriteFile(*out, blob, 0o644))
			fmt.Printf("result written to %s\n", *out)
			return
		}
		fmt.Println(string(blob))

	case "validate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "path to the takeoff workbook (.xlsx)")
		sheet := fs.String("sheet", "", "expected sheet name hint (default from config)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("-file is required"))
		}

		f, err := excelize.OpenFile(*file)
		must(err)
		defer f.Close()

		hint := cfg.SheetHint
		if strings.TrimSpace(*sheet) != "" {
			hint = *sheet
		}
		check := signature.Validate(f, hint)
		blob, err := json.MarshalIndent(check, "", "  ")
		must(err)
		fmt.Println(string(blob))
		if !check.OK {
			os.Exit(2)
		}

	default:
		usage()
		os.Exit(1)
	}
}

func splitSheets(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func usage() {
	fmt.Println(`takeoff - spreadsheet takeoff extraction and catalog mapping

Commands:
  process  -file <xlsx> [-template name] [-sheets "a,b"|"all"] [-out result.json] [-db audit.db]
  validate -file <xlsx> [-sheet hint]`)
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
