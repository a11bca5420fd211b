package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testTemplateJSON = `{
  "sheet_hint": "1 Bldg",
  "section_order": ["Units", "Exterior"],
  "sections": {
    "Units": {
      "washer_dryer": {"match": ["w/d", "washer/dryer"], "uom": "EA"},
      "unit_doors": {"match": ["unit doors", ""], "uom": "EA"}
    },
    "Exterior": {
      "stucco_wall_sf": {"match": ["stucco wall sf", "regex:stucco\\s+wall"], "uom": "SF"}
    },
    "Amenity": {
      "lobby": {"match": ["lobby"], "uom": "SF"}
    }
  },
  "mapping_config": {
    "fuzzy_threshold": 0.9,
    "prefer_largest_measure": false,
    "qty_formatting": {"EA": "integer"}
  }
}`

func writeTemplate(t *testing.T, name, blob string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name+".mapping.json"), []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeTemplate(t, "test_v1", testTemplateJSON)
	tpl, err := Load(dir, "test_v1")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.Name != "test_v1" {
		t.Fatalf("name=%q", tpl.Name)
	}
	if tpl.SheetHint != "1 Bldg" {
		t.Fatalf("sheet_hint=%q", tpl.SheetHint)
	}
	if tpl.ExpectedItems() != 4 {
		t.Fatalf("expected_items=%d", tpl.ExpectedItems())
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "nope")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadEmptySections(t *testing.T) {
	dir := writeTemplate(t, "empty", `{"sections": {}}`)
	if _, err := Load(dir, "empty"); err == nil {
		t.Fatal("expected error for template without sections")
	}
}

// Sections named in section_order come first; any the order omits follow
// alphabetically.
func TestOrderedSections(t *testing.T) {
	dir := writeTemplate(t, "test_v1", testTemplateJSON)
	tpl, err := Load(dir, "test_v1")
	if err != nil {
		t.Fatal(err)
	}
	got := tpl.OrderedSections()
	want := []string{"Units", "Exterior", "Amenity"}
	if len(got) != len(want) {
		t.Fatalf("sections=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sections=%v want %v", got, want)
		}
	}
}

func TestRulesFlattening(t *testing.T) {
	dir := writeTemplate(t, "test_v1", testTemplateJSON)
	tpl, err := Load(dir, "test_v1")
	if err != nil {
		t.Fatal(err)
	}
	rules := tpl.Rules()
	if len(rules) != 4 {
		t.Fatalf("len=%d", len(rules))
	}
	if rules[0].Section != "Units" || rules[0].Key != "unit_doors" {
		t.Fatalf("first rule=%+v", rules[0])
	}
	// Blank patterns are dropped.
	if len(rules[0].Patterns) != 1 || rules[0].Patterns[0] != "unit doors" {
		t.Fatalf("patterns=%v", rules[0].Patterns)
	}
}

func TestThresholdScaling(t *testing.T) {
	dir := writeTemplate(t, "test_v1", testTemplateJSON)
	tpl, err := Load(dir, "test_v1")
	if err != nil {
		t.Fatal(err)
	}
	// Set in the template: 0.9 scales to 90.
	if got := tpl.FuzzyThreshold(0.85); got != 90 {
		t.Fatalf("fuzzy=%v", got)
	}
	// Omitted: falls back to the config value, also scaled.
	if got := tpl.StrictUnmappedThreshold(0.75); got != 75 {
		t.Fatalf("strict=%v", got)
	}
}

func TestPreferLargestMeasure(t *testing.T) {
	dir := writeTemplate(t, "test_v1", testTemplateJSON)
	tpl, err := Load(dir, "test_v1")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.PreferLargestMeasure() {
		t.Fatal("template sets prefer_largest_measure=false")
	}

	defaulted := &Template{Sections: map[string]map[string]Item{"S": {}}}
	if !defaulted.PreferLargestMeasure() {
		t.Fatal("default should prefer the largest measure")
	}
}
