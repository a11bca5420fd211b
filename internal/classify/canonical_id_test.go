package classify

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Stucco Wall SF", "stucco_wall_sf"},
		{"W/D", "w_d"},
		{"Walk-In Closet", "walk_in_closet"},
		{"Cor. Door Count", "cor_door_count"},
		{"8' Landscape Wall", "8_landscape_wall"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.input); got != tc.want {
			t.Fatalf("Slugify(%q)=%q want %q", tc.input, got, tc.want)
		}
	}
}

func TestSectionSlug(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Units", "units"},
		{"unit", "units"},
		{"Common Areas", "amenity"},
		{"MECH", "mechanical"},
		{"Balcony", "balconies"},
		{"Roofing", "roofing"}, // no alias: slugified as-is
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := SectionSlug(tc.input); got != tc.want {
			t.Fatalf("SectionSlug(%q)=%q want %q", tc.input, got, tc.want)
		}
	}
}

func TestItemSlug(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"W/D", "washer_dryer"},
		{"w / d", "washer_dryer"},
		{"Washer/Dryer", "washer_dryer"},
		{"Balc. Rail LF", "balcony_rail_lf"},
		{"balc rail lf", "balcony_rail_lf"},
		{"W.I.C.", "walk_in_closet"},
		{"Total SF", "gross_building_sf"},
		{"Stucco Co SF", "stucco_co_sf"}, // no alias: slugified as-is
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := ItemSlug(tc.input); got != tc.want {
			t.Fatalf("ItemSlug(%q)=%q want %q", tc.input, got, tc.want)
		}
	}
}

// The same logical input must always produce the same id, whatever the
// punctuation or whitespace of the source cell.
func TestCanonicalIDDeterministic(t *testing.T) {
	want := "units.washer_dryer"
	variants := []struct {
		section        string
		classification string
	}{
		{"Units", "W/D"},
		{"units", "W/D"},
		{"Units", " w / d "},
		{"UNIT", "w/d"},
		{"Units", "Washer / Dryer"},
	}
	for _, v := range variants {
		if got := CanonicalID(v.section, v.classification); got != want {
			t.Fatalf("CanonicalID(%q, %q)=%q want %q", v.section, v.classification, got, want)
		}
	}

	if got := CanonicalID("Exterior", "Stucco Co SF"); got != "exterior.stucco_co_sf" {
		t.Fatalf("fallback id=%q", got)
	}
}
