package classify

import (
	"regexp"
	"strings"
)

// Alias tables for messy source classifications. Lookup keys are lowercase
// with collapsed whitespace; ItemSlug also probes punctuation-normalized
// variants so "W/D", "w / d" and "W / D" all land on the same slug. The
// tables are immutable after init; new aliases ship via a catalog reload,
// not runtime mutation.
var classificationAliases = map[string]string{
	// Units
	"w/d":              "washer_dryer",
	"w / d":            "washer_dryer",
	"washer/dryer":     "washer_dryer",
	"washer / dryer":   "washer_dryer",
	"wic":              "walk_in_closet",
	"w.i.c.":           "walk_in_closet",
	"walk-in closet":   "walk_in_closet",
	"unit doors":       "unit_doors",
	"unit door count":  "unit_doors",
	"coat":             "wardrobes",
	"loft guard rail lf": "loft_guard_rail_lf",

	// Balconies
	"balc":               "balcony_count",
	"balc.":              "balcony_count",
	"balc count":         "balcony_count",
	"balc. count":        "balcony_count",
	"balcony":            "balcony_count",
	"balc rail lf":       "balcony_rail_lf",
	"balc. rail lf":      "balcony_rail_lf",
	"balcony rail lf":    "balcony_rail_lf",
	"balc rail count":    "balcony_rail_count",
	"balc. rail count":   "balcony_rail_count",
	"balcony rail count": "balcony_rail_count",
	"balc storage":       "balcony_storage",
	"balc. storage":      "balcony_storage",
	"balcony storage":    "balcony_storage",

	// Storage
	"storage":       "storage_count",
	"storage count": "storage_count",
	"storage sf":    "storage_sf",

	// Mechanical
	"idf etc. count":             "idf_room_count",
	"idf etc count":              "idf_room_count",
	"idf count":                  "idf_room_count",
	"idf room count":             "idf_room_count",
	"idf etc. sf":                "idf_room_sf",
	"idf etc sf":                 "idf_room_sf",
	"idf sf":                     "idf_room_sf",
	"idf room sf":                "idf_room_sf",
	"trash term room count":      "trash_room_count",
	"trash term room sf":         "trash_room_sf",
	"decorative metal grill count": "decorative_metal_grill_count",

	// Corridors
	"cor. door count":       "corridor_doors",
	"cor door count":        "corridor_doors",
	"corridor door count":   "corridor_doors",
	"doors":                 "corridor_doors",
	"cor. bumpouts count":   "corridor_bumpouts",
	"cor bumpouts count":    "corridor_bumpouts",
	"cor bumpouts":          "corridor_bumpouts",
	"cor. lid sf":           "corridor_ceiling_sf",
	"cor lid sf":            "corridor_ceiling_sf",
	"corridor lid sf":       "corridor_ceiling_sf",
	"drywall lid sf":        "corridor_ceiling_sf",
	"stucco lid sf":         "corridor_ceiling_sf",
	"cor rail":              "corridor_rail",
	"cor. rail":             "corridor_rail",
	"cor railing":           "corridor_rail",
	"cor. wall sf":          "corridor_wall_sf",
	"cor wall sf":           "corridor_wall_sf",
	"stucco wall sf":        "corridor_wall_sf",
	"stucco passthrough sf": "corridor_wall_sf",
	"drywall wall sf":       "corridor_wall_sf",

	// Exterior
	"ext. door count":               "exterior_doors",
	"ext door count":                "exterior_doors",
	"ext doors":                     "exterior_doors",
	"parapet facing garage lf":      "parapet_garage_lf",
	"window/door trim count":        "window_door_trim",
	"window door trim count":        "window_door_trim",
	"large opening trim count":      "large_opening_trim",
	"8 landscape retaining wall lf": "retaining_wall_lf",
	"eve lf":                        "foam_eave_lf",
	"gutter":                        "gutter_lf",
	"downspouts":                    "down_spouts",
	"roof stucco sf":                "roof_stucco_lf",
	"stucco wall at roof sf":        "roof_stucco_lf",
	"smooth stucco":                 "stucco_wall_sf",
	"smooth stucco sf":              "stucco_wall_sf",
	"stucco wainscot":               "wainscot_lf",
	"foam trim lf":                  "trim_lf",
	"foam trim panel":               "foam_panel_count",
	"attic vents":                   "louvers",
	"ext vent":                      "louvers",
	"metal panel":                   "metal_panel_count",
	"corbel at eve":                 "corbel_count",
	"roof rail":                     "roof_rail_lf",

	// General
	"total sf":         "gross_building_sf",
	"total unit sf":    "gross_building_sf",
	"1 bed room count": "1_bedroom_count",
	"3 bed room count": "3_bedroom_count",
	"total":            "unit_count",
	"units":            "unit_count",
	"ave sf":           "average_sf",
	"ave. sf":          "average_sf",
	"average sf":       "average_sf",
	"ave unit sf":      "average_unit_sf",
	"ave. unit sf":     "average_unit_sf",

	// Amenity
	"lobby":                 "lobby",
	"common area bathrooms": "common_area_bathrooms",
	"lounge":                "lounge",
	"fitness":               "fitness",
	"gaurdhouse":            "guardhouse",
	"guardhouse":            "guardhouse",
	"residence services":    "amenity_flooring_sf",
	"mail room":             "amenity_flooring_sf",
	"amenities":             "amenity_flooring_sf",

	// Garage
	"garage lid sf":               "garage_ceiling_sf",
	"dropped lid at 1st lvl sf":   "garage_ceiling_sf",
	"garage parapet lf":           "parapet_garage_lf",
	"garage roof wall sf":         "garage_wall_sf",
	"garage storage count":        "garage_storage_count",
	"garage storage sf":           "garage_storage_sf",
	"storage with drywall sf":     "garage_storage_sf",
	"garage storage wall sf":      "garage_storage_wall_sf",
	"garage mech room gate":       "garage_mech_room_gate",
	"mech enclosures":             "garage_mech_room_gate",
	"garage vest count":           "garage_vest_count",
	"garage vest sf":              "garage_vest_sf",
	"garage column count":         "garage_column_count",
	"columns":                     "garage_column_count",
	"garage door count":           "garage_door_count",
	"vehicle entry gate count":    "vehicle_entry_gate_count",
	"vehical gates":               "vehicle_entry_gate_count",
	"garage stairs sf":            "garage_stairs_sf",
	"garage trash vest count":     "garage_trash_vest_count",
	"trash vest":                  "garage_trash_vest_count",
	"garage trash vest sf":        "garage_trash_vest_sf",
	"garage trash term room count": "garage_trash_room_count",
	"trash term room":             "garage_trash_room_count",
	"garage trash term room sf":   "garage_trash_room_sf",
	"garage wall subtract":        "garage_wall_subtract",
	"ext stucco sf":               "stucco_wall_sf",
	"ext foam trim lf":            "trim_lf",
	"pipe bollards":               "pipe_bollards",
}

var sectionAliases = map[string]string{
	"general":      "general",
	"corridors":    "corridors",
	"corridor":     "corridors",
	"exterior":     "exterior",
	"ext":          "exterior",
	"finishes":     "exterior",
	"units":        "units",
	"unit":         "units",
	"stairs":       "stairs",
	"stair":        "stairs",
	"amenity":      "amenity",
	"amenities":    "amenity",
	"common areas": "amenity",
	"bathrooms":    "amenity",
	"garage":       "garage",
	"garages":      "garage",
	"landscape":    "landscape",
	"landscaping":  "landscape",
	"balconies":    "balconies",
	"balcony":      "balconies",
	"storage":      "storage",
	"mechanical":   "mechanical",
	"mech":         "mechanical",
}

var (
	reNonSlug      = regexp.MustCompile(`[^a-z0-9\s]`)
	reSlugSpaces   = regexp.MustCompile(`\s+`)
	reTightPunct   = regexp.MustCompile(`\s*([/.])\s*`)
	reSpreadPunct  = regexp.MustCompile(`([/.])`)
	reStripPunct   = regexp.MustCompile(`[/.]`)
)

// Slugify converts text to lowercase alphanumerics joined by underscores.
//
//	Slugify("Stucco Wall SF") => "stucco_wall_sf"
//	Slugify("W/D")            => "w_d"
func Slugify(text string) string {
	if text == "" {
		return ""
	}
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = strings.NewReplacer("/", " ", "-", " ", ".", " ").Replace(slug)
	slug = reNonSlug.ReplaceAllString(slug, "")
	slug = reSlugSpaces.ReplaceAllString(strings.TrimSpace(slug), "_")
	return strings.Trim(slug, "_")
}

// aliasVariants generates punctuation-normalized spellings of a
// classification, tried in order against the alias table.
func aliasVariants(classification string) []string {
	norm := strings.ToLower(strings.TrimSpace(classification))
	if norm == "" {
		return nil
	}

	variants := []string{norm}
	add := func(v string) {
		for _, existing := range variants {
			if existing == v {
				return
			}
		}
		variants = append(variants, v)
	}

	collapsed := reSlugSpaces.ReplaceAllString(norm, " ")
	add(collapsed)
	add(strings.TrimSpace(reTightPunct.ReplaceAllString(collapsed, "$1")))
	spread := reSpreadPunct.ReplaceAllString(collapsed, " $1 ")
	add(strings.TrimSpace(reSlugSpaces.ReplaceAllString(spread, " ")))
	stripped := reStripPunct.ReplaceAllString(collapsed, " ")
	add(strings.TrimSpace(reSlugSpaces.ReplaceAllString(stripped, " ")))

	return variants
}

// SectionSlug maps a section name to its canonical slug, via the alias
// table first and Slugify as fallback.
func SectionSlug(sectionName string) string {
	if strings.TrimSpace(sectionName) == "" {
		return "unknown"
	}
	normalized := strings.ToLower(strings.TrimSpace(sectionName))
	if slug, ok := sectionAliases[normalized]; ok {
		return slug
	}
	return Slugify(sectionName)
}

// ItemSlug maps a source classification to its canonical item slug. Alias
// variants are probed first, then the slugified form against the same
// table, then the slugified classification itself.
func ItemSlug(sourceClassification string) string {
	if strings.TrimSpace(sourceClassification) == "" {
		return "unknown"
	}
	for _, variant := range aliasVariants(sourceClassification) {
		if slug, ok := classificationAliases[variant]; ok {
			return slug
		}
	}
	slugified := Slugify(sourceClassification)
	if slug, ok := classificationAliases[slugified]; ok {
		return slug
	}
	return slugified
}

// CanonicalID builds the deterministic "<section_slug>.<item_slug>"
// identifier. Identical inputs always yield the identical id, independent
// of punctuation or whitespace variation in the classification text.
//
//	CanonicalID("Units", "W/D")             => "units.washer_dryer"
//	CanonicalID("Exterior", "Stucco Co SF") => "exterior.stucco_co_sf"
func CanonicalID(sectionName, sourceClassification string) string {
	return SectionSlug(sectionName) + "." + ItemSlug(sourceClassification)
}
