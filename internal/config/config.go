package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries runtime settings for the takeoff pipeline. Matching
// thresholds live in the catalog template; the values here are fallbacks
// used when a template omits its mapping_config.
type Config struct {
	TemplateDir string
	DBPath      string
	OutputDir   string
	SheetHint   string

	FuzzyThreshold          float64
	StrictUnmappedThreshold float64
}

// Load reads configuration from the environment, with an optional .env
// file, applying defaults for anything unset.
func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		TemplateDir: getEnv("TAKEOFF_TEMPLATE_DIR", filepath.Join(cwd, "config")),
		DBPath:      getEnv("TAKEOFF_DB_PATH", filepath.Join(cwd, "data", "takeoff.db")),
		OutputDir:   getEnv("TAKEOFF_OUTPUT_DIR", filepath.Join(cwd, "out")),
		SheetHint:   getEnv("TAKEOFF_SHEET_HINT", "1 Bldg"),

		FuzzyThreshold:          getEnvFloat("TAKEOFF_FUZZY_THRESHOLD", 0.85),
		StrictUnmappedThreshold: getEnvFloat("TAKEOFF_STRICT_UNMAPPED_THRESHOLD", 0.75),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
