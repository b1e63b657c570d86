package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// DefaultHailFeedURL is the SPC filtered hail report for the current day.
const DefaultHailFeedURL = "https://www.spc.noaa.gov/climo/reports/today_filtered_hail.csv"

// StateSource locates the input files for one state.
type StateSource struct {
	Code         string // postal code, e.g. "MO"
	FIPS         string
	GeometryPath string
	VehiclePath  string
	IncomePath   string
}

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	HailFeedURL      string
	HailReportDir    string
	HailFetchTimeout time.Duration

	TigerYear  int
	TractDir   string
	VehicleDir string
	IncomeDir  string
	States     []StateSource

	OutputDir       string
	TractsCachePath string
	PointsCachePath string

	DensityPolicy domain.DensityPolicy
	ClipRules     []domain.ClipRule

	LogLevel  string
	LogFormat string

	// Optional sinks, disabled when unset.
	KafkaBrokers   []string
	KafkaSinkTopic string
	SQLitePath     string
	PushgatewayURL string

	// ShutdownTimeout bounds sink flushes after the run finishes or is cancelled.
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("HAIL_FETCH_TIMEOUT", "60s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid HAIL_FETCH_TIMEOUT")
	}

	year, err := strconv.Atoi(sharedcfg.EnvOrDefault("TIGER_YEAR", "2024"))
	if err != nil || year < 2010 {
		return nil, errors.New("invalid TIGER_YEAR")
	}

	policy, err := domain.ParseDensityPolicy(sharedcfg.EnvOrDefault("DENSITY_POLICY", string(domain.DensityDrop)))
	if err != nil {
		return nil, fmt.Errorf("DENSITY_POLICY: %w", err)
	}

	clips, err := parseClipRules()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HailFeedURL:      sharedcfg.EnvOrDefault("HAIL_FEED_URL", DefaultHailFeedURL),
		HailReportDir:    sharedcfg.EnvOrDefault("HAIL_REPORT_DIR", "hail_reports"),
		HailFetchTimeout: timeout,
		TigerYear:        year,
		TractDir:         sharedcfg.EnvOrDefault("TRACT_DIR", filepath.Join("census_data", "tracts")),
		VehicleDir:       sharedcfg.EnvOrDefault("VEHICLE_DIR", filepath.Join("census_data", "vehicle_ownership")),
		IncomeDir:        sharedcfg.EnvOrDefault("INCOME_DIR", filepath.Join("census_data", "income")),
		OutputDir:        sharedcfg.EnvOrDefault("OUTPUT_DIR", "census_data"),
		DensityPolicy:    policy,
		ClipRules:        clips,
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "hail-risk-scores"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		ShutdownTimeout:  shutdownTimeout,
	}
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	cfg.TractsCachePath = sharedcfg.EnvOrDefault("TRACTS_CACHE_PATH", filepath.Join(cfg.OutputDir, "gdf_all_with_hail_risk.geojson"))
	cfg.PointsCachePath = sharedcfg.EnvOrDefault("POINTS_CACHE_PATH", filepath.Join(cfg.OutputDir, "hail_points.geojson"))

	states, err := cfg.stateSources(sharedcfg.EnvOrDefault("STATES", "MO,KS,IA,NE"))
	if err != nil {
		return nil, err
	}
	cfg.States = states

	if cfg.HailFeedURL == "" {
		return nil, errors.New("HAIL_FEED_URL is required")
	}
	switch cfg.LogFormat {
	case "json", "text", "tint":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (allowed: json, text, tint)", cfg.LogFormat)
	}

	return cfg, nil
}

// StateSourceFor builds the conventional file layout for a state code:
// TIGER/Line shapefiles under TractDir and ACS extracts under VehicleDir and
// IncomeDir.
func (c *Config) StateSourceFor(code string) (StateSource, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	fips, ok := StateFIPS[code]
	if !ok {
		return StateSource{}, fmt.Errorf("unknown state %q", code)
	}
	stem := fmt.Sprintf("tl_%d_%s_tract", c.TigerYear, fips)
	return StateSource{
		Code:         code,
		FIPS:         fips,
		GeometryPath: filepath.Join(c.TractDir, stem, stem+".shp"),
		VehiclePath:  filepath.Join(c.VehicleDir, fmt.Sprintf("vehicle_ownership_by_tract_%s.csv", code)),
		IncomePath:   filepath.Join(c.IncomeDir, fmt.Sprintf("income_by_tract_%s.csv", code)),
	}, nil
}

func (c *Config) stateSources(list string) ([]StateSource, error) {
	var out []StateSource
	seen := make(map[string]bool)
	for _, code := range strings.Split(list, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		src, err := c.StateSourceFor(code)
		if err != nil {
			return nil, fmt.Errorf("STATES: %w", err)
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, errors.New("STATES is required")
	}
	return out, nil
}

// parseClipRules reads the regional carve-out. CLIP_STATE=none disables it.
func parseClipRules() ([]domain.ClipRule, error) {
	state := strings.ToUpper(strings.TrimSpace(sharedcfg.EnvOrDefault("CLIP_STATE", domain.MissouriHighway63.State)))
	if state == "NONE" {
		return nil, nil
	}
	if _, ok := StateFIPS[state]; !ok {
		return nil, fmt.Errorf("invalid CLIP_STATE %q", state)
	}
	lon, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("CLIP_LONGITUDE", strconv.FormatFloat(domain.MissouriHighway63.Longitude, 'f', -1, 64)), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, errors.New("invalid CLIP_LONGITUDE")
	}
	keep, err := domain.ParseKeepDirection(sharedcfg.EnvOrDefault("CLIP_KEEP", string(domain.MissouriHighway63.Keep)))
	if err != nil {
		return nil, fmt.Errorf("CLIP_KEEP: %w", err)
	}
	return []domain.ClipRule{{State: state, Longitude: lon, Keep: keep}}, nil
}
