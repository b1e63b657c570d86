// Command validate checks persisted hail risk results against the contract
// the dashboard relies on: required properties, GEOID ordering, finite
// metrics, score arithmetic and point-to-tract consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -tracts census_data/gdf_all_with_hail_risk.geojson \
//	  -points census_data/hail_points.geojson \
//	  -state-dir census_data
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	geojson "github.com/paulmach/go.geojson"

	store "github.com/couchcryptid/hail-risk-etl/internal/adapter/geojson"
	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

var geoidRe = regexp.MustCompile(`^\d{11}$`)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	tractsPath := flag.String("tracts", filepath.Join("census_data", "gdf_all_with_hail_risk.geojson"), "scored tract FeatureCollection")
	pointsPath := flag.String("points", filepath.Join("census_data", "hail_points.geojson"), "joined hail point FeatureCollection")
	stateDir := flag.String("state-dir", "", "directory with per-state gdf_<ST>_with_hail_risk.geojson files (optional)")
	flag.Parse()

	if code := run(*tractsPath, *pointsPath, *stateDir); code != 0 {
		os.Exit(code)
	}
}

func run(tractsPath, pointsPath, stateDir string) int {
	fmt.Println("=== Hail Risk Output Validation ===")
	fmt.Println()

	tractFC, err := loadCollection(tractsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load tracts: %v\n", err)
		return 1
	}
	pointFC, err := loadCollection(pointsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load points: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(tractFC, pointFC),
		validateTracts(tractFC),
		validatePoints(tractFC, pointFC),
	}
	if stateDir != "" {
		phases = append(phases, validateStateFiles(tractFC, stateDir))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d tracts, %d hail points\n", len(tractFC.Features), len(pointFC.Features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(data)
}

// ── Phases ──

// validateSchema checks that every feature carries the dashboard properties.
func validateSchema(tracts, points *geojson.FeatureCollection) *phase {
	p := &phase{name: "Schema: required properties"}
	for i, f := range tracts.Features {
		for _, k := range store.RequiredTractProps {
			if _, ok := f.Properties[k]; !ok {
				p.errorf("tract feature %d: missing %s", i, k)
			}
		}
		if f.Geometry != nil && !f.Geometry.IsPolygon() && !f.Geometry.IsMultiPolygon() {
			p.errorf("tract feature %d: geometry type %s", i, f.Geometry.Type)
		}
	}
	for i, f := range points.Features {
		for _, k := range store.RequiredPointProps {
			if _, ok := f.Properties[k]; !ok {
				p.errorf("point feature %d: missing %s", i, k)
			}
		}
		if f.Geometry == nil || !f.Geometry.IsPoint() {
			p.errorf("point feature %d: not a Point", i)
		}
	}
	return p
}

// validateTracts checks GEOID format, ordering and uniqueness, and that the
// derived metrics are finite and consistent.
func validateTracts(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Tracts: GEOIDs and metrics"}
	seen := make(map[string]bool, len(fc.Features))
	prev := ""
	for i, f := range fc.Features {
		geoid, _ := f.Properties[store.PropGEOID].(string)
		switch {
		case !geoidRe.MatchString(geoid):
			p.errorf("tract feature %d: malformed GEOID %q", i, geoid)
		case seen[geoid]:
			p.errorf("tract %s: duplicate GEOID", geoid)
		case geoid < prev:
			p.errorf("tract %s: out of GEOID order after %s", geoid, prev)
		}
		seen[geoid] = true
		prev = geoid

		reports, ok := f.Properties[store.PropHailReports].(float64)
		if !ok || reports < 0 || reports != math.Trunc(reports) {
			p.errorf("tract %s: hail_reports %v is not a non-negative integer", geoid, f.Properties[store.PropHailReports])
		}
		score, ok := f.Properties[store.PropHailRiskScore].(float64)
		if !ok {
			p.errorf("tract %s: hail_risk_score is not a number", geoid)
		}

		density, hasDensity := f.Properties[store.PropCarOwnershipDensity].(float64)
		if hasDensity {
			if density < 0 {
				p.errorf("tract %s: negative car_ownership_density %v", geoid, density)
			}
			want := reports * density
			if math.Abs(want-score) > 1e-9*math.Max(1, math.Abs(want)) {
				p.errorf("tract %s: hail_risk_score %v != hail_reports %v x density %v", geoid, score, reports, density)
			}
		} else if score != 0 {
			p.errorf("tract %s: score %v without density", geoid, score)
		}

		var sum float64
		for _, col := range domain.VehicleColumns {
			v, _ := f.Properties[col].(float64)
			sum += v
		}
		if hh, ok := f.Properties[store.PropHouseholdsWithVehicles].(float64); ok && hh != sum {
			p.errorf("tract %s: households_with_vehicles %v != bucket sum %v", geoid, hh, sum)
		}
	}
	return p
}

// validatePoints checks that per-tract point counts match hail_reports.
func validatePoints(tracts, points *geojson.FeatureCollection) *phase {
	p := &phase{name: "Points: counts match hail_reports"}
	reports := make(map[string]int, len(tracts.Features))
	for _, f := range tracts.Features {
		geoid, _ := f.Properties[store.PropGEOID].(string)
		n, _ := f.Properties[store.PropHailReports].(float64)
		reports[geoid] = int(n)
	}

	counts := make(map[string]int)
	for i, f := range points.Features {
		geoid, _ := f.Properties[store.PropContainingGEOID].(string)
		if geoid == "" {
			continue
		}
		if _, ok := reports[geoid]; !ok {
			p.errorf("point feature %d: containing_geoid %s is not a tract", i, geoid)
			continue
		}
		counts[geoid]++
	}

	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if counts[id] != reports[id] {
			p.errorf("tract %s: hail_reports %d but %d contained points", id, reports[id], counts[id])
		}
	}
	return p
}

// validateStateFiles checks that the per-state files partition the combined
// region.
func validateStateFiles(tracts *geojson.FeatureCollection, dir string) *phase {
	p := &phase{name: "State files: partition the region"}
	byState := make(map[string]int)
	for _, f := range tracts.Features {
		st, _ := f.Properties[store.PropState].(string)
		byState[st]++
	}

	states := make([]string, 0, len(byState))
	for st := range byState {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		path := filepath.Join(dir, store.StateFileName(st))
		fc, err := loadCollection(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if len(fc.Features) != byState[st] {
			p.errorf("%s: %d features, combined file has %d for %s", path, len(fc.Features), byState[st], st)
		}
	}
	return p
}
