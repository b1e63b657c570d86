package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	geo "github.com/paulmach/go.geo"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hail-risk-etl/internal/config"
	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

var reportDate = time.Date(2025, 5, 14, 18, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

func square(x, y float64) domain.MultiPolygon {
	return domain.MultiPolygon{{{
		geo.Point{x, y}, geo.Point{x + 1, y}, geo.Point{x + 1, y + 1}, geo.Point{x, y + 1}, geo.Point{x, y},
	}}}
}

// loadReport parses the sample SPC report in testdata.
func loadReport(t *testing.T) []domain.HailPoint {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "hail_2025-05-14.csv"))
	require.NoError(t, err)
	defer f.Close()

	points, stats, err := domain.ParseHailReport(f)
	require.NoError(t, err)
	require.Equal(t, 1, stats.MissingCoords)
	return points
}

type fakeFetcher struct {
	points []domain.HailPoint
	err    error
	calls  int
	dates  []time.Time
}

func (f *fakeFetcher) Fetch(_ context.Context, date time.Time) ([]domain.HailPoint, error) {
	f.calls++
	f.dates = append(f.dates, date)
	return f.points, f.err
}

type geometryFile struct {
	tracts []domain.TractGeometry
	crs    domain.CRS
}

type memGeometry map[string]geometryFile

func (m memGeometry) Read(path string) ([]domain.TractGeometry, domain.CRS, error) {
	f, ok := m[path]
	if !ok {
		return nil, "", os.ErrNotExist
	}
	out := make([]domain.TractGeometry, len(f.tracts))
	copy(out, f.tracts)
	return out, f.crs, nil
}

type memAttributes struct {
	vehicles   map[string][]domain.VehicleRow
	vehicleErr error
	income     map[string][]domain.IncomeRow
}

func (m *memAttributes) ReadVehicles(_, path string) ([]domain.VehicleRow, error) {
	if m.vehicleErr != nil {
		return nil, m.vehicleErr
	}
	return m.vehicles[path], nil
}

func (m *memAttributes) ReadIncome(path string) ([]domain.IncomeRow, error) {
	rows, ok := m.income[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return rows, nil
}

var missouri = config.StateSource{
	Code:         "MO",
	FIPS:         "29",
	GeometryPath: "tl_2024_29_tract.shp",
	VehiclePath:  "vehicle_ownership_by_tract_MO.csv",
	IncomePath:   "income_by_tract_MO.csv",
}

// twoTractFixture is the worked example: tract A covers 10 km² with 100
// vehicle households, tract B 5 km² with 50, and tract C lies east of the
// Missouri clip line.
func twoTractFixture() (memGeometry, *memAttributes) {
	geoms := memGeometry{
		missouri.GeometryPath: {crs: domain.NAD83, tracts: []domain.TractGeometry{
			{GEOID: "29217000100", StateFP: "29", LandAreaM2: ptr(10_000_000), CentroidLon: -94.5, CentroidLat: 38.5, Geometry: square(-95, 38)},
			{GEOID: "29083000200", StateFP: "29", LandAreaM2: ptr(5_000_000), CentroidLon: -93.5, CentroidLat: 38.5, Geometry: square(-94, 38)},
			{GEOID: "29019000300", StateFP: "29", LandAreaM2: ptr(8_000_000), CentroidLon: -91.8, CentroidLat: 38.5, Geometry: square(-92.3, 38)},
		}},
	}
	attrs := &memAttributes{
		vehicles: map[string][]domain.VehicleRow{
			missouri.VehiclePath: {
				{GEOID: "29217000100", Buckets: [8]int64{60, 30, 10}},
				{GEOID: "29083000200", Buckets: [8]int64{50}},
				{GEOID: "29019000300", Buckets: [8]int64{80}},
			},
		},
		income: map[string][]domain.IncomeRow{
			missouri.IncomePath: {
				{GEOID: "29217000100", TotalPopulation: ptr(2000), MedianIncome: ptr(48000)},
			},
		},
	}
	return geoms, attrs
}
