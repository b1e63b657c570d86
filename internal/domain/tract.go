package domain

import (
	"strings"
)

// GEOIDLength is the width of a census tract GEOID.
const GEOIDLength = 11

// VehicleColumns are the ACS household vehicle buckets summed into
// HouseholdsWithVehicles. Every column must be present for a state to load.
var VehicleColumns = [8]string{
	"households_with_1_vehicle",
	"households_with_2_vehicles",
	"households_with_3_vehicles",
	"households_with_4_vehicles",
	"households_with_5_vehicles",
	"households_with_6_vehicles",
	"households_with_7_vehicles",
	"households_with_8_or_more_vehicles",
}

// Income table columns. Each is optional per row.
const (
	ColumnTotalPopulation = "total_population"
	ColumnMedianIncome    = "median_income"
	ColumnPerCapitaIncome = "per_capita_income"
)

// TractGeometry is one row of a tract geometry file before attribute joins.
type TractGeometry struct {
	GEOID       string
	StateFP     string
	LandAreaM2  *float64 // nil when ALAND is missing or unparseable
	CentroidLon float64
	CentroidLat float64
	Geometry    MultiPolygon
}

// VehicleRow is one row of a vehicle ownership table.
type VehicleRow struct {
	GEOID   string
	Buckets [8]int64
}

// IncomeRow is one row of an income table.
type IncomeRow struct {
	GEOID           string
	TotalPopulation *float64
	MedianIncome    *float64
	PerCapitaIncome *float64
}

// TractRecord is a census tract with joined attributes and derived metrics.
type TractRecord struct {
	GEOID       string
	State       string // postal code, e.g. "MO"
	StateFP     string
	CentroidLon float64
	CentroidLat float64
	Geometry    MultiPolygon

	LandAreaM2  *float64
	LandAreaKM2 *float64

	VehicleBuckets         [8]int64
	HouseholdsWithVehicles int64
	HasVehicleData         bool

	TotalPopulation *float64
	MedianIncome    *float64
	PerCapitaIncome *float64

	CarOwnershipDensity *float64
	PopulationDensity   *float64

	HailReports   int
	HailRiskScore float64
}

// Region is the unified multi-state tract collection.
type Region struct {
	CRS    CRS
	Tracts []TractRecord
}

// NormalizeGEOID converts a tract identifier from any of the common export
// forms to the canonical zero-padded 11-character string.
func NormalizeGEOID(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "US"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if len(s) >= GEOIDLength {
		return s
	}
	return strings.Repeat("0", GEOIDLength-len(s)) + s
}

// StateFPFromGEOID returns the state FIPS prefix of a normalized GEOID.
func StateFPFromGEOID(geoid string) string {
	if len(geoid) < 2 {
		return ""
	}
	return geoid[:2]
}

// MaxBucketCount bounds a single vehicle bucket. Every count up to it is
// exact as a float64, and the sum of all eight buckets cannot overflow int64.
const MaxBucketCount int64 = 1 << 53

// SumBuckets returns the total households owning at least one vehicle.
func SumBuckets(buckets [8]int64) int64 {
	var total int64
	for _, b := range buckets {
		total += b
	}
	return total
}
