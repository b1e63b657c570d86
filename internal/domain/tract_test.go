package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestNormalizeGEOID(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"already canonical", "29001950100", "29001950100"},
		{"lost leading zero", "1001020100", "01001020100"},
		{"whitespace", " 20091050100 ", "20091050100"},
		{"float export", "29001950100.0", "29001950100"},
		{"acs summary prefix", "1400000US19153010100", "19153010100"},
		{"short", "7", "00000000007"},
		{"too long left alone", "290019501001", "290019501001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeGEOID(tt.raw))
		})
	}
}

func TestSumBuckets(t *testing.T) {
	assert.Equal(t, int64(36), SumBuckets([8]int64{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Zero(t, SumBuckets([8]int64{}))

	var full [8]int64
	for i := range full {
		full[i] = MaxBucketCount
	}
	assert.Equal(t, int64(8)<<53, SumBuckets(full), "largest accepted buckets sum without overflow")
}

func TestMergeTracts(t *testing.T) {
	geoms := []TractGeometry{
		{GEOID: "29001950100", LandAreaM2: ptr(10e6), CentroidLon: -92.5},
		{GEOID: "29001950200", LandAreaM2: ptr(5e6), CentroidLon: -92.6},
		{GEOID: "29001950300", LandAreaM2: ptr(1e6), CentroidLon: -92.7},
	}
	vehicles := []VehicleRow{
		{GEOID: "29001950100", Buckets: [8]int64{10, 20, 30, 40, 0, 0, 0, 0}},
		{GEOID: "29001950200.0", Buckets: [8]int64{50, 0, 0, 0, 0, 0, 0, 0}},
		{GEOID: "29001950100", Buckets: [8]int64{999, 0, 0, 0, 0, 0, 0, 0}},
	}
	income := []IncomeRow{
		{GEOID: "1400000US29001950100", TotalPopulation: ptr(1200), MedianIncome: ptr(55000), PerCapitaIncome: ptr(28000)},
	}

	got := MergeTracts("MO", geoms, vehicles, income)
	require.Len(t, got, 3, "left join keeps every geometry row")

	a := got[0]
	assert.Equal(t, "MO", a.State)
	assert.Equal(t, "29", a.StateFP)
	assert.Equal(t, int64(100), a.HouseholdsWithVehicles, "first duplicate wins")
	assert.True(t, a.HasVehicleData)
	require.NotNil(t, a.TotalPopulation)
	assert.Equal(t, 1200.0, *a.TotalPopulation)
	assert.Equal(t, 55000.0, *a.MedianIncome)

	b := got[1]
	assert.Equal(t, int64(50), b.HouseholdsWithVehicles)
	assert.Nil(t, b.TotalPopulation, "no income match stays nil")
	assert.Nil(t, b.MedianIncome)
	assert.Nil(t, b.PerCapitaIncome)

	c := got[2]
	assert.False(t, c.HasVehicleData)
	assert.Zero(t, c.HouseholdsWithVehicles)
}

func TestMergeTracts_HouseholdsEqualBucketSum(t *testing.T) {
	buckets := [8]int64{3, 1, 4, 1, 5, 9, 2, 6}
	got := MergeTracts("KS", []TractGeometry{{GEOID: "20091050100"}}, []VehicleRow{{GEOID: "20091050100", Buckets: buckets}}, nil)
	require.Len(t, got, 1)

	var want int64
	for _, b := range got[0].VehicleBuckets {
		want += b
	}
	assert.Equal(t, want, got[0].HouseholdsWithVehicles)
	assert.Equal(t, buckets, got[0].VehicleBuckets)
}

func TestDuplicateGEOIDs(t *testing.T) {
	dups := DuplicateGEOIDs([]string{"1001020100", "01001020100", "01001020200", "01001020100"})
	assert.Equal(t, []string{"01001020100"}, dups)
}

func TestMissingColumnError(t *testing.T) {
	header := append([]string{"tract_geoid"}, VehicleColumns[:6]...)
	missing := MissingColumns(header, VehicleColumns[:])
	assert.Equal(t, []string{"households_with_7_vehicles", "households_with_8_or_more_vehicles"}, missing)

	var err error = &MissingColumnError{State: "IA", Columns: missing}
	var target *MissingColumnError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "IA", target.State)
	assert.Contains(t, err.Error(), "IA")
	assert.Contains(t, err.Error(), "households_with_7_vehicles")
}
