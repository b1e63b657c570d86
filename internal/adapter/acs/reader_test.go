package acs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

const vehicleHeader = "tract_geoid,households_with_1_vehicle,households_with_2_vehicles,households_with_3_vehicles,households_with_4_vehicles,households_with_5_vehicles,households_with_6_vehicles,households_with_7_vehicles,households_with_8_or_more_vehicles\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadVehicles(t *testing.T) {
	path := writeFile(t, "vehicle_ownership_by_tract_MO.csv", vehicleHeader+
		"29001950100,10,20,30,40,0,0,0,0\n"+
		"1400000US29001950200,1,,3.0,0,0,0,0,46\n")

	rows, err := NewReader().ReadVehicles("MO", path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "29001950100", rows[0].GEOID)
	assert.Equal(t, [8]int64{10, 20, 30, 40}, rows[0].Buckets)
	assert.Equal(t, "29001950200", rows[1].GEOID)
	assert.Equal(t, [8]int64{1, 0, 3, 0, 0, 0, 0, 46}, rows[1].Buckets)
	assert.Equal(t, int64(50), domain.SumBuckets(rows[1].Buckets))
}

func TestReadVehicles_MissingColumns(t *testing.T) {
	header := strings.Replace(vehicleHeader, ",households_with_7_vehicles", "", 1)
	header = strings.Replace(header, ",households_with_3_vehicles", "", 1)
	path := writeFile(t, "v.csv", header+"29001950100,1,2,3,4,5,6\n")

	_, err := NewReader().ReadVehicles("KS", path)
	require.Error(t, err)

	var mce *domain.MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "KS", mce.State)
	assert.Equal(t, []string{"households_with_3_vehicles", "households_with_7_vehicles"}, mce.Columns)
}

func TestReadVehicles_NonNumericCellIsFatal(t *testing.T) {
	path := writeFile(t, "v.csv", vehicleHeader+
		"29001950100,1,1,1,1,1,1,1,1\n"+
		"29001950200,1,n/a,1,1,1,1,1,1\n")

	_, err := NewReader().ReadVehicles("MO", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MO")
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "households_with_2_vehicles")
}

func TestReadVehicles_OutOfRangeCellIsFatal(t *testing.T) {
	path := writeFile(t, "v.csv", vehicleHeader+"29001950100,1,1,1,1e30,1,1,1,1\n")

	_, err := NewReader().ReadVehicles("IA", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IA")
	assert.Contains(t, err.Error(), "households_with_4_vehicles")
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadVehicles_MissingFile(t *testing.T) {
	_, err := NewReader().ReadVehicles("MO", filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadIncome(t *testing.T) {
	path := writeFile(t, "income_by_tract_MO.csv",
		"tract_geoid,total_population,median_income\n"+
			"29001950100,1000,52000\n"+
			"29001950200,,-\n")

	rows, err := NewReader().ReadIncome(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].TotalPopulation)
	assert.InDelta(t, 1000, *rows[0].TotalPopulation, 0)
	require.NotNil(t, rows[0].MedianIncome)
	assert.InDelta(t, 52000, *rows[0].MedianIncome, 0)
	assert.Nil(t, rows[0].PerCapitaIncome, "column absent")
	assert.Nil(t, rows[1].TotalPopulation)
	assert.Nil(t, rows[1].MedianIncome)
}

func TestReadIncome_MissingFile(t *testing.T) {
	_, err := NewReader().ReadIncome(filepath.Join(t.TempDir(), "income_by_tract_NE.csv"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadIncome_MissingKey(t *testing.T) {
	path := writeFile(t, "i.csv", "GEOID,median_income\n29001950100,1\n")
	_, err := NewReader().ReadIncome(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tract_geoid")
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"42", 42, false},
		{"42.0", 42, false},
		{"4.5", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"9007199254740992", 9007199254740992, false},
		{"9007199254740993", 0, true},
		{"9223372036854775807", 0, true},
		{"1e30", 0, true},
		{"9.2233720368547758e18", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
