package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func densityTract(geoid string, density float64) TractRecord {
	return TractRecord{GEOID: geoid, StateFP: StateFPFromGEOID(geoid), CarOwnershipDensity: &density}
}

func TestAggregate(t *testing.T) {
	tracts := []TractRecord{
		densityTract("29000000001", 10),
		densityTract("29000000002", 10),
		densityTract("29000000003", 4),
	}
	points := []HailPoint{
		{ContainingGEOID: "29000000001"},
		{ContainingGEOID: "29000000001"},
		{ContainingGEOID: "29000000002"},
		{ContainingGEOID: ""},
	}

	got := Aggregate(points, tracts)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].HailReports)
	assert.InDelta(t, 20.0, got[0].HailRiskScore, 1e-9)
	assert.Equal(t, 1, got[1].HailReports)
	assert.InDelta(t, 10.0, got[1].HailRiskScore, 1e-9)
	assert.Equal(t, 0, got[2].HailReports, "no points means zero, not missing")
	assert.Zero(t, got[2].HailRiskScore)

	assert.Zero(t, tracts[0].HailReports, "input is not mutated")
}

func TestAggregate_NilDensityScoresZero(t *testing.T) {
	got := Aggregate([]HailPoint{{ContainingGEOID: "31000000001"}}, []TractRecord{{GEOID: "31000000001"}})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].HailReports)
	assert.Zero(t, got[0].HailRiskScore)
}

func TestRiskyTracts(t *testing.T) {
	tracts := []TractRecord{
		{GEOID: "b", HailRiskScore: 5},
		{GEOID: "a", HailRiskScore: 5},
		{GEOID: "c", HailRiskScore: 0},
		{GEOID: "d", HailRiskScore: 9},
	}
	got := RiskyTracts(tracts)
	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].GEOID)
	assert.Equal(t, "a", got[1].GEOID)
	assert.Equal(t, "b", got[2].GEOID)
}

func TestSortByGEOID(t *testing.T) {
	tracts := []TractRecord{{GEOID: "31"}, {GEOID: "19"}, {GEOID: "29"}}
	SortByGEOID(tracts)
	assert.Equal(t, "19", tracts[0].GEOID)
	assert.Equal(t, "29", tracts[1].GEOID)
	assert.Equal(t, "31", tracts[2].GEOID)
}

func TestFilterByState(t *testing.T) {
	tracts := []TractRecord{
		densityTract("29000000001", 1),
		densityTract("20000000001", 1),
		densityTract("29000000002", 1),
	}
	mo := FilterByState(tracts, "29")
	require.Len(t, mo, 2)

	points := []HailPoint{{ContainingGEOID: "29000000002"}, {ContainingGEOID: "20000000001"}, {}}
	assert.Len(t, PointsInTracts(points, mo), 1)
}
