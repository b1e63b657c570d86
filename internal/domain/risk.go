package domain

import (
	"cmp"
	"slices"
)

// CountByTract groups joined points by containing tract. Points with no
// containing tract are not counted.
func CountByTract(points []HailPoint) map[string]int {
	counts := make(map[string]int)
	for _, p := range points {
		if p.ContainingGEOID == "" {
			continue
		}
		counts[p.ContainingGEOID]++
	}
	return counts
}

// Aggregate returns a copy of tracts with HailReports and HailRiskScore set.
// Tracts without joined points get zero reports. A nil density scores 0.
func Aggregate(points []HailPoint, tracts []TractRecord) []TractRecord {
	counts := CountByTract(points)
	out := make([]TractRecord, len(tracts))
	for i, t := range tracts {
		t.HailReports = counts[t.GEOID]
		t.HailRiskScore = 0
		if t.CarOwnershipDensity != nil {
			t.HailRiskScore = float64(t.HailReports) * *t.CarOwnershipDensity
		}
		out[i] = t
	}
	return out
}

// SortByGEOID orders tracts by GEOID in place so serialized output is stable.
func SortByGEOID(tracts []TractRecord) {
	slices.SortStableFunc(tracts, func(a, b TractRecord) int {
		return cmp.Compare(a.GEOID, b.GEOID)
	})
}

// RiskyTracts returns tracts with a positive risk score, highest first, ties
// broken by GEOID.
func RiskyTracts(tracts []TractRecord) []TractRecord {
	var out []TractRecord
	for _, t := range tracts {
		if t.HailRiskScore > 0 {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b TractRecord) int {
		if c := cmp.Compare(b.HailRiskScore, a.HailRiskScore); c != 0 {
			return c
		}
		return cmp.Compare(a.GEOID, b.GEOID)
	})
	return out
}

// FilterByState returns tracts whose state FIPS matches statefp.
func FilterByState(tracts []TractRecord, statefp string) []TractRecord {
	var out []TractRecord
	for _, t := range tracts {
		if t.StateFP == statefp {
			out = append(out, t)
		}
	}
	return out
}

// PointsInTracts returns the points whose containing tract is in tracts.
func PointsInTracts(points []HailPoint, tracts []TractRecord) []HailPoint {
	ids := make(map[string]bool, len(tracts))
	for _, t := range tracts {
		ids[t.GEOID] = true
	}
	var out []HailPoint
	for _, p := range points {
		if ids[p.ContainingGEOID] {
			out = append(out, p)
		}
	}
	return out
}
