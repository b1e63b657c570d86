package domain

import (
	"fmt"
	"math"
	"strings"
)

// KeepDirection selects which side of a longitude threshold a ClipRule keeps.
type KeepDirection string

const (
	// KeepWest keeps tracts whose centroid longitude is strictly less than
	// the threshold; tracts at or east of it are excluded.
	KeepWest KeepDirection = "west"
	// KeepEast keeps tracts whose centroid longitude is strictly greater than
	// the threshold; tracts at or west of it are excluded.
	KeepEast KeepDirection = "east"
)

// ParseKeepDirection parses "west" or "east".
func ParseKeepDirection(s string) (KeepDirection, error) {
	switch d := KeepDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case KeepWest, KeepEast:
		return d, nil
	default:
		return "", fmt.Errorf("invalid clip direction %q (allowed: west, east)", s)
	}
}

// ClipRule limits one state's tracts to one side of a meridian.
type ClipRule struct {
	State     string
	Longitude float64
	Keep      KeepDirection
}

// MissouriHighway63 keeps Missouri tracts west of U.S. Highway 63.
var MissouriHighway63 = ClipRule{State: "MO", Longitude: -92.3, Keep: KeepWest}

// Keeps reports whether a tract with the given centroid longitude survives.
func (c ClipRule) Keeps(lon float64) bool {
	switch c.Keep {
	case KeepEast:
		return lon > c.Longitude
	default:
		return lon < c.Longitude
	}
}

// Apply filters tracts of the rule's state, returning survivors and the
// number excluded. Tracts of other states pass through untouched.
func (c ClipRule) Apply(state string, tracts []TractRecord) ([]TractRecord, int) {
	if !strings.EqualFold(state, c.State) {
		return tracts, 0
	}
	out := make([]TractRecord, 0, len(tracts))
	for _, t := range tracts {
		if c.Keeps(t.CentroidLon) {
			out = append(out, t)
		}
	}
	return out, len(tracts) - len(out)
}

// DensityPolicy decides what happens to tracts whose density is undefined.
type DensityPolicy string

const (
	// DensityDrop removes tracts with undefined density from the region.
	DensityDrop DensityPolicy = "drop"
	// DensityZero keeps them with density 0.
	DensityZero DensityPolicy = "zero"
)

// ParseDensityPolicy parses "drop" or "zero".
func ParseDensityPolicy(s string) (DensityPolicy, error) {
	switch p := DensityPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DensityDrop, DensityZero:
		return p, nil
	default:
		return "", fmt.Errorf("invalid density policy %q (allowed: drop, zero)", s)
	}
}

// StateTracts is one state's loaded tracts.
type StateTracts struct {
	State  string
	Tracts []TractRecord
}

// AssembleStats counts tracts removed during assembly.
type AssembleStats struct {
	Clipped          int
	UndefinedDensity int
}

// Assemble clips, concatenates and computes density metrics for the
// per-state collections, in input order. The result is in WGS84.
func Assemble(perState []StateTracts, clips []ClipRule, policy DensityPolicy) (Region, AssembleStats) {
	var stats AssembleStats
	var all []TractRecord
	for _, st := range perState {
		tracts := st.Tracts
		for _, rule := range clips {
			var n int
			tracts, n = rule.Apply(st.State, tracts)
			stats.Clipped += n
		}
		all = append(all, tracts...)
	}

	out := make([]TractRecord, 0, len(all))
	for _, t := range all {
		t, ok := WithDensity(t, policy)
		if !ok {
			stats.UndefinedDensity++
			continue
		}
		out = append(out, t)
	}
	return Region{CRS: WGS84, Tracts: out}, stats
}

// WithDensity fills LandAreaKM2, CarOwnershipDensity and PopulationDensity.
// It returns false when the car ownership density is undefined and the policy
// drops such tracts.
func WithDensity(t TractRecord, policy DensityPolicy) (TractRecord, bool) {
	t.LandAreaKM2 = nil
	t.CarOwnershipDensity = nil
	t.PopulationDensity = nil

	if t.LandAreaM2 != nil && finite(*t.LandAreaM2) {
		km2 := *t.LandAreaM2 / 1_000_000
		t.LandAreaKM2 = &km2
	}

	density, ok := perKM2(float64(t.HouseholdsWithVehicles), t.LandAreaKM2)
	if !ok {
		if policy != DensityZero {
			return t, false
		}
		density = 0
	}
	t.CarOwnershipDensity = &density

	if t.TotalPopulation != nil {
		if pd, ok := perKM2(*t.TotalPopulation, t.LandAreaKM2); ok {
			t.PopulationDensity = &pd
		} else if policy == DensityZero {
			zero := 0.0
			t.PopulationDensity = &zero
		}
	}
	return t, true
}

func perKM2(value float64, km2 *float64) (float64, bool) {
	if km2 == nil || *km2 == 0 || !finite(value) {
		return 0, false
	}
	d := value / *km2
	if !finite(d) {
		return 0, false
	}
	return d, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
