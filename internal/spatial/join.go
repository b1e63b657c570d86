package spatial

import (
	"fmt"
	"math"
	"slices"

	geo "github.com/paulmach/go.geo"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// JoinResult is the output of a containment join.
type JoinResult struct {
	// Points holds every point inside the combined region, in input order.
	// ContainingGEOID is set for points strictly inside a tract.
	Points []domain.HailPoint
	// Counts maps GEOID to the number of points strictly inside it.
	Counts map[string]int

	Assigned int // strictly inside one tract
	Seam     int // on an interior seam of the union, counted for no tract
	Outside  int // outside the combined region or on its outer edge
}

type indexedTract struct {
	geoid string
	bound *geo.Bound
	geom  domain.MultiPolygon
}

// Index is a region prepared for repeated point lookups.
type Index struct {
	crs    domain.CRS
	tracts []indexedTract
}

// NewIndex precomputes tract bounding boxes. Tracts with empty geometry are
// skipped since they can contain nothing.
func NewIndex(region domain.Region) *Index {
	idx := &Index{crs: region.CRS, tracts: make([]indexedTract, 0, len(region.Tracts))}
	for _, t := range region.Tracts {
		b := t.Geometry.Bound()
		if b == nil {
			continue
		}
		idx.tracts = append(idx.tracts, indexedTract{geoid: t.GEOID, bound: b, geom: t.Geometry})
	}
	return idx
}

// Locate returns the GEOID of the tract strictly containing p, and the number
// of tracts whose boundary p lies on. p must be in the index CRS.
//
// Tracts are scanned in region order and the first strict container wins.
// Tracts in a census partition do not overlap, so at most one can match.
func (idx *Index) Locate(p geo.Point) (geoid string, boundaries int) {
	geoid, touching := idx.locate(p)
	return geoid, len(touching)
}

func (idx *Index) locate(p geo.Point) (string, []*indexedTract) {
	var touching []*indexedTract
	for i := range idx.tracts {
		t := &idx.tracts[i]
		if !t.bound.Contains(&p) {
			continue
		}
		switch LocateMultiPolygon(p, t.geom) {
		case Inside:
			return t.geoid, nil
		case Boundary:
			touching = append(touching, t)
		}
	}
	return "", touching
}

// InUnion reports whether p is in the interior of the union of all tracts.
func (idx *Index) InUnion(p geo.Point) bool {
	geoid, touching := idx.locate(p)
	if geoid != "" {
		return true
	}
	return coveredAround(p, touching)
}

// coveredAround reports whether every direction out of boundary point p
// enters one of the touching tracts. The edges through p split its
// neighbourhood into sectors; each sector is sampled once along its bisector,
// closer to p than any edge not passing through p.
func coveredAround(p geo.Point, touching []*indexedTract) bool {
	if len(touching) == 0 {
		return false
	}

	var angles []float64
	radius := math.Inf(1)
	for _, t := range touching {
		for _, poly := range t.geom {
			for _, ring := range poly {
				for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
					a, b := ring[j], ring[i]
					if a.Equals(&b) {
						continue
					}
					if !onSegment(p, a, b) {
						radius = math.Min(radius, geo.NewLine(&a, &b).DistanceFrom(&p))
						continue
					}
					for _, end := range []geo.Point{a, b} {
						if end.Equals(&p) {
							continue
						}
						radius = math.Min(radius, end.DistanceFrom(&p))
						angles = append(angles, math.Atan2(end.Y()-p.Y(), end.X()-p.X()))
					}
				}
			}
		}
	}
	if len(angles) == 0 || math.IsInf(radius, 1) {
		return false
	}
	slices.Sort(angles)
	angles = slices.Compact(angles)

	eps := radius / 2
	for i, from := range angles {
		to := angles[(i+1)%len(angles)]
		if to <= from {
			to += 2 * math.Pi
		}
		mid := (from + to) / 2
		q := geo.Point{p.X() + eps*math.Cos(mid), p.Y() + eps*math.Sin(mid)}
		if !insideAny(q, touching) {
			return false
		}
	}
	return true
}

func insideAny(q geo.Point, tracts []*indexedTract) bool {
	for _, t := range tracts {
		if LocateMultiPolygon(q, t.geom) == Inside {
			return true
		}
	}
	return false
}

// Join reprojects points from pointsCRS into the region CRS, drops points not
// within the union of all tracts, and assigns each remaining point to the
// tract that strictly contains it.
//
// A point is within the union when some tract strictly contains it or every
// direction out of it enters a tract (an interior seam of the union). Seam
// points stay in the filtered output but are counted for no tract. Points on
// the outer edge of the union are dropped, including junctions where tracts
// meet that edge and corners where tracts touch only diagonally.
func Join(points []domain.HailPoint, pointsCRS domain.CRS, region domain.Region) (JoinResult, error) {
	tf, err := NewTransform(pointsCRS, region.CRS)
	if err != nil {
		return JoinResult{}, fmt.Errorf("reproject points: %w", err)
	}

	idx := NewIndex(region)
	res := JoinResult{Counts: make(map[string]int)}
	for _, pt := range points {
		projected := tf(geo.Point{pt.Lon, pt.Lat})
		geoid, touching := idx.locate(projected)
		switch {
		case geoid != "":
			pt.ContainingGEOID = geoid
			res.Counts[geoid]++
			res.Assigned++
		case coveredAround(projected, touching):
			pt.ContainingGEOID = ""
			res.Seam++
		default:
			res.Outside++
			continue
		}
		res.Points = append(res.Points, pt)
	}
	return res, nil
}
