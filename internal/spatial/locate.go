package spatial

import (
	geo "github.com/paulmach/go.geo"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// Location classifies a point against a polygon.
type Location int

const (
	Outside Location = iota
	Boundary
	Inside
)

func (l Location) String() string {
	switch l {
	case Inside:
		return "inside"
	case Boundary:
		return "boundary"
	default:
		return "outside"
	}
}

// LocateMultiPolygon classifies p against m. A point on any ring edge, holes
// included, is Boundary. Edge tests use exact arithmetic; no tolerance.
func LocateMultiPolygon(p geo.Point, m domain.MultiPolygon) Location {
	result := Outside
	for _, poly := range m {
		switch LocatePolygon(p, poly) {
		case Inside:
			return Inside
		case Boundary:
			result = Boundary
		}
	}
	return result
}

// LocatePolygon classifies p against an outer ring with holes.
func LocatePolygon(p geo.Point, poly domain.Polygon) Location {
	if len(poly) == 0 {
		return Outside
	}
	for _, ring := range poly {
		if onRing(p, ring) {
			return Boundary
		}
	}
	if !insideRing(p, poly[0]) {
		return Outside
	}
	for _, hole := range poly[1:] {
		if insideRing(p, hole) {
			return Outside
		}
	}
	return Inside
}

// insideRing is the crossing-number test. Callers rule out edge points first.
func insideRing(p geo.Point, ring domain.Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	x, y := p.X(), p.Y()
	in := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X(), ring[i].Y()
		xj, yj := ring[j].X(), ring[j].Y()
		if (yi > y) != (yj > y) {
			xCross := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xCross {
				in = !in
			}
		}
	}
	return in
}

func onRing(p geo.Point, ring domain.Ring) bool {
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(p, ring[j], ring[i]) {
			return true
		}
	}
	return false
}

func onSegment(p, a, b geo.Point) bool {
	cross := (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
	if cross != 0 {
		return false
	}
	return p.X() >= min(a.X(), b.X()) && p.X() <= max(a.X(), b.X()) &&
		p.Y() >= min(a.Y(), b.Y()) && p.Y() <= max(a.Y(), b.Y())
}
