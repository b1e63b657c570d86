package domain

import geo "github.com/paulmach/go.geo"

// CRS names a coordinate reference system by its EPSG code.
type CRS string

const (
	// WGS84 is geographic longitude/latitude (EPSG:4326).
	WGS84 CRS = "EPSG:4326"
	// NAD83 is the TIGER/Line native datum (EPSG:4269).
	NAD83 CRS = "EPSG:4269"
	// WebMercator is spherical Mercator in meters (EPSG:3857).
	WebMercator CRS = "EPSG:3857"
)

// Ring is a closed linear ring. The closing point may or may not repeat the
// first point; containment tests treat both forms the same.
type Ring []geo.Point

// Polygon is an outer ring followed by zero or more holes.
type Polygon []Ring

// MultiPolygon is a set of non-overlapping polygons.
type MultiPolygon []Polygon

// Bound returns the bounding box of every ring vertex, or nil when the
// geometry is empty.
func (m MultiPolygon) Bound() *geo.Bound {
	var b *geo.Bound
	for _, poly := range m {
		for _, ring := range poly {
			for i := range ring {
				p := ring[i]
				if b == nil {
					b = geo.NewBound(p.X(), p.X(), p.Y(), p.Y())
					continue
				}
				b = b.Extend(&p)
			}
		}
	}
	return b
}

// Empty reports whether the geometry has no vertices.
func (m MultiPolygon) Empty() bool {
	for _, poly := range m {
		for _, ring := range poly {
			if len(ring) > 0 {
				return false
			}
		}
	}
	return true
}

// SignedArea returns the shoelace area of the ring. Counter-clockwise rings
// are positive.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X()*r[j].Y() - r[j].X()*r[i].Y()
	}
	return sum / 2
}

// Centroid returns the area-weighted centroid of the outer rings, falling back
// to the vertex mean for degenerate (zero-area) geometry.
func (m MultiPolygon) Centroid() (x, y float64, ok bool) {
	var cx, cy, area float64
	var sx, sy float64
	var count int
	for _, poly := range m {
		if len(poly) == 0 {
			continue
		}
		outer := poly[0]
		n := len(outer)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			cross := outer[i].X()*outer[j].Y() - outer[j].X()*outer[i].Y()
			cx += (outer[i].X() + outer[j].X()) * cross
			cy += (outer[i].Y() + outer[j].Y()) * cross
			area += cross
			sx += outer[i].X()
			sy += outer[i].Y()
			count++
		}
	}
	if count == 0 {
		return 0, 0, false
	}
	if area == 0 {
		return sx / float64(count), sy / float64(count), true
	}
	return cx / (3 * area), cy / (3 * area), true
}
