package spatial

import (
	"fmt"

	geo "github.com/paulmach/go.geo"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// Transform maps a point from one CRS to another.
type Transform func(geo.Point) geo.Point

func identity(p geo.Point) geo.Point { return p }

func geographic(c domain.CRS) bool {
	return c == domain.WGS84 || c == domain.NAD83
}

// NewTransform returns the point transform from one CRS to another.
// WGS84 and NAD83 are treated as coincident: the datum shift is under two
// meters across the continental US, far below tract resolution.
func NewTransform(from, to domain.CRS) (Transform, error) {
	switch {
	case from == to, geographic(from) && geographic(to):
		return identity, nil
	case geographic(from) && to == domain.WebMercator:
		return func(p geo.Point) geo.Point {
			geo.Mercator.Project(&p)
			return p
		}, nil
	case from == domain.WebMercator && geographic(to):
		return func(p geo.Point) geo.Point {
			geo.Mercator.Inverse(&p)
			return p
		}, nil
	default:
		return nil, fmt.Errorf("unsupported reprojection %s -> %s", from, to)
	}
}

// ReprojectMultiPolygon returns a transformed copy of m.
func ReprojectMultiPolygon(m domain.MultiPolygon, from, to domain.CRS) (domain.MultiPolygon, error) {
	tf, err := NewTransform(from, to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return m, nil
	}
	out := make(domain.MultiPolygon, len(m))
	for i, poly := range m {
		out[i] = make(domain.Polygon, len(poly))
		for j, ring := range poly {
			r := make(domain.Ring, len(ring))
			for k, p := range ring {
				r[k] = tf(p)
			}
			out[i][j] = r
		}
	}
	return out, nil
}
