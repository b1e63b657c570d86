package tiger

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	geo "github.com/paulmach/go.geo"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/spatial"
)

func readShapefile(path string) ([]domain.TractGeometry, domain.CRS, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	fieldIdx := make(map[string]int)
	for i, f := range r.Fields() {
		fieldIdx[f.String()] = i
	}
	if _, ok := fieldIdx[FieldGEOID]; !ok {
		return nil, "", fmt.Errorf("shapefile %s has no %s field", path, FieldGEOID)
	}
	attr := func(row int, name string) string {
		if i, ok := fieldIdx[name]; ok {
			return r.ReadAttribute(row, i)
		}
		return ""
	}

	crs := detectCRS(path)
	var tracts []domain.TractGeometry
	for r.Next() {
		row, shape := r.Shape()
		var geom domain.MultiPolygon
		switch s := shape.(type) {
		case *shp.Polygon:
			geom = polygonRings(s)
		case *shp.Null, nil:
			// Kept with empty geometry; it joins attributes but contains no points.
		default:
			return nil, "", fmt.Errorf("shapefile %s row %d: %T is not a polygon", path, row, shape)
		}
		a := attrs{
			geoid:   attr(row, FieldGEOID),
			statefp: attr(row, FieldStateFP),
			aland:   attr(row, FieldLandArea),
			lon:     attr(row, FieldIntPtLon),
			lat:     attr(row, FieldIntPtLat),
		}
		t, err := a.tract(geom, crs)
		if err != nil {
			return nil, "", fmt.Errorf("shapefile %s row %d: %w", path, row, err)
		}
		tracts = append(tracts, t)
	}
	if err := r.Err(); err != nil {
		return nil, "", fmt.Errorf("read shapefile: %w", err)
	}
	return tracts, crs, nil
}

// polygonRings groups shapefile parts into polygons. Shapefile outer rings
// wind clockwise and holes counter-clockwise; each hole joins the outer ring
// that contains its first vertex.
func polygonRings(p *shp.Polygon) domain.MultiPolygon {
	var out domain.MultiPolygon
	for i, start := range p.Parts {
		end := int32(len(p.Points))
		if i+1 < len(p.Parts) {
			end = p.Parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(p.Points) {
			continue
		}
		ring := make(domain.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, geo.Point{pt.X, pt.Y})
		}

		if ring.SignedArea() < 0 || len(out) == 0 {
			out = append(out, domain.Polygon{ring})
			continue
		}
		owner := len(out) - 1
		for j := range out {
			if spatial.LocatePolygon(ring[0], domain.Polygon{out[j][0]}) != spatial.Outside {
				owner = j
				break
			}
		}
		out[owner] = append(out[owner], ring)
	}
	return out
}
