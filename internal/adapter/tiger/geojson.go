package tiger

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	geo "github.com/paulmach/go.geo"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// namedCRS is the legacy GeoJSON "crs" member, e.g.
// {"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::4269"}}.
type namedCRS struct {
	CRS struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func readGeoJSON(path string) ([]domain.TractGeometry, domain.CRS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode geojson %s: %w", path, err)
	}

	var named namedCRS
	_ = json.Unmarshal(data, &named)
	crs := crsFromName(named.CRS.Properties.Name)

	tracts := make([]domain.TractGeometry, 0, len(fc.Features))
	for i, f := range fc.Features {
		var geom domain.MultiPolygon
		switch {
		case f.Geometry == nil:
		case f.Geometry.IsPolygon():
			geom = domain.MultiPolygon{toPolygon(f.Geometry.Polygon)}
		case f.Geometry.IsMultiPolygon():
			for _, p := range f.Geometry.MultiPolygon {
				geom = append(geom, toPolygon(p))
			}
		default:
			return nil, "", fmt.Errorf("geojson %s feature %d: %s is not a polygon", path, i, f.Geometry.Type)
		}
		a := attrs{
			geoid:   propString(f.Properties, FieldGEOID),
			statefp: propString(f.Properties, FieldStateFP),
			aland:   propString(f.Properties, FieldLandArea),
			lon:     propString(f.Properties, FieldIntPtLon),
			lat:     propString(f.Properties, FieldIntPtLat),
		}
		if a.geoid == "" {
			return nil, "", fmt.Errorf("geojson %s feature %d has no %s", path, i, FieldGEOID)
		}
		t, err := a.tract(geom, crs)
		if err != nil {
			return nil, "", fmt.Errorf("geojson %s feature %d: %w", path, i, err)
		}
		tracts = append(tracts, t)
	}
	return tracts, crs, nil
}

func crsFromName(name string) domain.CRS {
	switch name {
	case "":
		return domain.WGS84
	case "urn:ogc:def:crs:EPSG::4269", "EPSG:4269":
		return domain.NAD83
	case "urn:ogc:def:crs:EPSG::3857", "EPSG:3857":
		return domain.WebMercator
	default:
		return domain.WGS84
	}
}

func toPolygon(rings [][][]float64) domain.Polygon {
	poly := make(domain.Polygon, 0, len(rings))
	for _, coords := range rings {
		ring := make(domain.Ring, 0, len(coords))
		for _, c := range coords {
			if len(c) < 2 {
				continue
			}
			ring = append(ring, geo.Point{c[0], c[1]})
		}
		poly = append(poly, ring)
	}
	return poly
}

// propString renders a property as text. TIGER exports carry GEOID and ALAND
// as strings or numbers depending on the tool that produced them.
func propString(props map[string]interface{}, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
