// Package tiger reads census tract geometries from TIGER/Line shapefiles or
// GeoJSON exports of them.
package tiger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	geo "github.com/paulmach/go.geo"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/spatial"
)

// TIGER/Line tract attribute names.
const (
	FieldGEOID    = "GEOID"
	FieldStateFP  = "STATEFP"
	FieldLandArea = "ALAND"
	FieldIntPtLon = "INTPTLON"
	FieldIntPtLat = "INTPTLAT"
)

// Reader loads tract geometry files, choosing the decoder by extension.
type Reader struct{}

// NewReader creates a tract geometry reader.
func NewReader() *Reader { return &Reader{} }

// Read returns the tracts in path and the CRS their coordinates are in.
// Shapefiles (.shp) and GeoJSON (.geojson, .json) are supported. Every
// record is returned; a null shape yields a tract with empty geometry, and
// a non-polygon shape is an error.
func (r *Reader) Read(path string) ([]domain.TractGeometry, domain.CRS, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefile(path)
	case ".geojson", ".json":
		return readGeoJSON(path)
	default:
		return nil, "", fmt.Errorf("unsupported tract geometry format %q", path)
	}
}

// attrs is one tract's attribute values, read from either format.
type attrs struct {
	geoid, statefp, aland, lon, lat string
}

// tract builds a TractGeometry from raw attributes. The interior point is
// taken from INTPTLON/INTPTLAT and falls back to the geometry centroid when
// those are missing, converted to lon/lat.
func (a attrs) tract(geom domain.MultiPolygon, crs domain.CRS) (domain.TractGeometry, error) {
	t := domain.TractGeometry{
		GEOID:    domain.NormalizeGEOID(a.geoid),
		StateFP:  strings.TrimSpace(a.statefp),
		Geometry: geom,
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(a.aland), 64); err == nil {
		t.LandAreaM2 = &v
	}

	lon, errLon := strconv.ParseFloat(strings.TrimSpace(a.lon), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(a.lat), 64)
	if errLon == nil && errLat == nil {
		t.CentroidLon, t.CentroidLat = lon, lat
		return t, nil
	}

	x, y, ok := geom.Centroid()
	if !ok {
		return t, fmt.Errorf("tract %s has no interior point and no geometry", t.GEOID)
	}
	tf, err := spatial.NewTransform(crs, domain.WGS84)
	if err != nil {
		return t, err
	}
	c := tf(geo.Point{x, y})
	t.CentroidLon, t.CentroidLat = c.X(), c.Y()
	return t, nil
}

// detectCRS reads the .prj sidecar of a shapefile. TIGER/Line ships NAD83;
// a missing or unrecognised projection is taken as WGS84.
func detectCRS(shpPath string) domain.CRS {
	prj, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj")
	if err != nil {
		return domain.WGS84
	}
	return crsFromWKT(string(prj))
}

func crsFromWKT(wkt string) domain.CRS {
	w := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(w, "PROJCS") && (strings.Contains(w, "MERCATOR_AUXILIARY_SPHERE") ||
		strings.Contains(w, "PSEUDO-MERCATOR") || strings.Contains(w, "3857")):
		return domain.WebMercator
	case strings.Contains(w, "NORTH_AMERICAN_1983") || strings.Contains(w, "NAD83"):
		return domain.NAD83
	default:
		return domain.WGS84
	}
}
