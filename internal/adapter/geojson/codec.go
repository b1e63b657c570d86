package geojson

import (
	"fmt"
	"slices"

	geo "github.com/paulmach/go.geo"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

// Tract feature property names. The dashboard reads GEOID and the density,
// income and risk properties.
const (
	PropGEOID                  = "GEOID"
	PropStateFP                = "STATEFP"
	PropState                  = "state"
	PropIntPtLon               = "INTPTLON"
	PropIntPtLat               = "INTPTLAT"
	PropLandAreaM2             = "ALAND"
	PropLandAreaKM2            = "land_area_km2"
	PropHouseholdsWithVehicles = "households_with_vehicles"
	PropHasVehicleData         = "has_vehicle_data"
	PropTotalPopulation        = "total_population"
	PropMedianIncome           = "median_income"
	PropPerCapitaIncome        = "per_capita_income"
	PropCarOwnershipDensity    = "car_ownership_density"
	PropPopulationDensity      = "population_density"
	PropHailReports            = "hail_reports"
	PropHailRiskScore          = "hail_risk_score"
)

// Point feature property names. Lat, Lon and Comments keep the SPC column
// names the dashboard tooltips use.
const (
	PropLat             = "Lat"
	PropLon             = "Lon"
	PropComments        = "Comments"
	PropTime            = "Time"
	PropSize            = "Size"
	PropLocation        = "Location"
	PropCounty          = "County"
	PropReportState     = "State"
	PropSizeInches      = "size_inches"
	PropPlaceName       = "place_name"
	PropSourceOffice    = "source_office"
	PropContainingGEOID = "containing_geoid"
)

// RequiredTractProps must be present on every persisted tract feature.
var RequiredTractProps = []string{
	PropGEOID,
	PropCarOwnershipDensity,
	PropPopulationDensity,
	PropMedianIncome,
	PropPerCapitaIncome,
	PropHailReports,
	PropHailRiskScore,
}

// RequiredPointProps must be present on every persisted point feature.
var RequiredPointProps = []string{PropLat, PropLon, PropComments}

// EncodeTracts renders tracts as a FeatureCollection sorted by GEOID.
func EncodeTracts(tracts []domain.TractRecord) ([]byte, error) {
	sorted := slices.Clone(tracts)
	domain.SortByGEOID(sorted)

	fc := geojson.NewFeatureCollection()
	for _, t := range sorted {
		f := geojson.NewFeature(encodeGeometry(t.Geometry))
		f.SetProperty(PropGEOID, t.GEOID)
		f.SetProperty(PropStateFP, t.StateFP)
		f.SetProperty(PropState, t.State)
		f.SetProperty(PropIntPtLon, t.CentroidLon)
		f.SetProperty(PropIntPtLat, t.CentroidLat)
		f.SetProperty(PropLandAreaM2, nullable(t.LandAreaM2))
		f.SetProperty(PropLandAreaKM2, nullable(t.LandAreaKM2))
		for i, col := range domain.VehicleColumns {
			f.SetProperty(col, t.VehicleBuckets[i])
		}
		f.SetProperty(PropHouseholdsWithVehicles, t.HouseholdsWithVehicles)
		f.SetProperty(PropHasVehicleData, t.HasVehicleData)
		f.SetProperty(PropTotalPopulation, nullable(t.TotalPopulation))
		f.SetProperty(PropMedianIncome, nullable(t.MedianIncome))
		f.SetProperty(PropPerCapitaIncome, nullable(t.PerCapitaIncome))
		f.SetProperty(PropCarOwnershipDensity, nullable(t.CarOwnershipDensity))
		f.SetProperty(PropPopulationDensity, nullable(t.PopulationDensity))
		f.SetProperty(PropHailReports, t.HailReports)
		f.SetProperty(PropHailRiskScore, t.HailRiskScore)
		fc.AddFeature(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode tracts: %w", err)
	}
	return data, nil
}

// EncodePoints renders points as a FeatureCollection in input order.
func EncodePoints(points []domain.HailPoint) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		f := geojson.NewPointFeature([]float64{p.Lon, p.Lat})
		f.SetProperty(PropLat, p.Lat)
		f.SetProperty(PropLon, p.Lon)
		f.SetProperty(PropComments, p.Comments)
		f.SetProperty(PropTime, p.Time)
		f.SetProperty(PropSize, p.Size)
		f.SetProperty(PropLocation, p.Location)
		f.SetProperty(PropCounty, p.County)
		f.SetProperty(PropReportState, p.State)
		f.SetProperty(PropSizeInches, p.SizeInches)
		f.SetProperty(PropPlaceName, p.PlaceName)
		f.SetProperty(PropSourceOffice, p.SourceOffice)
		if p.ContainingGEOID != "" {
			f.SetProperty(PropContainingGEOID, p.ContainingGEOID)
		} else {
			f.SetProperty(PropContainingGEOID, nil)
		}
		fc.AddFeature(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode points: %w", err)
	}
	return data, nil
}

// DecodeTracts parses a tract FeatureCollection written by EncodeTracts.
func DecodeTracts(data []byte) ([]domain.TractRecord, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	tracts := make([]domain.TractRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		if missing := missingProps(f.Properties, RequiredTractProps); len(missing) > 0 {
			return nil, fmt.Errorf("tract feature %d missing properties %v", i, missing)
		}
		props := f.Properties
		t := domain.TractRecord{
			GEOID:                  str(props, PropGEOID),
			StateFP:                str(props, PropStateFP),
			State:                  str(props, PropState),
			Geometry:               decodeGeometry(f.Geometry),
			LandAreaM2:             num(props, PropLandAreaM2),
			LandAreaKM2:            num(props, PropLandAreaKM2),
			HasVehicleData:         boolean(props, PropHasVehicleData),
			HouseholdsWithVehicles: int64(numOrZero(props, PropHouseholdsWithVehicles)),
			TotalPopulation:        num(props, PropTotalPopulation),
			MedianIncome:           num(props, PropMedianIncome),
			PerCapitaIncome:        num(props, PropPerCapitaIncome),
			CarOwnershipDensity:    num(props, PropCarOwnershipDensity),
			PopulationDensity:      num(props, PropPopulationDensity),
			HailReports:            int(numOrZero(props, PropHailReports)),
			HailRiskScore:          numOrZero(props, PropHailRiskScore),
			CentroidLon:            numOrZero(props, PropIntPtLon),
			CentroidLat:            numOrZero(props, PropIntPtLat),
		}
		for j, col := range domain.VehicleColumns {
			t.VehicleBuckets[j] = int64(numOrZero(props, col))
		}
		tracts = append(tracts, t)
	}
	return tracts, nil
}

// DecodePoints parses a point FeatureCollection written by EncodePoints.
func DecodePoints(data []byte) ([]domain.HailPoint, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	points := make([]domain.HailPoint, 0, len(fc.Features))
	for i, f := range fc.Features {
		if missing := missingProps(f.Properties, RequiredPointProps); len(missing) > 0 {
			return nil, fmt.Errorf("point feature %d missing properties %v", i, missing)
		}
		props := f.Properties
		points = append(points, domain.HailPoint{
			Lat:             numOrZero(props, PropLat),
			Lon:             numOrZero(props, PropLon),
			Comments:        str(props, PropComments),
			Time:            str(props, PropTime),
			Size:            str(props, PropSize),
			Location:        str(props, PropLocation),
			County:          str(props, PropCounty),
			State:           str(props, PropReportState),
			SizeInches:      numOrZero(props, PropSizeInches),
			PlaceName:       str(props, PropPlaceName),
			SourceOffice:    str(props, PropSourceOffice),
			ContainingGEOID: str(props, PropContainingGEOID),
		})
	}
	return points, nil
}

// encodeGeometry returns nil for empty geometry, written as "geometry": null.
func encodeGeometry(m domain.MultiPolygon) *geojson.Geometry {
	if m.Empty() {
		return nil
	}
	polys := make([][][][]float64, 0, len(m))
	for _, poly := range m {
		rings := make([][][]float64, 0, len(poly))
		for _, ring := range poly {
			coords := make([][]float64, 0, len(ring))
			for _, p := range ring {
				coords = append(coords, []float64{p.X(), p.Y()})
			}
			rings = append(rings, coords)
		}
		polys = append(polys, rings)
	}
	if len(polys) == 1 {
		return geojson.NewPolygonGeometry(polys[0])
	}
	return geojson.NewMultiPolygonGeometry(polys...)
}

func decodeGeometry(g *geojson.Geometry) domain.MultiPolygon {
	if g == nil {
		return nil
	}
	switch {
	case g.IsPolygon():
		return domain.MultiPolygon{decodePolygon(g.Polygon)}
	case g.IsMultiPolygon():
		out := make(domain.MultiPolygon, 0, len(g.MultiPolygon))
		for _, p := range g.MultiPolygon {
			out = append(out, decodePolygon(p))
		}
		return out
	default:
		return nil
	}
}

func decodePolygon(rings [][][]float64) domain.Polygon {
	poly := make(domain.Polygon, 0, len(rings))
	for _, coords := range rings {
		ring := make(domain.Ring, 0, len(coords))
		for _, c := range coords {
			if len(c) >= 2 {
				ring = append(ring, geo.Point{c[0], c[1]})
			}
		}
		poly = append(poly, ring)
	}
	return poly
}

// nullable turns a nil pointer into a JSON null.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func missingProps(props map[string]interface{}, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := props[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func str(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

func boolean(props map[string]interface{}, key string) bool {
	b, _ := props[key].(bool)
	return b
}

// num reads a numeric property, nil when absent or null.
func num(props map[string]interface{}, key string) *float64 {
	v, ok := props[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

func numOrZero(props map[string]interface{}, key string) float64 {
	v, _ := props[key].(float64)
	return v
}
