package spatial

import (
	"testing"

	geo "github.com/paulmach/go.geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
)

func square(x0, y0, size float64) domain.Ring {
	return domain.Ring{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}
}

func twoTractRegion() domain.Region {
	return domain.Region{CRS: domain.WGS84, Tracts: []domain.TractRecord{
		{GEOID: "20000000001", Geometry: domain.MultiPolygon{{square(-98, 38, 1)}}},
		{GEOID: "20000000002", Geometry: domain.MultiPolygon{{square(-97, 38, 1)}}},
	}}
}

func point(lon, lat float64) domain.HailPoint {
	return domain.HailPoint{Lat: lat, Lon: lon}
}

func TestLocatePolygon(t *testing.T) {
	donut := domain.Polygon{square(0, 0, 10), square(4, 4, 2)}

	tests := []struct {
		name     string
		p        geo.Point
		expected Location
	}{
		{"interior", geo.Point{1, 1}, Inside},
		{"in hole", geo.Point{5, 5}, Outside},
		{"on hole edge", geo.Point{4, 5}, Boundary},
		{"on outer edge", geo.Point{0, 5}, Boundary},
		{"on vertex", geo.Point{10, 10}, Boundary},
		{"outside", geo.Point{11, 5}, Outside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LocatePolygon(tt.p, donut))
		})
	}
}

func TestLocatePolygon_OpenRing(t *testing.T) {
	open := domain.Polygon{domain.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}}}
	assert.Equal(t, Inside, LocatePolygon(geo.Point{1, 1}, open))
	assert.Equal(t, Boundary, LocatePolygon(geo.Point{0, 1}, open), "implicit closing edge")
}

func TestLocateMultiPolygon(t *testing.T) {
	m := domain.MultiPolygon{{square(0, 0, 1)}, {square(5, 5, 1)}}
	assert.Equal(t, Inside, LocateMultiPolygon(geo.Point{5.5, 5.5}, m))
	assert.Equal(t, Boundary, LocateMultiPolygon(geo.Point{1, 0.5}, m))
	assert.Equal(t, Outside, LocateMultiPolygon(geo.Point{3, 3}, m))
	assert.Equal(t, "inside", Inside.String())
	assert.Equal(t, "outside", Outside.String())
}

func TestJoin_CentroidAssignedToTract(t *testing.T) {
	region := twoTractRegion()
	for _, tr := range region.Tracts {
		x, y, ok := tr.Geometry.Centroid()
		require.True(t, ok)

		res, err := Join([]domain.HailPoint{point(x, y)}, domain.WGS84, region)
		require.NoError(t, err)
		require.Len(t, res.Points, 1)
		assert.Equal(t, tr.GEOID, res.Points[0].ContainingGEOID)
		assert.Equal(t, 1, res.Counts[tr.GEOID])
	}
}

func TestJoin_FarPointExcluded(t *testing.T) {
	res, err := Join([]domain.HailPoint{point(-80, 25)}, domain.WGS84, twoTractRegion())
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.Empty(t, res.Counts)
	assert.Equal(t, 1, res.Outside)
}

func TestJoin_SharedEdgeCountedForNoTract(t *testing.T) {
	res, err := Join([]domain.HailPoint{point(-97, 38.5)}, domain.WGS84, twoTractRegion())
	require.NoError(t, err)

	require.Len(t, res.Points, 1, "seam point is inside the combined region")
	assert.Empty(t, res.Points[0].ContainingGEOID)
	assert.Empty(t, res.Counts)
	assert.Equal(t, 1, res.Seam)
}

func TestJoin_OuterEdgeDropped(t *testing.T) {
	res, err := Join([]domain.HailPoint{point(-98, 38.5)}, domain.WGS84, twoTractRegion())
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.Equal(t, 1, res.Outside)
}

func TestJoin_UnionBoundaryJunctions(t *testing.T) {
	diagonal := domain.Region{CRS: domain.WGS84, Tracts: []domain.TractRecord{
		{GEOID: "20000000001", Geometry: domain.MultiPolygon{{square(0, 0, 1)}}},
		{GEOID: "20000000002", Geometry: domain.MultiPolygon{{square(1, 1, 1)}}},
	}}
	fourCorners := domain.Region{CRS: domain.WGS84, Tracts: []domain.TractRecord{
		{GEOID: "20000000001", Geometry: domain.MultiPolygon{{square(-1, -1, 1)}}},
		{GEOID: "20000000002", Geometry: domain.MultiPolygon{{square(0, -1, 1)}}},
		{GEOID: "20000000003", Geometry: domain.MultiPolygon{{square(-1, 0, 1)}}},
		{GEOID: "20000000004", Geometry: domain.MultiPolygon{{square(0, 0, 1)}}},
	}}
	filledHole := domain.Region{CRS: domain.WGS84, Tracts: []domain.TractRecord{
		{GEOID: "20000000001", Geometry: domain.MultiPolygon{{square(0, 0, 10), square(4, 4, 2)}}},
		{GEOID: "20000000002", Geometry: domain.MultiPolygon{{square(4, 4, 2)}}},
	}}

	tests := []struct {
		name   string
		region domain.Region
		point  domain.HailPoint
		seam   bool
	}{
		{"tracts meet the outer edge", twoTractRegion(), point(-97, 38), false},
		{"tracts meet at the outer top edge", twoTractRegion(), point(-97, 39), false},
		{"diagonal corner", diagonal, point(1, 1), false},
		{"interior corner of four tracts", fourCorners, point(0, 0), true},
		{"shared edge inside a block of tracts", fourCorners, point(0, 0.5), true},
		{"edge of a hole filled by another tract", filledHole, point(5, 4), true},
		{"corner of a hole filled by another tract", filledHole, point(4, 4), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Join([]domain.HailPoint{tt.point}, domain.WGS84, tt.region)
			require.NoError(t, err)
			assert.Empty(t, res.Counts)
			assert.Equal(t, 0, res.Assigned)
			if tt.seam {
				assert.Equal(t, 1, res.Seam)
				require.Len(t, res.Points, 1)
				assert.Empty(t, res.Points[0].ContainingGEOID)
			} else {
				assert.Equal(t, 1, res.Outside)
				assert.Empty(t, res.Points)
			}
			assert.Equal(t, tt.seam, NewIndex(tt.region).InUnion(geo.Point{tt.point.Lon, tt.point.Lat}))
		})
	}
}

func TestIndex_InUnion(t *testing.T) {
	idx := NewIndex(twoTractRegion())
	assert.True(t, idx.InUnion(geo.Point{-97.5, 38.5}))
	assert.True(t, idx.InUnion(geo.Point{-97, 38.5}))
	assert.False(t, idx.InUnion(geo.Point{-98, 38.5}))
	assert.False(t, idx.InUnion(geo.Point{-80, 25}))
}

func TestJoin_PreservesOrderAndFields(t *testing.T) {
	pts := []domain.HailPoint{
		{Lon: -96.5, Lat: 38.5, Comments: "second tract"},
		{Lon: -50, Lat: 10, Comments: "far away"},
		{Lon: -97.5, Lat: 38.5, Comments: "first tract"},
	}
	res, err := Join(pts, domain.WGS84, twoTractRegion())
	require.NoError(t, err)
	require.Len(t, res.Points, 2)
	assert.Equal(t, "second tract", res.Points[0].Comments)
	assert.Equal(t, "20000000002", res.Points[0].ContainingGEOID)
	assert.Equal(t, "first tract", res.Points[1].Comments)
	assert.Equal(t, 2, res.Assigned)
	assert.Equal(t, -96.5, res.Points[0].Lon, "output keeps source coordinates")
}

func TestJoin_ReprojectsIntoRegionCRS(t *testing.T) {
	wgs := twoTractRegion()
	var merc domain.Region
	merc.CRS = domain.WebMercator
	for _, tr := range wgs.Tracts {
		g, err := ReprojectMultiPolygon(tr.Geometry, domain.WGS84, domain.WebMercator)
		require.NoError(t, err)
		tr.Geometry = g
		merc.Tracts = append(merc.Tracts, tr)
	}

	res, err := Join([]domain.HailPoint{point(-97.5, 38.5), point(-80, 25)}, domain.WGS84, merc)
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.Equal(t, "20000000001", res.Points[0].ContainingGEOID)
}

func TestJoin_UnsupportedCRS(t *testing.T) {
	region := twoTractRegion()
	region.CRS = "EPSG:32615"
	_, err := Join([]domain.HailPoint{point(-97.5, 38.5)}, domain.WGS84, region)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reproject points")
}

func TestNewTransform_MercatorRoundTrip(t *testing.T) {
	fwd, err := NewTransform(domain.WGS84, domain.WebMercator)
	require.NoError(t, err)
	inv, err := NewTransform(domain.WebMercator, domain.NAD83)
	require.NoError(t, err)

	p := geo.Point{-94.58, 39.1}
	m := fwd(p)
	assert.NotEqual(t, p, m)
	back := inv(m)
	assert.InDelta(t, p.X(), back.X(), 1e-9)
	assert.InDelta(t, p.Y(), back.Y(), 1e-9)

	same, err := NewTransform(domain.NAD83, domain.WGS84)
	require.NoError(t, err)
	assert.Equal(t, p, same(p))
}

func TestIndex_SkipsEmptyGeometry(t *testing.T) {
	region := twoTractRegion()
	region.Tracts = append(region.Tracts, domain.TractRecord{GEOID: "20000000003"})
	idx := NewIndex(region)
	geoid, _ := idx.Locate(geo.Point{-97.5, 38.5})
	assert.Equal(t, "20000000001", geoid)
}
