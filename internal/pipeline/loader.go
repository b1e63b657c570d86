package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/couchcryptid/hail-risk-etl/internal/config"
	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/observability"
	"github.com/couchcryptid/hail-risk-etl/internal/spatial"
)

// GeometryReader reads a tract geometry file and reports its CRS.
type GeometryReader interface {
	Read(path string) ([]domain.TractGeometry, domain.CRS, error)
}

// AttributeReader reads the ACS tables joined onto tract geometries.
// ReadIncome returns an error matching fs.ErrNotExist when the file is absent.
type AttributeReader interface {
	ReadVehicles(state, path string) ([]domain.VehicleRow, error)
	ReadIncome(path string) ([]domain.IncomeRow, error)
}

// Loader builds one state's tract records from its geometry and attribute
// files.
type Loader struct {
	geometry GeometryReader
	attrs    AttributeReader
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewLoader creates a Loader over the given readers.
func NewLoader(g GeometryReader, a AttributeReader, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{geometry: g, attrs: a, logger: logger, metrics: metrics}
}

// LoadTract reads the geometry, vehicle and income sources of a state and
// left-joins them on GEOID. Geometry is converted to WGS84. A vehicle table
// without every bucket column fails with *domain.MissingColumnError. The
// income table is optional.
func (l *Loader) LoadTract(src config.StateSource) (domain.StateTracts, error) {
	geoms, crs, err := l.geometry.Read(src.GeometryPath)
	if err != nil {
		return domain.StateTracts{}, fmt.Errorf("read geometry: %w", err)
	}
	if crs != domain.WGS84 {
		for i := range geoms {
			geoms[i].Geometry, err = spatial.ReprojectMultiPolygon(geoms[i].Geometry, crs, domain.WGS84)
			if err != nil {
				return domain.StateTracts{}, fmt.Errorf("reproject %s: %w", geoms[i].GEOID, err)
			}
		}
	}

	vehicles, err := l.attrs.ReadVehicles(src.Code, src.VehiclePath)
	if err != nil {
		return domain.StateTracts{}, err
	}

	var income []domain.IncomeRow
	if src.IncomePath != "" {
		income, err = l.attrs.ReadIncome(src.IncomePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Info("income table not found, income fields left empty", "state", src.Code, "path", src.IncomePath)
			income = nil
		case err != nil:
			return domain.StateTracts{}, err
		}
	}

	l.warnDuplicates(src.Code, "vehicle", vehicleIDs(vehicles))
	l.warnDuplicates(src.Code, "income", incomeIDs(income))

	tracts := domain.MergeTracts(src.Code, geoms, vehicles, income)
	var unmatched, shapeless int
	for _, t := range tracts {
		if !t.HasVehicleData {
			unmatched++
		}
		if t.Geometry.Empty() {
			shapeless++
		}
	}
	if unmatched > 0 {
		l.logger.Warn("tracts without vehicle data", "state", src.Code, "count", unmatched)
	}
	if shapeless > 0 {
		l.metrics.TractsWithoutGeometry.WithLabelValues(src.Code).Add(float64(shapeless))
		l.logger.Warn("tracts without geometry, kept but contain no hail points", "state", src.Code, "count", shapeless)
	}

	l.metrics.TractsLoaded.WithLabelValues(src.Code).Add(float64(len(tracts)))
	l.logger.Info("loaded tracts", "state", src.Code, "tracts", len(tracts), "crs", string(crs))
	return domain.StateTracts{State: src.Code, Tracts: tracts}, nil
}

func (l *Loader) warnDuplicates(state, table string, ids []string) {
	if dups := domain.DuplicateGEOIDs(ids); len(dups) > 0 {
		l.logger.Warn("duplicate GEOIDs, keeping first row", "state", state, "table", table, "count", len(dups), "example", dups[0])
	}
}

func vehicleIDs(rows []domain.VehicleRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.GEOID
	}
	return ids
}

func incomeIDs(rows []domain.IncomeRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.GEOID
	}
	return ids
}
