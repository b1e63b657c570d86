package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hail-risk-etl/internal/config"
	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/observability"
	"github.com/couchcryptid/hail-risk-etl/internal/spatial"
)

// ReportFetcher returns the hail reports for a day.
type ReportFetcher interface {
	Fetch(ctx context.Context, date time.Time) ([]domain.HailPoint, error)
}

// TractLoader builds one state's tract records.
type TractLoader interface {
	LoadTract(src config.StateSource) (domain.StateTracts, error)
}

// Options selects the states and regional rules of a run.
type Options struct {
	States        []config.StateSource
	ClipRules     []domain.ClipRule
	DensityPolicy domain.DensityPolicy
}

// Output is the result of one computed run.
type Output struct {
	ReportDate string
	Region     domain.Region
	Points     []domain.HailPoint // joined points, in report order
	Join       spatial.JoinResult
}

// Pipeline computes the scored region for the current day:
// fetch, load per state, assemble, join, aggregate.
type Pipeline struct {
	fetcher ReportFetcher
	loader  TractLoader
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline with the given stages and observability.
func New(f ReportFetcher, l TractLoader, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: f,
		loader:  l,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes one pass. Every failure is a *StageError.
func (p *Pipeline) Run(ctx context.Context) (Output, error) {
	now := p.clock.Now()
	out := Output{ReportDate: now.Format("2006-01-02")}

	points, err := p.fetcher.Fetch(ctx, now)
	if err != nil {
		return Output{}, stageError(StageFetch, "", err)
	}
	p.logger.Info("hail reports fetched", "date", out.ReportDate, "points", len(points))

	perState := make([]domain.StateTracts, 0, len(p.opts.States))
	for _, src := range p.opts.States {
		if err := ctx.Err(); err != nil {
			return Output{}, stageError(StageLoad, src.Code, err)
		}
		st, err := p.loader.LoadTract(src)
		if err != nil {
			return Output{}, stageError(StageLoad, src.Code, err)
		}
		perState = append(perState, st)
	}

	region, stats := domain.Assemble(perState, p.opts.ClipRules, p.opts.DensityPolicy)
	p.metrics.TractsDropped.WithLabelValues("clipped").Add(float64(stats.Clipped))
	p.metrics.TractsDropped.WithLabelValues("undefined_density").Add(float64(stats.UndefinedDensity))
	if len(region.Tracts) == 0 {
		p.logger.Warn("no tracts left after assembly")
	}
	p.logger.Info("region assembled",
		"tracts", len(region.Tracts),
		"clipped", stats.Clipped,
		"undefined_density", stats.UndefinedDensity,
		"density_policy", string(p.opts.DensityPolicy),
	)

	join, err := spatial.Join(points, domain.WGS84, region)
	if err != nil {
		return Output{}, stageError(StageJoin, "", err)
	}
	p.metrics.PointsJoined.WithLabelValues("assigned").Add(float64(join.Assigned))
	p.metrics.PointsJoined.WithLabelValues("seam").Add(float64(join.Seam))
	p.metrics.PointsJoined.WithLabelValues("outside").Add(float64(join.Outside))
	p.logger.Info("hail points joined", "assigned", join.Assigned, "seam", join.Seam, "outside", join.Outside)

	region.Tracts = domain.Aggregate(join.Points, region.Tracts)
	if err := checkScores(region.Tracts); err != nil {
		return Output{}, stageError(StageAggregate, "", err)
	}
	domain.SortByGEOID(region.Tracts)

	out.Region = region
	out.Points = join.Points
	out.Join = join
	return out, nil
}

// checkScores rejects any non-finite metric before it can be persisted.
func checkScores(tracts []domain.TractRecord) error {
	for _, t := range tracts {
		if math.IsNaN(t.HailRiskScore) || math.IsInf(t.HailRiskScore, 0) {
			return fmt.Errorf("tract %s has non-finite risk score", t.GEOID)
		}
		if d := t.CarOwnershipDensity; d != nil && (math.IsNaN(*d) || math.IsInf(*d, 0)) {
			return fmt.Errorf("tract %s has non-finite car ownership density", t.GEOID)
		}
	}
	return nil
}
