package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/observability"
)

// Store persists the scored region and joined points.
type Store interface {
	Exists() (bool, error)
	Load() (domain.Region, []domain.HailPoint, error)
	Save(region domain.Region, points []domain.HailPoint) error
}

// Sink receives the tracts of each computed run. Sinks are optional
// side outputs; the store remains the source of truth.
type Sink interface {
	Name() string
	Record(ctx context.Context, run domain.RunSummary, tracts []domain.TractRecord) error
}

// Runner computes a fresh run.
type Runner interface {
	Run(ctx context.Context) (Output, error)
}

// Result is what the dashboard consumes.
type Result struct {
	Region    domain.Region
	Points    []domain.HailPoint
	FromCache bool
	Run       domain.RunSummary
}

// Cache serves the persisted result of a run when one exists and computes
// and persists it otherwise. Callers own the Cache and serialize calls.
type Cache struct {
	store   Store
	runner  Runner
	sinks   []Sink
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCache creates a Cache over a store and the pipeline that fills it.
func NewCache(store Store, runner Runner, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, sinks ...Sink) *Cache {
	return &Cache{
		store:   store,
		runner:  runner,
		sinks:   sinks,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// LoadOrCompute returns the persisted result when both cache files exist,
// without fetching or computing anything. Otherwise it runs the pipeline and
// persists the result before returning it.
func (c *Cache) LoadOrCompute(ctx context.Context) (Result, error) {
	run := c.newRun()
	ok, err := c.store.Exists()
	if err != nil {
		return Result{}, stageError(StageCache, "", err)
	}
	if !ok {
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return c.compute(ctx, run)
	}

	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	region, points, err := c.store.Load()
	if err != nil {
		return Result{}, stageError(StageCache, "", err)
	}
	run.FromCache = true
	run.FinishedAt = c.clock.Now()
	summarize(&run, region.Tracts, points)
	c.logger.Info("loaded cached results", "run_id", run.ID, "tracts", run.Tracts, "points", run.Points)
	return Result{Region: region, Points: points, FromCache: true, Run: run}, nil
}

// Refresh recomputes and overwrites the persisted result regardless of what
// is cached.
func (c *Cache) Refresh(ctx context.Context) (Result, error) {
	c.metrics.CacheLookups.WithLabelValues("refresh").Inc()
	return c.compute(ctx, c.newRun())
}

func (c *Cache) newRun() domain.RunSummary {
	return domain.RunSummary{ID: uuid.NewString(), StartedAt: c.clock.Now()}
}

func (c *Cache) compute(ctx context.Context, run domain.RunSummary) (Result, error) {
	logger := c.logger.With("run_id", run.ID)
	logger.Info("computing hail risk")

	out, err := c.runner.Run(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := c.store.Save(out.Region, out.Points); err != nil {
		return Result{}, stageError(StagePersist, "", err)
	}

	run.ReportDate = out.ReportDate
	run.FinishedAt = c.clock.Now()
	summarize(&run, out.Region.Tracts, out.Points)
	run.Outside = out.Join.Outside

	c.metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	c.metrics.LastSuccess.Set(float64(run.FinishedAt.Unix()))
	logger.Info("results persisted", "tracts", run.Tracts, "points", run.Points, "risky_tracts", run.RiskyCount)

	for _, s := range c.sinks {
		if err := s.Record(ctx, run, out.Region.Tracts); err != nil {
			logger.Error("sink failed", "sink", s.Name(), "error", err)
		}
	}
	return Result{Region: out.Region, Points: out.Points, Run: run}, nil
}

func summarize(run *domain.RunSummary, tracts []domain.TractRecord, points []domain.HailPoint) {
	run.Tracts = len(tracts)
	run.Points = len(points)
	run.Assigned, run.Seam = 0, 0
	for _, p := range points {
		if p.ContainingGEOID != "" {
			run.Assigned++
		} else {
			run.Seam++
		}
	}
	run.RiskyCount = len(domain.RiskyTracts(tracts))
}
