// Command hailrisk computes the hail risk score of every census tract in the
// configured states for the current day, reusing the persisted result when
// one exists.
//
// Usage:
//
//	go run ./cmd/hailrisk [-refresh] [-split-states] [-top 20] [-state MO]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hail-risk-etl/internal/adapter/acs"
	"github.com/couchcryptid/hail-risk-etl/internal/adapter/geojson"
	kafkaadapter "github.com/couchcryptid/hail-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/hail-risk-etl/internal/adapter/spc"
	"github.com/couchcryptid/hail-risk-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/hail-risk-etl/internal/adapter/tiger"
	"github.com/couchcryptid/hail-risk-etl/internal/config"
	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/observability"
	"github.com/couchcryptid/hail-risk-etl/internal/pipeline"
)

type flags struct {
	refresh     bool
	splitStates bool
	top         int
	state       string
}

func main() {
	var f flags
	flag.BoolVar(&f.refresh, "refresh", false, "recompute even when cached results exist")
	flag.BoolVar(&f.splitStates, "split-states", false, "also write one gdf_<ST>_with_hail_risk.geojson per state")
	flag.IntVar(&f.top, "top", 10, "number of highest-risk tracts to print (0 for none)")
	flag.StringVar(&f.state, "state", "", "only print tracts of this state, e.g. MO")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, f, logger, os.Stdout); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, f flags, logger *slog.Logger, stdout io.Writer) error {
	statefp := ""
	if f.state != "" {
		fips, ok := config.StateFIPS[strings.ToUpper(f.state)]
		if !ok {
			return fmt.Errorf("unknown state %q", f.state)
		}
		statefp = fips
	}

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	fetcher := spc.NewClient(cfg.HailFeedURL, cfg.HailReportDir, cfg.HailFetchTimeout, logger, metrics)
	loader := pipeline.NewLoader(tiger.NewReader(), acs.NewReader(), logger, metrics)
	p := pipeline.New(fetcher, loader, pipeline.Options{
		States:        cfg.States,
		ClipRules:     cfg.ClipRules,
		DensityPolicy: cfg.DensityPolicy,
	}, clock, logger, metrics)
	store := geojson.NewStore(cfg.TractsCachePath, cfg.PointsCachePath)

	var sinks []pipeline.Sink
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaadapter.NewPublisher(cfg, logger, metrics)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		sinks = append(sinks, pub)
	}
	if cfg.SQLitePath != "" {
		ledger, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer ledger.Close()
		sinks = append(sinks, ledger)
	}

	cache := pipeline.NewCache(store, p, clock, logger, metrics, sinks...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var res pipeline.Result
	var err error
	if f.refresh {
		res, err = cache.Refresh(ctx)
	} else {
		res, err = cache.LoadOrCompute(ctx)
	}
	defer pushMetrics(cfg, metrics, logger)
	if err != nil {
		return err
	}

	if f.splitStates {
		paths, err := geojson.SaveStateFiles(cfg.OutputDir, res.Region.Tracts)
		if err != nil {
			return fmt.Errorf("write state files: %w", err)
		}
		logger.Info("wrote state files", "files", len(paths))
	}

	tracts := res.Region.Tracts
	if statefp != "" {
		tracts = domain.FilterByState(tracts, statefp)
	}
	return printSummary(stdout, res, tracts, f.top)
}

// pushMetrics sends the run's metrics to the Pushgateway, bounded by the
// shutdown timeout. Failures are logged only.
func pushMetrics(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metrics.Push(ctx, cfg.PushgatewayURL); err != nil {
		logger.Error("metrics push failed", "error", err)
	}
}

func printSummary(w io.Writer, res pipeline.Result, tracts []domain.TractRecord, top int) error {
	source := "computed"
	if res.FromCache {
		source = "cache"
	}
	fmt.Fprintf(w, "Run %s (%s): %d tracts, %d hail points, %d tracts at risk\n",
		res.Run.ID, source, res.Run.Tracts, res.Run.Points, res.Run.RiskyCount)
	if top <= 0 {
		return nil
	}

	risky := domain.RiskyTracts(tracts)
	if len(risky) > top {
		risky = risky[:top]
	}
	if len(risky) == 0 {
		fmt.Fprintln(w, "No tracts with hail reports.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GEOID\tSTATE\tREPORTS\tDENSITY\tSCORE")
	for _, t := range risky {
		density := 0.0
		if t.CarOwnershipDensity != nil {
			density = *t.CarOwnershipDensity
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", t.GEOID, t.State, t.HailReports, density, t.HailRiskScore)
	}
	return tw.Flush()
}
