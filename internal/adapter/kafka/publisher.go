package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hail-risk-etl/internal/config"
	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/observability"
)

// ScoreMessage is the JSON value published for each scored tract.
type ScoreMessage struct {
	GEOID               string   `json:"geoid"`
	State               string   `json:"state"`
	StateFP             string   `json:"statefp"`
	ReportDate          string   `json:"report_date"`
	HailReports         int      `json:"hail_reports"`
	HailRiskScore       float64  `json:"hail_risk_score"`
	CarOwnershipDensity *float64 `json:"car_ownership_density"`
	PopulationDensity   *float64 `json:"population_density"`
	MedianIncome        *float64 `json:"median_income"`
	PerCapitaIncome     *float64 `json:"per_capita_income"`
	CentroidLon         float64  `json:"centroid_lon"`
	CentroidLat         float64  `json:"centroid_lat"`
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces scored tracts to a Kafka topic, keyed by GEOID.
type Publisher struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// Record publishes every tract of a run in a single WriteMessages call.
func (p *Publisher) Record(ctx context.Context, run domain.RunSummary, tracts []domain.TractRecord) error {
	if len(tracts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(tracts))
	for i := range tracts {
		msg, err := serializeToMessage(run, tracts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish scores: %w", err)
	}
	p.metrics.TractsPublished.Add(float64(len(msgs)))
	p.logger.Info("published tract scores", "count", len(msgs), "run_id", run.ID)
	return nil
}

// Name identifies the sink in logs.
func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a scored tract into a Kafka message.
func serializeToMessage(run domain.RunSummary, t domain.TractRecord) (kafkago.Message, error) {
	data, err := json.Marshal(ScoreMessage{
		GEOID:               t.GEOID,
		State:               t.State,
		StateFP:             t.StateFP,
		ReportDate:          run.ReportDate,
		HailReports:         t.HailReports,
		HailRiskScore:       t.HailRiskScore,
		CarOwnershipDensity: t.CarOwnershipDensity,
		PopulationDensity:   t.PopulationDensity,
		MedianIncome:        t.MedianIncome,
		PerCapitaIncome:     t.PerCapitaIncome,
		CentroidLon:         t.CentroidLon,
		CentroidLat:         t.CentroidLat,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize tract score: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(t.GEOID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "processed_at", Value: []byte(run.FinishedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
