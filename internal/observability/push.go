package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for pipeline runs.
const PushJob = "hail_risk_etl"

// Push sends the run's metrics to a Prometheus Pushgateway, replacing the
// previous push for the same job. A batch run exits before any scrape could
// reach it, so this is the only way its metrics are recorded.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if err := push.New(url, PushJob).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
