package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "state", "MO")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "MO", entry["state"])
	assert.Equal(t, "hail-risk-etl", entry["app"])
}

func TestNewLogger_TextFormats(t *testing.T) {
	for _, format := range []string{"text", "tint"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			newLogger(&buf, "debug", format).Debug("tracts loaded", "count", 3)
			assert.Contains(t, buf.String(), "tracts loaded")
		})
	}
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.HailPointsParsed.Add(3)
	a.PointsJoined.WithLabelValues("seam").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(a.HailPointsParsed), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.HailPointsParsed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.PointsJoined.WithLabelValues("seam")), 0)

	n, err := testutil.GatherAndCount(a.Registry(), "hail_risk_hail_points_parsed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetricsForTesting()
	m.TractsLoaded.WithLabelValues("MO").Add(2)

	require.NoError(t, m.Push(context.Background(), srv.URL))
	assert.Equal(t, "/metrics/job/"+PushJob, gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetricsForTesting().Push(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
