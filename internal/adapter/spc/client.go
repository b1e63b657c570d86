// Package spc fetches the Storm Prediction Center filtered hail report and
// keeps one verbatim copy per day on disk.
package spc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/hail-risk-etl/internal/domain"
	"github.com/couchcryptid/hail-risk-etl/internal/observability"
)

// Client retrieves the day's hail reports, reading the on-disk copy when one
// exists for the date and downloading it otherwise.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheDir   string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a hail report client for the feed at baseURL, caching
// downloads under cacheDir.
func NewClient(baseURL, cacheDir string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cacheDir: cacheDir,
		logger:   logger,
		metrics:  metrics,
	}
}

// CacheKey is the daily cache key for date.
func CacheKey(date time.Time) string {
	return date.Format("2006-01-02")
}

// CachePath is the file holding the report for date.
func (c *Client) CachePath(date time.Time) string {
	return filepath.Join(c.cacheDir, CacheKey(date)+".csv")
}

// Fetch returns the hail points reported for date. At most one download
// happens per date; later calls parse the stored copy. Download failures are
// returned without retry.
func (c *Client) Fetch(ctx context.Context, date time.Time) ([]domain.HailPoint, error) {
	path := c.CachePath(date)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		c.metrics.ReportFetches.WithLabelValues("cache").Inc()
		c.logger.Info("using cached hail report", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		data, err = c.download(ctx)
		if err != nil {
			return nil, err
		}
		if err := writeFileAtomic(path, data); err != nil {
			return nil, fmt.Errorf("store hail report: %w", err)
		}
		c.metrics.ReportFetches.WithLabelValues("network").Inc()
		c.logger.Info("downloaded hail report", "path", path, "bytes", len(data))
	default:
		return nil, fmt.Errorf("read cached hail report: %w", err)
	}

	points, stats, err := domain.ParseHailReport(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse hail report %s: %w", path, err)
	}
	c.metrics.HailPointsParsed.Add(float64(len(points)))
	c.metrics.HailPointsDropped.WithLabelValues("missing_coords").Add(float64(stats.MissingCoords))
	c.metrics.HailPointsDropped.WithLabelValues("malformed").Add(float64(stats.MalformedRows))
	if stats.Dropped() > 0 {
		c.logger.Debug("dropped hail report rows",
			"missing_coords", stats.MissingCoords,
			"malformed", stats.MalformedRows,
		)
	}
	return points, nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hail report request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("hail feed error: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read hail report: %w", err)
	}
	return data, nil
}

// writeFileAtomic writes data next to path and renames it into place so a
// crashed run never leaves a truncated report behind.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
