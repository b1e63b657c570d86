package domain

import "time"

// RunSummary describes one pipeline run for sinks and the run ledger.
type RunSummary struct {
	ID         string
	ReportDate string // YYYY-MM-DD cache key of the hail report
	StartedAt  time.Time
	FinishedAt time.Time
	FromCache  bool

	Tracts     int
	Points     int
	Assigned   int
	Seam       int
	Outside    int
	RiskyCount int
}
