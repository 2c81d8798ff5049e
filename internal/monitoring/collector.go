// Package monitoring watches the stage run log and raises webhook alerts
// when runs fail too often or spend too much.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of stage run health.
type MetricsSnapshot struct {
	// Runs started within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Items handled by those runs.
	ItemsTotal   int     `json:"items_total"`
	ItemsFailed  int     `json:"items_failed"`
	ItemFailRate float64 `json:"item_fail_rate"`

	CostUSD float64 `json:"cost_usd"`
	// FailedStages lists each stage with a failed run, newest first.
	FailedStages []string `json:"failed_stages,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister lists stage runs. store.Store satisfies it.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.StageRun, error)
}

// Collector gathers metrics from the run log.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: func() time.Time { return time.Now().UTC() }}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	seen := make(map[string]bool)
	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		snap.ItemsTotal += r.Stats.Total
		snap.ItemsFailed += r.Stats.Failed
		snap.CostUSD += r.Stats.CostUSD

		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
			if !seen[r.Stage] {
				seen[r.Stage] = true
				snap.FailedStages = append(snap.FailedStages, r.Stage)
			}
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.ItemsTotal > 0 {
		snap.ItemFailRate = float64(snap.ItemsFailed) / float64(snap.ItemsTotal)
	}
	return snap, nil
}
