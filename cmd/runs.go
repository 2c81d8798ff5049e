package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/monitoring"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stage run history",
	Long:  "Commands for listing, viewing, and summarizing recorded stage runs. Requires store.driver sqlite or postgres.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stage runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			runs, err := e.Store.ListRuns(ctx, store.RunFilter{
				Stage:  stage,
				Status: model.RunStatus(status),
				Limit:  limit,
			})
			if err != nil {
				return eris.Wrap(err, "runs list")
			}

			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found.")
				return nil
			}

			formatRunsList(os.Stdout, runs)
			return nil
		})
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			run, err := e.Store.GetRun(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "runs show")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		})
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics per stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			runs, err := e.Store.ListRuns(ctx, store.RunFilter{Limit: 10000})
			if err != nil {
				return eris.Wrap(err, "runs stats")
			}
			formatRunStats(os.Stdout, computeRunStats(runs))
			return nil
		})
	},
}

// -- runs check --

var runsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate recent runs against alert thresholds",
	Long:  "Prints a health snapshot of recent stage runs and posts an alert to monitoring.webhook_url for each threshold breached.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if h, _ := cmd.Flags().GetInt("lookback"); h > 0 {
			cfg.Monitoring.LookbackWindowHours = h
		}

		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			snap, alerts, err := newChecker(e.Store).Check(ctx)
			if err != nil {
				return eris.Wrap(err, "runs check")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return err
			}
			for _, a := range alerts {
				fmt.Fprintf(os.Stderr, "ALERT [%s] %s\n", a.Severity, a.Message)
			}
			return nil
		})
	},
}

func newChecker(st store.Store) *monitoring.Checker {
	return monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
}

// -- runs prune --

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			n, err := e.Store.DeleteExpired(ctx)
			if err != nil {
				return eris.Wrap(err, "runs prune")
			}
			fmt.Fprintf(os.Stdout, "Deleted %d expired cache entries.\n", n)
			return nil
		})
	},
}

func init() {
	runsListCmd.Flags().String("stage", "", "filter by stage name")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCheckCmd.Flags().Int("lookback", 0, "hours of history to evaluate (default from config)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCheckCmd)
	runsCmd.AddCommand(runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// stageStats aggregates the runs of one stage.
type stageStats struct {
	Stage      string
	Runs       int
	Complete   int
	Failed     int
	Items      int
	ItemsOK    int
	CostUSD    float64
	AvgDurSecs float64
}

// computeRunStats groups runs by stage, in order of first appearance.
func computeRunStats(runs []model.StageRun) []stageStats {
	var (
		out   []stageStats
		index = make(map[string]int)
		durs  = make(map[string]time.Duration)
		nDur  = make(map[string]int)
	)

	for _, r := range runs {
		i, ok := index[r.Stage]
		if !ok {
			i = len(out)
			index[r.Stage] = i
			out = append(out, stageStats{Stage: r.Stage})
		}
		s := &out[i]
		s.Runs++
		s.Items += r.Stats.Total
		s.ItemsOK += r.Stats.Succeeded
		s.CostUSD += r.Stats.CostUSD

		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusFailed:
			s.Failed++
		}
		if r.FinishedAt != nil {
			durs[r.Stage] += r.FinishedAt.Sub(r.StartedAt)
			nDur[r.Stage]++
		}
	}

	for i := range out {
		if n := nDur[out[i].Stage]; n > 0 {
			out[i].AvgDurSecs = durs[out[i].Stage].Seconds() / float64(n)
		}
	}
	return out
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.StageRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTAGE\tSTATUS\tTOTAL\tOK\tFAILED\tCOST\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-----\t--\t------\t----\t-------\t--------")

	for _, r := range runs {
		dur := ""
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t$%.4f\t%s\t%s\n",
			truncateID(r.ID),
			r.Stage,
			r.Status,
			r.Stats.Total,
			r.Stats.Succeeded,
			r.Stats.Failed,
			r.Stats.CostUSD,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes per-stage aggregates to w.
func formatRunStats(out io.Writer, stats []stageStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tRUNS\tCOMPLETE\tFAILED\tITEMS\tOK\tCOST\tAVG")
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t$%.4f\t%.1fs\n",
			s.Stage, s.Runs, s.Complete, s.Failed, s.Items, s.ItemsOK, s.CostUSD, s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
