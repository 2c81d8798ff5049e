package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/naukri"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Scrape and clean job listings",
}

// -- jobs scrape --

var jobsScrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape Naukri job listings with a headless browser",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		if n, _ := cmd.Flags().GetInt("max-pages"); n > 0 {
			cfg.Naukri.MaxPages = n
		}
		if q, _ := cmd.Flags().GetString("query"); q != "" {
			cfg.Naukri.Query = q
		}
		if loc, _ := cmd.Flags().GetString("location"); loc != "" {
			cfg.Naukri.Location = loc
		}

		return withEnv(cmd, "jobs", func(ctx context.Context, e *stageEnv) error {
			_, err := scrapeJobs(ctx, e, out)
			return err
		})
	},
}

func scrapeJobs(ctx context.Context, e *stageEnv, out string) (model.RunStats, error) {
	in := naukri.PageURL(cfg.Naukri.Query, cfg.Naukri.Location, 1)
	return runStage(ctx, e, stageJobsScrape, in, out, func(ctx context.Context) (model.RunStats, error) {
		browser, err := naukri.NewRodBrowser(ctx, naukri.RodOptions{
			Headless:   cfg.Naukri.Headless,
			Bin:        cfg.Naukri.BrowserBin,
			ScrollWait: time.Duration(cfg.Naukri.ScrollWaitMs) * time.Millisecond,
		})
		if err != nil {
			return model.RunStats{}, err
		}
		defer browser.Close() //nolint:errcheck

		s := naukri.NewScraper(browser, e.Cleaner(),
			naukri.WithSearch(cfg.Naukri.Query, cfg.Naukri.Location),
			naukri.WithMaxPages(cfg.Naukri.MaxPages),
		)
		return s.Run(ctx, out)
	})
}

// -- jobs clean --

var jobsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize company names and locations in scraped listings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")

		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			_, err := cleanJobs(ctx, e, in, out)
			return err
		})
	},
}

func cleanJobs(ctx context.Context, e *stageEnv, in, out string) (model.RunStats, error) {
	return runStage(ctx, e, stageJobsClean, in, out, func(context.Context) (model.RunStats, error) {
		return naukri.RunClean(in, out, e.Cleaner())
	})
}

func init() {
	jobsScrapeCmd.Flags().String("out", fileJobs, "output CSV")
	jobsScrapeCmd.Flags().Int("max-pages", 0, "result pages to visit (default from config)")
	jobsScrapeCmd.Flags().String("query", "", "search query (default from config)")
	jobsScrapeCmd.Flags().String("location", "", "search location (default from config)")

	jobsCleanCmd.Flags().String("in", fileJobs, "input CSV")
	jobsCleanCmd.Flags().String("out", fileJobsClean, "output CSV")

	jobsCmd.AddCommand(jobsScrapeCmd)
	jobsCmd.AddCommand(jobsCleanCmd)
	rootCmd.AddCommand(jobsCmd)
}
