package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/companypages"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/websites"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Resolve, crawl and classify companies",
}

// -- companies websites --

var companiesWebsitesCmd = &cobra.Command{
	Use:   "websites",
	Short: "Find each listing company's website through web search",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")

		return withEnv(cmd, "websites", func(ctx context.Context, e *stageEnv) error {
			_, err := findWebsites(ctx, e, in, out)
			return err
		})
	},
}

func findWebsites(ctx context.Context, e *stageEnv, in, out string) (model.RunStats, error) {
	return runStage(ctx, e, stageWebsites, in, out, func(ctx context.Context) (model.RunStats, error) {
		return websites.NewResolver(e.Searcher(), e.Rules).Run(ctx, in, out)
	})
}

// -- companies pages --

var companiesPagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Collect LinkedIn company pages and sizes from company websites",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")

		return withEnv(cmd, "pages", func(ctx context.Context, e *stageEnv) error {
			_, err := crawlPages(ctx, e, in, out)
			return err
		})
	},
}

func crawlPages(ctx context.Context, e *stageEnv, in, out string) (model.RunStats, error) {
	return runStage(ctx, e, stagePages, in, out, func(ctx context.Context) (model.RunStats, error) {
		// LinkedIn often blocks direct fetches, so its pages may fall back
		// to the reader services.
		c := companypages.NewCrawler(e.LocalScraper(),
			companypages.WithProfileScraper(e.PageScraper()),
			companypages.WithRateLimit(cfg.Crawl.RPS),
			companypages.WithMaxConcurrent(cfg.Crawl.MaxConcurrent),
		)
		return c.Run(ctx, in, out)
	})
}

// -- companies enrich --

var companiesEnrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Classify each lead's company with an LLM",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		partial, _ := cmd.Flags().GetString("partial")
		limit, _ := cmd.Flags().GetInt("limit")
		if p, _ := cmd.Flags().GetString("provider"); p != "" {
			cfg.Enrich.Provider = p
		}

		return withEnv(cmd, "enrich", func(ctx context.Context, e *stageEnv) error {
			_, err := enrichCompanies(ctx, e, enrich.Paths{In: in, Out: out, Partial: partial}, limit)
			return err
		})
	},
}

func enrichCompanies(ctx context.Context, e *stageEnv, paths enrich.Paths, limit int) (model.RunStats, error) {
	return runStage(ctx, e, stageEnrich, paths.In, paths.Out, func(ctx context.Context) (model.RunStats, error) {
		enricher, err := e.Enricher(limit)
		if err != nil {
			return model.RunStats{}, err
		}
		return enricher.Run(ctx, paths)
	})
}

func init() {
	companiesWebsitesCmd.Flags().String("in", fileJobsClean, "listings CSV with a company column")
	companiesWebsitesCmd.Flags().String("out", fileJobsWebsites, "output CSV")

	companiesPagesCmd.Flags().String("in", fileJobsWebsites, "listings CSV with company and website columns")
	companiesPagesCmd.Flags().String("out", fileCompanyPages, "output JSON")

	companiesEnrichCmd.Flags().String("in", fileLeadsFilled, "leads JSON")
	companiesEnrichCmd.Flags().String("out", fileClassified, "output JSON")
	companiesEnrichCmd.Flags().String("partial", fileClassifiedPartial, "progress checkpoint JSON")
	companiesEnrichCmd.Flags().Int("limit", 0, "enrich at most this many leads (0 means all)")
	companiesEnrichCmd.Flags().String("provider", "", "anthropic or perplexity (default from config)")

	companiesCmd.AddCommand(companiesWebsitesCmd)
	companiesCmd.AddCommand(companiesPagesCmd)
	companiesCmd.AddCommand(companiesEnrichCmd)
	rootCmd.AddCommand(companiesCmd)
}
