package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/profiles"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Find, clean and merge LinkedIn profiles of decision makers",
}

// -- profiles search --

var profilesSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search LinkedIn profiles for each company and role",
	Long: "Runs \"{role} at {company}\" searches restricted to linkedin.com/in. Results are checkpointed " +
		"after every query and queries already answered are skipped, so the command can be rerun to resume.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var paths profiles.SearchPaths
		paths.CompaniesCSV, _ = cmd.Flags().GetString("companies")
		paths.CompanyPages, _ = cmd.Flags().GetString("pages")
		paths.Results, _ = cmd.Flags().GetString("out")
		paths.NoResults, _ = cmd.Flags().GetString("no-results")
		if n, _ := cmd.Flags().GetInt("max-queries"); n > 0 {
			cfg.Search.MaxQueries = n
		}

		return withEnv(cmd, "search", func(ctx context.Context, e *stageEnv) error {
			_, err := searchProfiles(ctx, e, paths)
			return err
		})
	},
}

func searchProfiles(ctx context.Context, e *stageEnv, paths profiles.SearchPaths) (model.RunStats, error) {
	return runStage(ctx, e, stageProfilesSearch, paths.CompaniesCSV, paths.Results, func(ctx context.Context) (model.RunStats, error) {
		s := profiles.NewProfileSearch(e.Searcher(), e.Rules.Roles,
			profiles.WithMaxQueries(cfg.Search.MaxQueries),
			profiles.WithResultsPerQuery(cfg.Search.ResultsPerQry),
		)
		return s.Run(ctx, paths)
	})
}

// -- profiles clean --

var profilesCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop irrelevant hits and merge duplicate profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")

		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			_, err := cleanProfiles(ctx, e, in, out)
			return err
		})
	},
}

func cleanProfiles(ctx context.Context, e *stageEnv, in, out string) (model.RunStats, error) {
	return runStage(ctx, e, stageProfilesClean, in, out, func(context.Context) (model.RunStats, error) {
		return profiles.RunClean(in, out)
	})
}

// -- profiles merge --

var profilesMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Join profiles with company pages into leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		pages, _ := cmd.Flags().GetString("pages")
		var out profiles.LeadOutputs
		out.JSON, _ = cmd.Flags().GetString("out")
		out.CSV, _ = cmd.Flags().GetString("csv")
		out.XLSX, _ = cmd.Flags().GetString("xlsx")

		return withEnv(cmd, "", func(ctx context.Context, e *stageEnv) error {
			_, err := mergeProfiles(ctx, e, in, pages, out)
			return err
		})
	},
}

func mergeProfiles(ctx context.Context, e *stageEnv, in, pages string, out profiles.LeadOutputs) (model.RunStats, error) {
	return runStage(ctx, e, stageProfilesMerge, in, out.JSON, func(context.Context) (model.RunStats, error) {
		return profiles.RunMerge(in, pages, out)
	})
}

// -- profiles fill --

var profilesFillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill missing company websites and sizes on leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		pages, _ := cmd.Flags().GetString("pages")
		var out profiles.LeadOutputs
		out.JSON, _ = cmd.Flags().GetString("out")
		out.CSV, _ = cmd.Flags().GetString("csv")

		return withEnv(cmd, "fill", func(ctx context.Context, e *stageEnv) error {
			_, err := fillProfiles(ctx, e, in, pages, out)
			return err
		})
	},
}

func fillProfiles(ctx context.Context, e *stageEnv, in, pages string, out profiles.LeadOutputs) (model.RunStats, error) {
	return runStage(ctx, e, stageProfilesFill, in, out.JSON, func(ctx context.Context) (model.RunStats, error) {
		return profiles.NewFiller(e.Searcher()).Run(ctx, in, pages, out)
	})
}

func init() {
	profilesSearchCmd.Flags().String("companies", fileJobsWebsites, "listings CSV with a company column")
	profilesSearchCmd.Flags().String("pages", fileCompanyPages, "company pages JSON (optional)")
	profilesSearchCmd.Flags().String("out", fileProfileHits, "profile hits JSON, also read to resume")
	profilesSearchCmd.Flags().String("no-results", fileNoResults, "queries without hits, also read to resume")
	profilesSearchCmd.Flags().Int("max-queries", 0, "queries per session (default from config)")

	profilesCleanCmd.Flags().String("in", fileProfileHits, "profile hits JSON")
	profilesCleanCmd.Flags().String("out", fileProfiles, "output JSON")

	profilesMergeCmd.Flags().String("in", fileProfiles, "cleaned profiles JSON")
	profilesMergeCmd.Flags().String("pages", fileCompanyPages, "company pages JSON")
	profilesMergeCmd.Flags().String("out", fileLeads, "output JSON")
	profilesMergeCmd.Flags().String("csv", fileLeadsCSV, "output CSV (empty to skip)")
	profilesMergeCmd.Flags().String("xlsx", "", "output XLSX (optional)")

	profilesFillCmd.Flags().String("in", fileLeads, "leads JSON")
	profilesFillCmd.Flags().String("pages", fileCompanyPages, "company pages JSON (optional)")
	profilesFillCmd.Flags().String("out", fileLeadsFilled, "output JSON")
	profilesFillCmd.Flags().String("csv", fileLeadsFilledCSV, "output CSV (empty to skip)")

	profilesCmd.AddCommand(profilesSearchCmd)
	profilesCmd.AddCommand(profilesCleanCmd)
	profilesCmd.AddCommand(profilesMergeCmd)
	profilesCmd.AddCommand(profilesFillCmd)
	rootCmd.AddCommand(profilesCmd)
}
