package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/profiles"
)

// pipelineStage is one step of the full pipeline, run with the default file
// names.
type pipelineStage struct {
	Name string
	Run  func(ctx context.Context, e *stageEnv) (model.RunStats, error)
}

// pipelineStages lists every stage in execution order.
var pipelineStages = []pipelineStage{
	{stageJobsScrape, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return scrapeJobs(ctx, e, fileJobs)
	}},
	{stageJobsClean, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return cleanJobs(ctx, e, fileJobs, fileJobsClean)
	}},
	{stageWebsites, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return findWebsites(ctx, e, fileJobsClean, fileJobsWebsites)
	}},
	{stagePages, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return crawlPages(ctx, e, fileJobsWebsites, fileCompanyPages)
	}},
	{stageProfilesSearch, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return searchProfiles(ctx, e, profiles.SearchPaths{
			CompaniesCSV: fileJobsWebsites,
			CompanyPages: fileCompanyPages,
			Results:      fileProfileHits,
			NoResults:    fileNoResults,
		})
	}},
	{stageProfilesClean, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return cleanProfiles(ctx, e, fileProfileHits, fileProfiles)
	}},
	{stageProfilesMerge, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return mergeProfiles(ctx, e, fileProfiles, fileCompanyPages, profiles.LeadOutputs{JSON: fileLeads, CSV: fileLeadsCSV})
	}},
	{stageProfilesFill, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return fillProfiles(ctx, e, fileLeads, fileCompanyPages, profiles.LeadOutputs{JSON: fileLeadsFilled, CSV: fileLeadsFilledCSV})
	}},
	{stageEnrich, func(ctx context.Context, e *stageEnv) (model.RunStats, error) {
		return enrichCompanies(ctx, e, enrich.Paths{In: fileLeadsFilled, Out: fileClassified, Partial: fileClassifiedPartial}, 0)
	}},
}

// selectStages returns the stages from "from" through "to" inclusive. Empty
// bounds mean the first and last stage.
func selectStages(stages []pipelineStage, from, to string) ([]pipelineStage, error) {
	index := func(name string, def int) (int, error) {
		if name == "" {
			return def, nil
		}
		for i, s := range stages {
			if s.Name == name {
				return i, nil
			}
		}
		return 0, eris.Errorf("run: unknown stage %q (want one of %s)", name, strings.Join(stageNames(stages), ", "))
	}

	start, err := index(from, 0)
	if err != nil {
		return nil, err
	}
	end, err := index(to, len(stages)-1)
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, eris.Errorf("run: stage %q comes after %q", from, to)
	}
	return stages[start : end+1], nil
}

func stageNames(stages []pipelineStage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

// runPipeline runs stages in order and stops at the first error.
func runPipeline(ctx context.Context, e *stageEnv, stages []pipelineStage) (model.RunStats, error) {
	var total model.RunStats
	for _, s := range stages {
		zap.L().Info("starting stage", zap.String("stage", s.Name))
		stats, err := s.Run(ctx, e)
		total.CostUSD += stats.CostUSD
		if err != nil {
			return total, eris.Wrapf(err, "run: stage %s", s.Name)
		}
	}
	total.Total = len(stages)
	total.Succeeded = len(stages)
	return total, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline with the default file names",
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		stages, err := selectStages(pipelineStages, from, to)
		if err != nil {
			return err
		}

		return withEnv(cmd, "run", func(ctx context.Context, e *stageEnv) error {
			total, err := runPipeline(ctx, e, stages)
			if err != nil {
				return err
			}
			zap.L().Info("pipeline complete",
				zap.Strings("stages", stageNames(stages)),
				zap.Float64("cost_usd", total.CostUSD),
			)
			return nil
		})
	},
}

func init() {
	names := strings.Join(stageNames(pipelineStages), ", ")
	runCmd.Flags().String("from", "", "first stage to run: "+names)
	runCmd.Flags().String("to", "", "last stage to run")
	rootCmd.AddCommand(runCmd)
}
