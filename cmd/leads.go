package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Export leads",
}

var leadsPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push leads to Notion or Salesforce",
	Long:  "Creates one record per lead. Leads already in the destination (matched by LinkedIn profile URL) are updated instead.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		to, _ := cmd.Flags().GetString("to")

		switch to {
		case "notion":
			return withEnv(cmd, "push-notion", func(ctx context.Context, e *stageEnv) error {
				_, err := pushNotion(ctx, e, in)
				return err
			})
		case "salesforce":
			return withEnv(cmd, "push-salesforce", func(ctx context.Context, e *stageEnv) error {
				_, err := pushSalesforce(ctx, e, in)
				return err
			})
		default:
			return eris.Errorf("leads push: unknown destination %q (want notion or salesforce)", to)
		}
	},
}

func pushNotion(ctx context.Context, e *stageEnv, in string) (model.RunStats, error) {
	return runStage(ctx, e, stagePushNotion, in, "notion:"+cfg.Notion.LeadDB, func(ctx context.Context) (model.RunStats, error) {
		return export.PushNotion(ctx, e.Notion(), cfg.Notion.LeadDB, in)
	})
}

func pushSalesforce(ctx context.Context, e *stageEnv, in string) (model.RunStats, error) {
	return runStage(ctx, e, stagePushSalesforce, in, "salesforce:Lead", func(ctx context.Context) (model.RunStats, error) {
		client, err := e.Salesforce()
		if err != nil {
			return model.RunStats{}, err
		}
		return export.PushSalesforce(ctx, client, cfg.Salesforce.ProfileField, in)
	})
}

func init() {
	leadsPushCmd.Flags().String("in", fileClassified, "leads JSON")
	leadsPushCmd.Flags().String("to", "notion", "destination: notion or salesforce")

	leadsCmd.AddCommand(leadsPushCmd)
	rootCmd.AddCommand(leadsCmd)
}
