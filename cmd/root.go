package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg *config.Config

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "leadgen",
	Short: "Lead generation pipeline",
	Long: "Scrapes job listings, resolves company websites and LinkedIn pages, finds decision makers " +
		"on LinkedIn, classifies their companies with an LLM and pushes the leads to a CRM.\n\n" +
		"Each stage reads the previous stage's file from the working directory; " +
		"`leadgen run` chains them all.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

// setup loads config.yaml and LEADGEN_* env vars, applies flag overrides
// and installs the global logger.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if cmd.Flags().Changed("log-level") {
		c.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		c.Log.Format = logFormat
	}
	cfg = c

	if err := config.InitLogger(cfg.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
