package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/config"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/logging"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Detect the instrument parts of a score book",
	Long: `Detect the instrument parts of a score book without extracting them.

The document is analyzed several times and only parts a majority of the
runs agree on are reported, with page bounds settled by vote.

Examples:
  # Analyze a local file
  partitura analyze score.pdf

  # Analyze a document the service fetches itself
  partitura analyze https://example.com/score.pdf

  # Stronger consensus, machine-readable output
  partitura analyze score.pdf --replicates 5 --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeReplicates int

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVarP(&analyzeReplicates, "replicates", "r", 0,
		"number of analysis runs (default from config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := config.RequireAPIKey(cfg); err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(cfg, logger, analyzeReplicates)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := logProgress(logger)
	var analysis core.ScoreAnalysis
	if isURL(args[0]) {
		analysis, err = analyzer.AnalyzeScoreURL(ctx, args[0], progress)
	} else {
		var doc []byte
		doc, err = newRetriever(cfg).FromPath(args[0])
		if err != nil {
			return err
		}
		analysis, err = analyzer.AnalyzeScore(ctx, doc, progress)
	}
	if err != nil {
		return err
	}

	return renderParts(os.Stdout, outputFormat, analysis.Parts)
}

func logProgress(logger *logging.Logger) core.ProgressFunc {
	return func(done, total int) {
		logger.Info("analysis run finished", "done", done, "total", total)
	}
}
