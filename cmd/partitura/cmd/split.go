package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/config"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/pdf"
)

var splitCmd = &cobra.Command{
	Use:   "split <file|url>",
	Short: "Extract each instrument part into its own PDF",
	Long: `Detect the instrument parts of a score book and write one PDF per
part. Output files are named after the detected instrument and voice,
for example "01 - Trumpet 1.pdf".

Page orientation is normalized before analysis unless disabled, so a
book with a few rotated scans comes out uniform.

Examples:
  # Split into the current directory
  partitura split score.pdf

  # Split into a target directory with stronger consensus
  partitura split score.pdf --out parts/ --replicates 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

var splitReplicates int

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().IntVarP(&splitReplicates, "replicates", "r", 0,
		"number of analysis runs (default from config)")
	splitCmd.Flags().String("out", ".", "output directory for extracted parts")
	splitCmd.Flags().Bool("normalize-orientation", true,
		"rotate pages so the document shares one orientation")

	_ = viper.BindPFlag("split.output_dir", splitCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("split.normalize_orientation", splitCmd.Flags().Lookup("normalize-orientation"))
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := config.RequireAPIKey(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever := newRetriever(cfg)
	var doc []byte
	if isURL(args[0]) {
		doc, err = retriever.FromURL(ctx, args[0])
	} else {
		doc, err = retriever.FromPath(args[0])
	}
	if err != nil {
		return err
	}

	splitter := pdf.NewSplitter(logger.Logger)
	if cfg.Split.NormalizeOrientation {
		normalized, changed, err := splitter.NormalizeOrientation(doc)
		if err != nil {
			return err
		}
		if changed {
			logger.Info("page orientation normalized")
			doc = normalized
		}
	}

	analyzer, err := buildAnalyzer(cfg, logger, splitReplicates)
	if err != nil {
		return err
	}

	analysis, err := analyzer.AnalyzeScore(ctx, doc, logProgress(logger))
	if err != nil {
		return err
	}
	if len(analysis.Parts) == 0 {
		return fmt.Errorf("no instrument parts detected in %s", args[0])
	}

	files, err := splitter.Split(doc, analysis.Parts)
	if err != nil {
		return err
	}

	paths, err := splitter.WriteFiles(files, cfg.Split.OutputDir)
	if err != nil {
		return err
	}

	logger.Info("score split", "parts", len(paths), "dir", cfg.Split.OutputDir)
	for _, path := range paths {
		fmt.Println(path)
	}
	return nil
}
