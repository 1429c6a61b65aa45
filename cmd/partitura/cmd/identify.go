package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/config"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/pdf"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <file|url>",
	Short: "Identify the instrument of a single-part PDF",
	Long: `Identify the instrument (and voice, if any) of a PDF that contains a
single part. Name and voice are each settled by majority vote across
the analysis runs.

Examples:
  partitura identify trumpet1.pdf
  partitura identify https://example.com/part.pdf --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

var identifyReplicates int

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().IntVarP(&identifyReplicates, "replicates", "r", 0,
		"number of analysis runs (default from config)")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := config.RequireAPIKey(cfg); err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(cfg, logger, identifyReplicates)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := logProgress(logger)
	var identity core.PartIdentity
	if isURL(args[0]) {
		identity, err = analyzer.IdentifyPartURL(ctx, args[0], progress)
		if err != nil {
			return err
		}
	} else {
		doc, err := newRetriever(cfg).FromPath(args[0])
		if err != nil {
			return err
		}
		identity, err = analyzer.IdentifyPart(ctx, doc, progress)
		if err != nil {
			return err
		}
		// The model only names the part; page bounds come from the
		// document itself.
		if pages, err := pdf.NewSplitter(logger.Logger).PageCount(doc); err == nil {
			identity.StartPage, identity.EndPage, identity.Pages = 1, pages, pages
		}
	}

	return renderIdentity(os.Stdout, outputFormat, identity)
}
