package cmd

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/api"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/config"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/events"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/pdf"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The server exposes analysis and identification endpoints plus an SSE
stream of per-job progress events.

Examples:
  # Start with defaults (:8080)
  partitura serve

  # Bind a specific address
  partitura serve --addr 127.0.0.1:3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := config.RequireAPIKey(cfg); err != nil {
		return err
	}

	// One client and one upload cache for the whole process: a document
	// analyzed twice, even at different replicate counts, uploads once.
	client := newOpenAIClient(cfg, logger)
	cache := service.NewUploadCache(client, logger.Logger)
	retry := newRetryPolicy(cfg)

	factory := func(replicates int) (api.AnalysisService, error) {
		if replicates == 0 {
			replicates = cfg.Consensus.Replicates
		}
		return service.NewAnalyzer(client, client,
			service.WithReplicates(replicates),
			service.WithRetryPolicy(retry),
			service.WithLogger(logger.Logger),
			service.WithUploadCache(cache),
		)
	}

	eventBus := events.New(100)
	defer eventBus.Close()

	server := api.NewServer(factory, eventBus,
		api.WithLogger(logger.Logger),
		api.WithRetriever(newRetriever(cfg)),
		api.WithSplitter(pdf.NewSplitter(logger.Logger)),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = server.ListenAndServe(ctx, cfg.Serve.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("server stopped")
		return nil
	}
	return err
}
