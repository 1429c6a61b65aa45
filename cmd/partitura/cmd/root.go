package cmd

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/adapters/openai"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/config"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/service"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/source"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	noColor      bool
	quiet        bool
	outputFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "partitura",
	Short: "Split sheet-music score books into per-instrument PDFs",
	Long: `partitura-ai detects the instrument parts of a scanned score book and
extracts each part into its own PDF. Detection runs the same analysis
several times and keeps only the parts a majority of runs agree on,
which filters out hallucinated instruments and unstable page bounds.

Documents can be local PDF files or URLs the analysis service fetches
itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if noColor {
			os.Setenv("NO_COLOR", "1")
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .partitura.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table",
		"output format (table, json, yaml)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// loadConfig loads and validates the configuration, with CLI flags
// already bound into the shared viper instance.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if quiet {
		level = "error"
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

func newOpenAIClient(cfg *config.Config, logger *logging.Logger) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		},
		Logger: logger.Logger,
	})
}

func newRetriever(cfg *config.Config) *source.Retriever {
	return source.NewRetriever(source.WithMaxSize(cfg.Source.MaxFileSizeBytes()))
}

// buildAnalyzer assembles the consensus pipeline. A replicates value of
// 0 means the configured default.
func buildAnalyzer(cfg *config.Config, logger *logging.Logger, replicates int) (*service.Analyzer, error) {
	if replicates == 0 {
		replicates = cfg.Consensus.Replicates
	}
	client := newOpenAIClient(cfg, logger)
	return service.NewAnalyzer(client, client,
		service.WithReplicates(replicates),
		service.WithRetryPolicy(newRetryPolicy(cfg)),
		service.WithLogger(logger.Logger),
	)
}

func newRetryPolicy(cfg *config.Config) *service.RetryPolicy {
	return service.NewRetryPolicy(
		service.WithMaxAttempts(cfg.Consensus.MaxRetries),
		service.WithBaseDelay(time.Duration(cfg.Consensus.BackoffBaseMS)*time.Millisecond),
		service.WithMaxDelay(time.Duration(cfg.Consensus.BackoffMaxMS)*time.Millisecond),
	)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
