package config

import (
	"fmt"
	"net/url"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

// Validate checks the configuration for values the pipeline cannot run
// with. The API key is checked separately by callers that actually talk
// to the service, so offline commands keep working without one.
func Validate(cfg *Config) error {
	if cfg.Consensus.Replicates < 1 {
		return core.ErrValidation(core.CodeInvalidReplicates,
			fmt.Sprintf("consensus.replicates must be at least 1, got %d", cfg.Consensus.Replicates))
	}
	if cfg.Consensus.MaxRetries < 1 {
		return core.ErrValidation(core.CodeInvalidRetryBudget,
			fmt.Sprintf("consensus.max_retries must be at least 1, got %d", cfg.Consensus.MaxRetries))
	}
	if cfg.Consensus.BackoffBaseMS < 0 || cfg.Consensus.BackoffMaxMS < 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "consensus backoff delays must not be negative")
	}
	if cfg.Consensus.BackoffMaxMS > 0 && cfg.Consensus.BackoffMaxMS < cfg.Consensus.BackoffBaseMS {
		return core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("consensus.backoff_max_ms (%d) is below consensus.backoff_base_ms (%d)",
				cfg.Consensus.BackoffMaxMS, cfg.Consensus.BackoffBaseMS))
	}
	if cfg.Source.MaxFileSizeMB < 1 {
		return core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("source.max_file_size_mb must be at least 1, got %d", cfg.Source.MaxFileSizeMB))
	}
	if cfg.OpenAI.Model == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "openai.model must not be empty")
	}
	if cfg.OpenAI.BaseURL == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "openai.base_url must not be empty")
	}
	if u, err := url.Parse(cfg.OpenAI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("openai.base_url %q is not a valid URL", cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.TimeoutSeconds < 1 {
		return core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("openai.timeout_seconds must be at least 1, got %d", cfg.OpenAI.TimeoutSeconds))
	}
	return nil
}

// RequireAPIKey checks that an API key is configured. Commands that call
// the analysis service run this after Validate.
func RequireAPIKey(cfg *Config) error {
	if cfg.OpenAI.APIKey == "" {
		return core.ErrValidation(core.CodeInvalidConfig,
			"openai.api_key is not set; export PARTITURA_OPENAI_API_KEY or add it to .partitura.yaml")
	}
	return nil
}
