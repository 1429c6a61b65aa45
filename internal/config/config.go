// Package config loads and validates the application configuration from
// flags, environment variables and YAML config files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Consensus ConsensusConfig `mapstructure:"consensus" yaml:"consensus"`
	Source    SourceConfig    `mapstructure:"source" yaml:"source"`
	Split     SplitConfig     `mapstructure:"split" yaml:"split"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
}

// OpenAIConfig configures the analysis service client.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model          string `mapstructure:"model" yaml:"model"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConsensusConfig configures the replicated analysis run.
type ConsensusConfig struct {
	Replicates    int `mapstructure:"replicates" yaml:"replicates"`
	MaxRetries    int `mapstructure:"max_retries" yaml:"max_retries"`
	BackoffBaseMS int `mapstructure:"backoff_base_ms" yaml:"backoff_base_ms"`
	BackoffMaxMS  int `mapstructure:"backoff_max_ms" yaml:"backoff_max_ms"`
}

// SourceConfig configures document retrieval.
type SourceConfig struct {
	MaxFileSizeMB int `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
}

// SplitConfig configures part extraction output.
type SplitConfig struct {
	OutputDir            string `mapstructure:"output_dir" yaml:"output_dir"`
	NormalizeOrientation bool   `mapstructure:"normalize_orientation" yaml:"normalize_orientation"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServeConfig configures the HTTP API server.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// MaxFileSizeBytes returns the retrieval cap in bytes.
func (c SourceConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// Save writes the configuration to path as YAML. The write is atomic;
// a crash mid-write never leaves a truncated config behind.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
