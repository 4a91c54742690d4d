// Package cli holds configuration loading for the halo command line tool.
// Configuration lives in ~/.halo/config.yaml; every field has a working
// default so a fresh install runs without any editing.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name.
	DefaultBaseDir = ".halo"
	// DefaultConfigFile is the default configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Summarizer backends.
const (
	BackendHalo   = "halo"   // the bundled transcription backend's /summary endpoint
	BackendOpenAI = "openai" // direct OpenAI chat completions
)

// Config is the on-disk CLI configuration.
type Config struct {
	// User identifies the nurse whose records and logs are addressed.
	User string `yaml:"user,omitempty"`

	// DataDir is the Badger database directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// BaseURL points at the transcription backend.
	BaseURL string `yaml:"base_url,omitempty"`

	// Summarizer selects the summary backend: "halo" or "openai".
	Summarizer string `yaml:"summarizer,omitempty"`

	// OpenAIModel overrides the model used when Summarizer is "openai".
	OpenAIModel string `yaml:"openai_model,omitempty"`

	// SegmentSeconds is the capture segment length in seconds.
	SegmentSeconds int `yaml:"segment_seconds,omitempty"`

	// Archive configures raw segment archival; nil disables it.
	Archive *ArchiveConfig `yaml:"archive,omitempty"`

	configPath string
}

// ArchiveConfig selects where raw audio segments are kept. Dir and S3Bucket
// are mutually exclusive; Dir wins if both are set.
type ArchiveConfig struct {
	// Dir archives segments under a local directory.
	Dir string `yaml:"dir,omitempty"`

	// S3Bucket archives segments in an S3-compatible bucket. Credentials
	// come from the standard AWS environment variables.
	S3Bucket   string `yaml:"s3_bucket,omitempty"`
	S3Prefix   string `yaml:"s3_prefix,omitempty"`
	S3Region   string `yaml:"s3_region,omitempty"`
	S3Endpoint string `yaml:"s3_endpoint,omitempty"`
}

// Load reads configuration from customPath, or from the default location
// when customPath is empty. A missing file yields defaults and is created
// on the first Save.
func Load(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cli: resolve home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	}

	cfg := &Config{configPath: configPath}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("cli: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cli: parse config %s: %w", configPath, err)
	}
	cfg.applyDefaults()

	switch cfg.Summarizer {
	case BackendHalo, BackendOpenAI:
	default:
		return nil, fmt.Errorf("cli: unknown summarizer %q (want %q or %q)", cfg.Summarizer, BackendHalo, BackendOpenAI)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.User == "" {
		c.User = "default"
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(filepath.Dir(c.configPath), "data")
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:5000"
	}
	if c.Summarizer == "" {
		c.Summarizer = BackendHalo
	}
	if c.SegmentSeconds <= 0 {
		c.SegmentSeconds = 5
	}
}

// SegmentInterval returns the configured segment length.
func (c *Config) SegmentInterval() time.Duration {
	return time.Duration(c.SegmentSeconds) * time.Second
}

// Save writes the configuration back to its path, creating the directory
// if needed.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cli: encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("cli: create config directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("cli: write config: %w", err)
	}
	return nil
}

// Path returns where the configuration was loaded from.
func (c *Config) Path() string {
	return c.configPath
}
