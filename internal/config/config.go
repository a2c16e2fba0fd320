// Package config loads service configuration from a YAML file with
// environment variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	GCP        GCPConfig        `yaml:"gcp"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// GCPConfig identifies the BigQuery dataset and the statement bucket. An
// empty ProjectID means "run on the in-memory stores" (local development).
type GCPConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Bucket    string `yaml:"bucket"`
}

// ExtractionConfig controls the document extraction adapter.
type ExtractionConfig struct {
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Port: "8080"},
		GCP:        GCPConfig{Dataset: "reconciliation"},
		Extraction: ExtractionConfig{TimeoutSeconds: 120},
	}
}

// Load reads a YAML config file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// FromEnv returns the default configuration with environment overrides, for
// binaries run without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Server.Port, "PORT")
	setFromEnv(&c.GCP.ProjectID, "GCP_PROJECT")
	setFromEnv(&c.GCP.Dataset, "BQ_DATASET")
	setFromEnv(&c.GCP.Bucket, "GCS_BUCKET")
	setFromEnv(&c.Extraction.Model, "GENAI_MODEL")
}

func setFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
