// Package config loads the reconlens YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full reconlens configuration.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Engine struct {
		Workers        int  `yaml:"workers"`
		ReconciledRank int  `yaml:"reconciledRank"`
		KeepMixedHigh  bool `yaml:"keepMixedHigh"`
	} `yaml:"engine"`

	Remarks struct {
		Provider string `yaml:"provider"` // "template" or "openai"
		OpenAI   struct {
			APIKey  string `yaml:"apiKey"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"openai"`
		TimeoutSeconds int `yaml:"timeoutSeconds"`
	} `yaml:"remarks"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns a configuration that works without a config file:
// local database, template remarks, info logging.
func Default() *Config {
	var cfg Config
	cfg.Database.Path = "reconlens.db"
	cfg.Engine.Workers = 8
	cfg.Engine.ReconciledRank = 100
	cfg.Remarks.Provider = "template"
	cfg.Remarks.TimeoutSeconds = 10
	cfg.Log.Level = "info"
	return &cfg
}

// Load reads a YAML config file and overlays it on the defaults. The
// OpenAI key may come from the environment instead of the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Remarks.OpenAI.APIKey == "" {
		cfg.Remarks.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1, got %d", c.Engine.Workers)
	}
	switch c.Remarks.Provider {
	case "template", "openai":
	default:
		return fmt.Errorf("remarks.provider must be \"template\" or \"openai\", got %q", c.Remarks.Provider)
	}
	if c.Remarks.Provider == "openai" && c.Remarks.OpenAI.APIKey == "" {
		return fmt.Errorf("remarks.provider is \"openai\" but no API key is configured")
	}
	return nil
}
