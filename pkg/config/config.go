// Package config holds the bot's file configuration and the small set
// of process-wide knobs that administrators can flip at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration.
type Config struct {
	Shapes   ShapesConfig   `yaml:"shapes"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Bot      BotConfig      `yaml:"bot"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ShapesConfig controls the primary (Shapes-compatible) backend.
type ShapesConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	AuthBaseURL string `yaml:"auth_base_url"`
	Username    string `yaml:"username"` // shape identity, used as shapesinc/<username> model id
	AppID       string `yaml:"app_id"`
}

// GeminiConfig controls the fallback backend.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// BotConfig tweaks message handling behaviour.
type BotConfig struct {
	TriggerWord    string        `yaml:"trigger_word"`
	OwnerIDs       []string      `yaml:"owner_ids"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ContextIdleTTL time.Duration `yaml:"context_idle_ttl"`
	SystemPrompt   string        `yaml:"system_prompt"`
}

// DatabaseConfig points at the sqlite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig sets the base log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses a config file, filling defaults for anything
// left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Shapes.BaseURL == "" {
		cfg.Shapes.BaseURL = "https://api.shapes.inc/v1"
	}
	if cfg.Shapes.AuthBaseURL == "" {
		cfg.Shapes.AuthBaseURL = "https://api.shapes.inc/auth"
	}
	if cfg.Shapes.Username == "" {
		cfg.Shapes.Username = "tenshi"
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.Bot.TriggerWord == "" {
		cfg.Bot.TriggerWord = "gpt 5"
	}
	if cfg.Bot.RequestTimeout <= 0 {
		cfg.Bot.RequestTimeout = 60 * time.Second
	}
	if cfg.Bot.ContextIdleTTL <= 0 {
		cfg.Bot.ContextIdleTTL = 6 * time.Hour
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/tenshi.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
