package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// standardizes it to plain JSON, unmarshals it into Config and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Templates live inside strings, so expand before standardizing.
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18430
	}
	if cfg.Gateway.Environment == "" {
		if v := os.Getenv("TODOIA_ENV"); v != "" {
			cfg.Gateway.Environment = v
		} else {
			cfg.Gateway.Environment = "development"
		}
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join(HomePath(), "todoia.db")
	}
	if cfg.Auth.AccessTTL == 0 {
		cfg.Auth.AccessTTL = Duration(time.Hour)
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = Duration(30 * 24 * time.Hour)
	}

	// Without an explicit provider table, fall back to OpenAI resolved from
	// OPENAI_API_KEY at model init time.
	if len(cfg.Models.Providers) == 0 {
		cfg.Models.Providers = map[string]ProviderConfig{
			"openai": {Driver: "openai", Model: "gpt-4o-mini"},
		}
		if cfg.Models.Default == "" {
			cfg.Models.Default = "openai"
		}
	}

	if cfg.Enhance.MaxTokens == 0 {
		cfg.Enhance.MaxTokens = 500
	}
	if cfg.Enhance.Temperature == 0 {
		cfg.Enhance.Temperature = 0.7
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 500
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Chat.WebhookURL == "" {
		cfg.Chat.WebhookURL = os.Getenv("N8N_CHAT_WEBHOOK_URL")
	}
	if cfg.Chat.WebhookToken == "" {
		cfg.Chat.WebhookToken = os.Getenv("N8N_WEBHOOK_TOKEN")
	}
	if cfg.Chat.Timeout == 0 {
		cfg.Chat.Timeout = Duration(30 * time.Second)
	}

	if cfg.Maintenance.PurgeSchedule == "" {
		cfg.Maintenance.PurgeSchedule = "*/15 * * * *"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
