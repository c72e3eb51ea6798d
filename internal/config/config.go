package config

import "time"

// Config is the root configuration for todoia.
type Config struct {
	Gateway     GatewayConfig     `json:"gateway"`
	Database    DatabaseConfig    `json:"database"`
	Auth        AuthConfig        `json:"auth"`
	Models      ModelsConfig      `json:"models"`
	Enhance     EnhanceConfig     `json:"enhance"`
	Chat        ChatConfig        `json:"chat"`
	Maintenance MaintenanceConfig `json:"maintenance"`
	Log         LogConfig         `json:"log"`
}

// GatewayConfig holds the HTTP gateway settings.
type GatewayConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	Environment string   `json:"environment"`
	CORSOrigins []string `json:"cors_origins,omitempty"` // glob patterns, e.g. "https://*.example.com"
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// AuthConfig configures token lifetimes of the local auth provider.
type AuthConfig struct {
	AccessTTL  Duration `json:"access_ttl"`
	RefreshTTL Duration `json:"refresh_ttl"`
}

// ModelsConfig holds hosted completion provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string             `json:"driver"` // "openai", "anthropic", "ollama"
	Model     string             `json:"model"`
	BaseURL   string             `json:"base_url,omitempty"`
	Auth      ProviderAuthConfig `json:"auth"`
	MaxTokens int                `json:"max_tokens,omitempty"`
	Timeout   Duration           `json:"timeout,omitempty"`
	Options   map[string]any     `json:"options,omitempty"`
}

// ProviderAuthConfig configures API key resolution.
type ProviderAuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // direct key, ${VAR}, ${{ .Env.VAR }} or ENC[age:...]
	Token  string `json:"token,omitempty"`   // bearer token
}

// EnhanceConfig tunes description improvement.
type EnhanceConfig struct {
	Model       string  `json:"model,omitempty"` // provider name; empty = models.default
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// ChatConfig configures both chat backends.
type ChatConfig struct {
	Model        string   `json:"model,omitempty"` // provider name for the assistant; empty = models.default
	MaxTokens    int      `json:"max_tokens"`
	Temperature  float64  `json:"temperature"`
	WebhookURL   string   `json:"webhook_url,omitempty"`
	WebhookToken string   `json:"webhook_token,omitempty"`
	Timeout      Duration `json:"timeout,omitempty"`
}

// MaintenanceConfig schedules housekeeping jobs.
type MaintenanceConfig struct {
	PurgeSchedule string `json:"purge_schedule"` // cron expression; "off" disables
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `json:"format"` // "text" or "json"
	Level  string `json:"level"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
