package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/dohr-michael/todoia/internal/config"
)

// AuthKind distinguishes between API key and Bearer token auth.
type AuthKind int

const (
	AuthAPIKey AuthKind = iota
	AuthBearerToken
)

// ResolvedAuth holds the resolved credentials and their kind.
type ResolvedAuth struct {
	Kind  AuthKind
	Value string
}

var driverKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// ResolveAuth resolves the credentials for a provider.
// Resolution order: token, api_key (literal or ${VAR}), then the driver's
// conventional env var. Missing credentials wrap ErrNotConfigured.
func ResolveAuth(cfg config.ProviderConfig) (ResolvedAuth, error) {
	if token := expandRef(cfg.Auth.Token); token != "" {
		return ResolvedAuth{Kind: AuthBearerToken, Value: token}, nil
	}
	if key := expandRef(cfg.Auth.APIKey); key != "" {
		return ResolvedAuth{Kind: AuthAPIKey, Value: key}, nil
	}

	driver := strings.ToLower(cfg.Driver)
	env, ok := driverKeyEnv[driver]
	if !ok {
		return ResolvedAuth{}, fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
	if key := os.Getenv(env); key != "" {
		return ResolvedAuth{Kind: AuthAPIKey, Value: key}, nil
	}
	return ResolvedAuth{}, fmt.Errorf("%s not set: %w", env, ErrNotConfigured)
}

func expandRef(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}
