package secrets

import (
	"fmt"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/dohr-michael/todoia/internal/config"
)

// secretValues lists the configuration values that may hold ENC blobs.
func secretValues(cfg *config.Config) []string {
	values := []string{cfg.Chat.WebhookURL, cfg.Chat.WebhookToken}
	for _, p := range cfg.Models.Providers {
		values = append(values, p.Auth.APIKey, p.Auth.Token)
	}
	return values
}

// NeedsKey reports whether cfg or the process environment holds encrypted
// values.
func NeedsKey(cfg *config.Config) bool {
	for _, v := range secretValues(cfg) {
		if IsEncrypted(v) {
			return true
		}
	}
	for _, kv := range os.Environ() {
		if _, v, ok := strings.Cut(kv, "="); ok && IsEncrypted(v) {
			return true
		}
	}
	return false
}

// DecryptConfig replaces every encrypted secret of cfg in place.
func DecryptConfig(cfg *config.Config, identity age.Identity) error {
	url, err := decryptValue("chat.webhook_url", cfg.Chat.WebhookURL, identity)
	if err != nil {
		return err
	}
	token, err := decryptValue("chat.webhook_token", cfg.Chat.WebhookToken, identity)
	if err != nil {
		return err
	}
	cfg.Chat.WebhookURL, cfg.Chat.WebhookToken = url, token

	for name, p := range cfg.Models.Providers {
		key, err := decryptValue("models.providers."+name+".auth.api_key", p.Auth.APIKey, identity)
		if err != nil {
			return err
		}
		token, err := decryptValue("models.providers."+name+".auth.token", p.Auth.Token, identity)
		if err != nil {
			return err
		}
		p.Auth.APIKey, p.Auth.Token = key, token
		cfg.Models.Providers[name] = p
	}
	return nil
}

// DecryptEnv decrypts encrypted values of the process environment, as set
// by .env entries written with "todoia secrets set".
func DecryptEnv(identity age.Identity) error {
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !IsEncrypted(v) {
			continue
		}
		plain, err := decryptValue(k, v, identity)
		if err != nil {
			return err
		}
		if err := os.Setenv(k, plain); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

// Unlock decrypts cfg and the environment with the key at keyPath. It is a
// no-op when nothing is encrypted.
func Unlock(cfg *config.Config, keyPath string) error {
	if !NeedsKey(cfg) {
		return nil
	}
	identity, err := LoadIdentity(keyPath)
	if err != nil {
		return fmt.Errorf("encrypted secrets present: %w", err)
	}
	if err := DecryptEnv(identity); err != nil {
		return err
	}
	return DecryptConfig(cfg, identity)
}

func decryptValue(name, v string, identity age.Identity) (string, error) {
	if !IsEncrypted(v) {
		return v, nil
	}
	plain, err := Decrypt(v, identity)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", name, err)
	}
	return plain, nil
}
