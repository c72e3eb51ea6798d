package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured marks a provider that cannot be used because it is
// missing from the config or has no credentials.
var ErrNotConfigured = errors.New("model not configured")

// ErrModelUnavailable reports a backend that did not answer like a model
// server (connection refused, proxy error page, 5xx).
type ErrModelUnavailable struct {
	Provider string
	Body     string
	Cause    error
}

func (e *ErrModelUnavailable) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Cause)
	case e.Body != "":
		return fmt.Sprintf("%s unavailable: %s", e.Provider, e.Body)
	default:
		return e.Provider + " unavailable"
	}
}

func (e *ErrModelUnavailable) Unwrap() error { return e.Cause }

// HandleError converts common SDK errors to user-friendly errors.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, "401", "403", "unauthorized", "invalid api key", "incorrect api key", "forbidden") {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if containsAny(errStr, "429", "rate limit", "quota", "too many requests") {
		return fmt.Errorf("rate limited: %w", err)
	}
	if containsAny(errStr, "context length", "too many tokens", "maximum context") {
		return fmt.Errorf("context too long: %w", err)
	}
	if containsAny(errStr, "model not found", "does not exist", "404") {
		return fmt.Errorf("model not found: %w", err)
	}
	if containsAny(errStr, "connection", "eof", "timeout", "dial", "refused", "no such host") {
		return fmt.Errorf("connection error: %w", err)
	}
	return err
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
