// Package models builds the hosted completion clients used by description
// improvement and the stateless chat assistant.
package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/todoia/internal/config"
)

// ProviderEntry holds a lazily-initialized model instance.
type ProviderEntry struct {
	Config config.ProviderConfig
	model  model.BaseChatModel
	once   sync.Once
	err    error
}

// Registry manages named model providers. Each client is built once and
// shared by every request.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]*ProviderEntry
	defaultName string
	handlers    []callbacks.Handler
}

// NewRegistry creates a model registry from config.
func NewRegistry(cfg config.ModelsConfig) *Registry {
	r := &Registry{
		providers:   make(map[string]*ProviderEntry),
		defaultName: cfg.Default,
	}
	for name, provCfg := range cfg.Providers {
		r.providers[name] = &ProviderEntry{Config: provCfg}
	}
	return r
}

// Register installs a ready-made model under name, replacing any provider
// of that name.
func (r *Registry) Register(name string, m model.BaseChatModel) {
	entry := &ProviderEntry{model: m}
	entry.once.Do(func() {})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = entry
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// Use attaches callback handlers to every model returned by Get.
func (r *Registry) Use(handlers ...callbacks.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handlers...)
}

// Get returns the named model, initializing it on first use. An empty name
// selects the default provider.
func (r *Registry) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = r.DefaultName()
	}
	if name == "" {
		return nil, fmt.Errorf("no default model: %w", ErrNotConfigured)
	}

	r.mu.RLock()
	entry, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("model provider %q not found: %w", name, ErrNotConfigured)
	}

	entry.once.Do(func() {
		entry.model, entry.err = CreateModel(ctx, entry.Config)
	})
	if entry.err != nil {
		return nil, entry.err
	}

	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()
	if len(handlers) == 0 {
		return entry.model, nil
	}
	return &instrumented{
		BaseChatModel: entry.model,
		info:          &callbacks.RunInfo{Name: name, Type: entry.Config.Driver, Component: components.ComponentOfChatModel},
		handlers:      handlers,
	}, nil
}

// instrumented runs a model with the registry's callback handlers in scope.
type instrumented struct {
	model.BaseChatModel
	info     *callbacks.RunInfo
	handlers []callbacks.Handler
}

func (m *instrumented) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.BaseChatModel.Generate(callbacks.InitCallbacks(ctx, m.info, m.handlers...), in, opts...)
}

func (m *instrumented) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.BaseChatModel.Stream(callbacks.InitCallbacks(ctx, m.info, m.handlers...), in, opts...)
}

// DefaultName returns the name of the default provider.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Warm initializes every provider so startup logs report missing
// credentials once. Failures are not fatal: the affected provider keeps
// returning its error, which callers report as a configuration problem.
func (r *Registry) Warm(ctx context.Context) {
	for _, name := range r.Names() {
		if _, err := r.Get(ctx, name); err != nil {
			if errors.Is(err, ErrNotConfigured) {
				slog.Warn("model provider not configured", "provider", name, "error", err)
			} else {
				slog.Error("model provider init failed", "provider", name, "error", err)
			}
			continue
		}
		slog.Debug("model provider ready", "provider", name)
	}
}
