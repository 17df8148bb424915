package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/agent007/src/agent"
	"github.com/elee1766/agent007/src/aisdk"
	"github.com/elee1766/agent007/src/config"
	"github.com/elee1766/agent007/src/oaiclient"
	"github.com/elee1766/agent007/src/ollama"
	"github.com/elee1766/agent007/src/storage"
)

// App represents the main application with all services
type App struct {
	Config   *config.Config
	Provider aisdk.Provider
	Agent    *agent.Agent
	Logger   *slog.Logger

	store *storage.DB
}

// New wires the backend and the generator from cfg. No network call is made;
// an unreachable backend surfaces on the first request.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	provider, err := NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	model, err := provider.Model(ctx, cfg.Agent.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to bind model %s: %w", cfg.Agent.Model, err)
	}

	a := agent.New(model, logger)
	if cfg.Agent.SystemPrompt != "" {
		a.SystemPrompt = cfg.Agent.SystemPrompt
	}
	temperature := cfg.Agent.Temperature
	a.Temperature = &temperature
	if cfg.Agent.MaxTokens > 0 {
		maxTokens := cfg.Agent.MaxTokens
		a.MaxTokens = &maxTokens
	}

	return &App{
		Config:   cfg,
		Provider: provider,
		Agent:    a,
		Logger:   logger,
	}, nil
}

// NewProvider returns the backend client selected by cfg.API.Provider.
func NewProvider(cfg *config.Config, logger *slog.Logger) (aisdk.Provider, error) {
	switch cfg.API.Provider {
	case "ollama", "":
		return ollama.NewClient(ollama.Config{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout.Duration,
			Logger:  logger,
		}), nil
	case "openai":
		return oaiclient.NewClient(oaiclient.Config{
			APIKey:     cfg.API.APIKey,
			BaseURL:    cfg.API.BaseURL,
			Timeout:    cfg.API.Timeout.Duration,
			RetryCount: cfg.API.RetryCount,
			Logger:     logger,
		}), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.API.Provider)
}

// Store opens the transcript archive on first use.
func (a *App) Store() (*storage.DB, error) {
	if a.store != nil {
		return a.store, nil
	}
	db, err := storage.Open(a.Config.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.store = db
	return db, nil
}

// NewRecorder starts recording a new session into the archive.
func (a *App) NewRecorder() (*storage.Recorder, error) {
	db, err := a.Store()
	if err != nil {
		return nil, err
	}
	return storage.NewRecorder(db, a.Provider.Name(), a.Config.Agent.Model, a.Logger), nil
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
