// Package server provides the public entry point for initializing the
// chatcore service: config, telemetry, checkpoint store, tool registry,
// model gateway, executor, and HTTP router, wired together.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chatcore/chatcore/internal/api"
	"github.com/chatcore/chatcore/internal/api/handlers"
	"github.com/chatcore/chatcore/internal/checkpoint"
	"github.com/chatcore/chatcore/internal/config"
	"github.com/chatcore/chatcore/internal/dispatch"
	"github.com/chatcore/chatcore/internal/executor"
	"github.com/chatcore/chatcore/internal/gateway"
	"github.com/chatcore/chatcore/internal/telemetry"
	"github.com/chatcore/chatcore/internal/tools"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized chatcore service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the checkpoint store in use.
	Store checkpoint.Store

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes the service from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	gw := gateway.New(cfg.Model)
	dispatcher := dispatch.NewDispatcher(registry, cfg.Tools.CallTimeout)
	exec := executor.New(store, gw, dispatcher, gateway.Specs(registry), executor.Options{
		SystemPrompt: cfg.Agent.SystemPrompt,
		MaxTurns:     cfg.Agent.MaxTurns,
	})

	h := handlers.New(exec, store)
	router := api.NewRouter(cfg, h)

	log.Info().
		Str("model_kind", cfg.Model.Kind).
		Str("model", cfg.Model.Model).
		Int("tools", len(registry.List())).
		Msg("Agent executor initialized")

	return &Server{
		Handler:      router,
		Store:        store,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// newStore picks the checkpoint backend: PostgreSQL when DATABASE_URL
// is set, the in-memory store otherwise.
func newStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	if cfg.Database.URL == "" {
		log.Info().Msg("In-memory checkpoint store initialized")
		return checkpoint.NewMemoryStore(), nil
	}

	pg, err := checkpoint.NewPostgresStore(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("init postgres checkpoint store: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("migrate checkpoint store: %w", err)
	}
	log.Info().Msg("PostgreSQL checkpoint store initialized")
	return pg, nil
}

// newRegistry registers the built-in tools.
func newRegistry(cfg *config.Config) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	for _, t := range []tools.Tool{
		tools.NewWeatherTool(cfg.Tools.WeatherEndpoint, cfg.Tools.CallTimeout),
		tools.NewMultiplyTool(),
		tools.NewCalculateTool(),
		tools.NewSearchTool(cfg.Tools.SearchEndpoint, cfg.Tools.SearchAPIKey, cfg.Tools.SearchEngineID, cfg.Tools.CallTimeout),
	} {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
