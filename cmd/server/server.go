package main

import (
	"context"
	"fmt"
	"net/http"

	"trainmystery/internal/config"
	"trainmystery/internal/game"
	"trainmystery/internal/handlers"
	"trainmystery/internal/loop"
	"trainmystery/internal/store"
)

// Server bundles the pieces main wires together
type Server struct {
	Handler http.Handler
	Runner  *loop.Runner
	Store   store.Repository
}

// SetupServer opens the session store, restores every environment and
// builds the router. The caller runs Runner and closes Store.
func SetupServer(ctx context.Context, cfg *config.ServerConfig, opts *handlers.RouterOptions) (*Server, error) {
	catalog, err := game.NewRegistryFromConfig(cfg.Roles)
	if err != nil {
		return nil, fmt.Errorf("role catalog: %w", err)
	}

	repo, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	runner, err := loop.New(ctx, cfg, repo)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	h := handlers.New(runner, catalog, cfg)
	return &Server{
		Handler: handlers.SetupRouter(h, cfg, opts),
		Runner:  runner,
		Store:   repo,
	}, nil
}
