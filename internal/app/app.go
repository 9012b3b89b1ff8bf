package app

import (
	"context"
	"net/http"

	"github.com/jkairys/bellbird/internal/config"
)

type App struct {
	httpServer *http.Server
}

func New(cfg config.Config) (*App, error) {
	router, err := setupHTTP(cfg)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	return &App{
		httpServer: server,
	}, nil
}

func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}
