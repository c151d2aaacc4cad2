// Package app initializes and orchestrates the main components of the Neat
// application. It wires together the configuration, database, ticketing
// client, and HTTP server.
package app

import (
	"context"
	"log/slog"

	"github.com/sevigo/neat/internal/config"
	"github.com/sevigo/neat/internal/db"
	"github.com/sevigo/neat/internal/queue"
	"github.com/sevigo/neat/internal/server"
)

// App holds the main application components. Service is exported for the
// CLI, which talks to the queue directly instead of going through HTTP.
type App struct {
	ctx     context.Context
	cfg     *config.Config
	server  *server.Server
	logger  *slog.Logger
	dbConn  *db.DB
	Service *queue.Service
}

// NewApp assembles the application from its already-constructed components.
func NewApp(ctx context.Context, cfg *config.Config, dbConn *db.DB, svc *queue.Service, srv *server.Server, logger *slog.Logger) *App {
	return &App{
		ctx:     ctx,
		cfg:     cfg,
		server:  srv,
		logger:  logger,
		dbConn:  dbConn,
		Service: svc,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting Neat",
		"server_port", a.cfg.ServerPort,
		"fizzy_account", a.cfg.Fizzy.Account)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down Neat services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		a.logger.Error("Neat stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("Neat stopped successfully")
	return nil
}
