// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/neat/internal/app"
	"github.com/sevigo/neat/internal/config"
	"github.com/sevigo/neat/internal/db"
	"github.com/sevigo/neat/internal/logger"
	"github.com/sevigo/neat/internal/queue"
	"github.com/sevigo/neat/internal/server"
	"github.com/sevigo/neat/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	loggerConfig := provideLoggerConfig(cfg)
	logWriter := provideLogWriter(cfg)
	slogLogger := logger.NewLogger(loggerConfig, logWriter)

	// Database
	dbConfig := provideDBConfig(cfg)
	dbConn, dbCleanup, err := db.NewDatabase(dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Storage
	store := storage.NewStore(provideSQLConn(dbConn))

	// Fizzy client
	fizzyClient := provideFizzyClient(cfg, slogLogger)

	// Queue service
	svc := queue.NewService(store, fizzyClient, slogLogger)

	// Server
	srv := server.NewServer(ctx, cfg, provideFormService(svc), slogLogger)

	// App
	application := app.NewApp(ctx, cfg, dbConn, svc, srv, slogLogger)

	cleanup := func() {
		dbCleanup()
	}

	return application, cleanup, nil
}
