package wire

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"

	"github.com/sevigo/neat/internal/app"
	"github.com/sevigo/neat/internal/config"
	"github.com/sevigo/neat/internal/db"
	"github.com/sevigo/neat/internal/fizzy"
	"github.com/sevigo/neat/internal/logger"
	"github.com/sevigo/neat/internal/queue"
	"github.com/sevigo/neat/internal/server"
	"github.com/sevigo/neat/internal/server/handler"
	"github.com/sevigo/neat/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	logger.NewLogger,
	config.LoadConfig,
	db.NewDatabase,
	storage.NewStore,
	queue.NewService,
	provideFizzyClient,
	provideFormService,
	provideSQLConn,
	provideLoggerConfig,
	provideLogWriter,
	provideDBConfig,
)

func provideFormService(svc *queue.Service) handler.FormService {
	return svc
}

func provideSQLConn(dbConn *db.DB) *sqlx.DB {
	return dbConn.DB
}

func provideFizzyClient(cfg *config.Config, logger *slog.Logger) fizzy.Client {
	return fizzy.NewClient(
		cfg.Fizzy.APIURL,
		cfg.Fizzy.Account,
		cfg.Fizzy.Token,
		cfg.Fizzy.Timeout,
		logger,
	)
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stderr":
		return os.Stderr
	case "file":
		f, _ := os.OpenFile("neat.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		return f
	default:
		return os.Stdout
	}
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}
