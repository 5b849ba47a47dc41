// Package server initializes and runs the vault backend: configuration,
// database and migrations, blob storage, anchoring, services, and the HTTP
// endpoint, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/blockvault/blockvault/internal/logging"
	"github.com/blockvault/blockvault/internal/server/anchor"
	"github.com/blockvault/blockvault/internal/server/blob"
	"github.com/blockvault/blockvault/internal/server/config"
	"github.com/blockvault/blockvault/internal/server/httpapi"
	"github.com/blockvault/blockvault/internal/server/repositories/repomanager"
	"github.com/blockvault/blockvault/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs := blob.NewS3Store(blob.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})

	anchorer := anchor.New(cfg.AnchorEndpoint)

	userService := services.NewUserService(db, rm, cfg, logger)
	identityService := services.NewIdentityService(db, rm)
	vaultService := services.NewVaultService(db, rm, blobs, anchorer, logger)
	shareService := services.NewShareService(db, rm)

	srv := httpapi.NewServer(cfg.EndpointAddr, logger,
		userService, identityService, vaultService, shareService, cfg.SecretKey)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
