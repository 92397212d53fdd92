// Package app initializes and runs the chirp server: it wires the database,
// object storage, services, and the HTTP endpoint, and handles graceful
// shutdown on OS signals.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dsmelov/chirp/internal/config"
	"github.com/dsmelov/chirp/internal/httpapi"
	"github.com/dsmelov/chirp/internal/logging"
	"github.com/dsmelov/chirp/internal/media"
	"github.com/dsmelov/chirp/internal/repositories/repomanager"
	"github.com/dsmelov/chirp/internal/services"
)

type App struct {
	config *config.Config
	logger *logging.ZapLogger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger, err := logging.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := media.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	mm := media.NewManager(store, logger)
	us := services.NewUserService(db, rm, mm, logger, cfg)
	ts := services.NewTweetService(db, rm, mm, logger)

	server := httpapi.NewServer(cfg, logger, us, ts)

	return &App{config: cfg, logger: logger, db: db, server: server}, nil
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
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	_ = app.logger.Sync()
}
