// Command gatewayd is a local database gateway for development. It serves
// the execute and schema routes the registry tools call, over a direct
// Postgres, MySQL or SQLite connection.
//
// Run with:
//
//	GATEWAYD_API_KEY=dev DATABASE_DRIVER=sqlite DATABASE_URL=file:dev.db go run ./cmd/gatewayd
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/djb258/client-sub001/internal/config"
	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/database/mysql"
	"github.com/djb258/client-sub001/internal/database/postgres"
	"github.com/djb258/client-sub001/internal/database/sqlite"
	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gatewayd: %v\n", err)
		stop()
		os.Exit(errs.ExitCode(err))
	}
}

func run(ctx context.Context) error {
	base, err := config.Load()
	if err != nil {
		return err
	}
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	log := logger.New(&logger.Config{Level: base.LogLevel, Format: base.LogFormat, Output: os.Stderr})

	driver, err := database.ParseDriver(cfg.DatabaseDriver)
	if err != nil {
		return err
	}
	dbCfg := database.DefaultConfig(driver, cfg.DatabaseURL)
	dbCfg.QueryTimeout = cfg.QueryTimeout

	db, err := open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected", logger.F("driver", string(driver)))

	srv, err := server.New(db, server.Options{
		APIKey:         cfg.APIKey,
		QueryTimeout:   cfg.QueryTimeout,
		Logger:         log,
		AllowedOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.Addr, shutdownGrace)
}

func open(ctx context.Context, cfg *database.Config) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	switch cfg.Driver {
	case database.DriverPostgres:
		db, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		db, err = mysql.New(ctx, cfg)
	default:
		db, err = sqlite.New(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}
