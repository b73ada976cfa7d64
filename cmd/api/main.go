package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pos_backend/internal/config"
	"pos_backend/internal/handler"
	"pos_backend/internal/logx"
	"pos_backend/internal/service"
	"pos_backend/internal/store"
)

type application struct {
	config *config.Config
	logger zerolog.Logger
	server *http.Server
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger := logx.New(logx.Options{})
		logger.Error().Err(err).Msg("pos backend exited")
		os.Exit(1)
	}
}

// run returns instead of exiting so the store and redis client are always closed.
func run(args []string) error {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	migrateOnly := fs.Bool("migrate-only", false, "apply the schema and exit")
	seedOnly := fs.Bool("seed", false, "wipe and reseed the database, then exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logx.New(logx.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	decimal.MarshalJSONWithoutQuotes = true

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing store")
		}
	}()

	if bool(cfg.Database.AutoMigrate) || *migrateOnly {
		if err := st.Migrate(context.Background()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info().Msg("schema is up to date")
	}
	if *migrateOnly {
		return nil
	}

	var cache service.Cache = service.NoopCache{}
	if cfg.Redis.URL != "" {
		redisClient, err := store.NewRedisClient(cfg.Redis.URL, cfg.Redis.DialTimeout)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching disabled")
		} else {
			cache = store.NewRedisStore(redisClient, cfg.Redis.CatalogTTL, cfg.Redis.TransactionTTL)
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Error().Err(err).Msg("error closing redis client")
				}
			}()
		}
	}

	seedOpts := service.DefaultSeedOptions()
	seedOpts.Transactions = cfg.Seed.Transactions

	seed := service.NewSeedService(logger, st, cache, nil)
	if *seedOnly || bool(cfg.Seed.OnStart) {
		if _, err := seed.Reset(context.Background(), seedOpts); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
		if *seedOnly {
			return nil
		}
	}

	if cfg.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(logger, handler.Dependencies{
		Store:       st,
		Catalog:     service.NewCatalogService(logger, st, cache),
		Checkout:    service.NewCheckoutService(logger, st, cache),
		Ledger:      service.NewLedgerService(logger, st, cache),
		Seed:        seed,
		SeedOptions: seedOpts,
		Admin:       cfg.Admin,
	})

	app := &application{
		config: cfg,
		logger: logger,
		server: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			IdleTimeout:  cfg.Server.IdleTimeout,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	return app.serve()
}

// openStore picks Postgres when DATABASE_URL is set and the local SQLite file otherwise.
func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	if cfg.Database.UsesPostgres() {
		url := cfg.Database.PostgresURL()
		db, err := store.ConnectDB(url, cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("using postgres store")
		return store.NewDBStore(db, url), nil
	}

	st, err := store.OpenSQLite(cfg.Database.SQLiteDSN(), bool(cfg.Database.Debug))
	if err != nil {
		return nil, err
	}
	logger.Info().Str("path", cfg.Database.SQLitePath).Msg("DATABASE_URL not set, using sqlite store")
	return st, nil
}

func (app *application) serve() error {
	app.logger.Info().Str("addr", app.server.Addr).Msg("starting server")

	errChan := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		app.logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful server shutdown failed: %w", err)
	}
	app.logger.Info().Msg("server gracefully stopped")
	return nil
}
