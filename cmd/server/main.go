package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/exchange/internal/config"
	"github.com/JonMunkholm/exchange/internal/exchange"
	_ "github.com/JonMunkholm/exchange/internal/exchange/entities" // Register all entities
	"github.com/JonMunkholm/exchange/internal/logging"
	"github.com/JonMunkholm/exchange/internal/store"
	"github.com/JonMunkholm/exchange/internal/web"
)

func main() {
	// Overload lets .env win over variables already set in the shell
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	var records store.Records
	if cfg.Database.URL != "" {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare schema", "error", err)
			os.Exit(1)
		}
		records = pg
	} else {
		mem := store.NewMemory()
		for _, e := range exchange.Entities() {
			mem.Seed(e.Key, e.Samples)
		}
		records = mem
		slog.Warn("DATABASE_URL not set, using in-memory store seeded with sample records")
	}

	entities := exchange.Entities()
	slog.Info("entities registered", "count", len(entities), "groups", len(exchange.Groups()))
	for _, e := range entities {
		slog.Debug("entity", "key", e.Key, "group", e.Group, "import_columns", len(e.Import.Columns))
	}

	server := web.NewServer(cfg, records)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go server.RunJanitor(jobCtx)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown incomplete", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openPool connects to Postgres with the configured pool limits.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
