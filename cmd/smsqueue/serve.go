package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/LeventeLantos/sms-queue/internal/api"
	"github.com/LeventeLantos/sms-queue/internal/cache"
	"github.com/LeventeLantos/sms-queue/internal/config"
	"github.com/LeventeLantos/sms-queue/internal/database"
	"github.com/LeventeLantos/sms-queue/internal/logger"
	"github.com/LeventeLantos/sms-queue/internal/repo"
	"github.com/LeventeLantos/sms-queue/internal/service"
	"github.com/LeventeLantos/sms-queue/internal/tracing"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve migrates the schema and starts the HTTP API. It shuts down
gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAll()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, store, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []service.Option{service.WithLogger(log)}
	if cfg.Redis.Enabled {
		rdb, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, service.WithPendingCache(cache.NewRedisCache(rdb, cfg.Redis.TTL())))
		log.Info().Str("addr", cfg.Redis.Address).Dur("ttl", cfg.Redis.TTL()).Msg("pending cache enabled")
	}

	if cfg.Auth.APIKey == "" {
		log.Warn().Msg("API_KEY is not set; protected routes will reject every request")
	}

	lifecycle := service.NewLifecycle(store, opts...)
	handler := api.Router(
		api.NewHandler(lifecycle, cfg.Server.APIBaseURL, log),
		api.RouterConfig{
			APIKey:             cfg.Auth.APIKey,
			ProtectTransitions: cfg.Auth.ProtectTransitions,
			AllowedOrigins:     cfg.Server.AllowedOrigins(),
		},
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// openStore connects, picks the dialect and applies the schema.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*sql.DB, *repo.SQLMessageRepo, error) {
	db, driver, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	dialect, err := repo.DialectFor(driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	store := repo.NewSQLMessageRepo(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("dialect", dialect.Name).Msg("database ready")
	return db, store, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
