package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/cacher/internal/config"
	"github.com/Sternrassler/cacher/pkg/cache"
	"github.com/Sternrassler/cacher/pkg/logging"
	"github.com/Sternrassler/cacher/pkg/proxy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile, listen, backend string

	cmd := &cobra.Command{
		Use:          "cacher",
		Short:        "Caching reverse proxy backed by Redis",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile, listen, backend)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to .env file (ignored when absent)")
	cmd.Flags().StringVar(&listen, "listen", "", "Proxy listen address (overrides CACHER_LISTEN)")
	cmd.Flags().StringVar(&backend, "backend", "", "Origin base URL (overrides CACHER_BACKEND)")
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(envFile, listen, backend string) (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	_, logCloser := logging.Setup(cfg.Logging())
	defer logCloser.Close()
	logger := logging.NewLogger("server")

	redisClient, err := cache.NewRedisClient(cache.RedisOptions{
		URL:      cfg.Redis,
		PoolSize: cfg.PoolSize,
		Timeout:  cfg.StoreTimeout,
	})
	if err != nil {
		return err
	}
	store := cache.NewStore(redisClient, cfg.KeyPrefix)
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		if !cfg.FailOpen {
			logger.Error().Err(err).Msg("Failed to connect to Redis")
			return err
		}
		logger.Warn().Err(err).Msg("Redis unavailable, serving uncached until it recovers")
	}

	p, err := proxy.New(store, proxy.Options{
		Backend:         cfg.Backend,
		Vary:            cfg.Vary,
		TTL:             cfg.TTL,
		Bypass:          cfg.Bypass,
		BypassOnNoStore: cfg.BypassOnNoStore,
		FailOpen:        cfg.FailOpen,
		OriginTimeout:   cfg.OriginTimeout,
		OriginRetries:   cfg.OriginRetries,
		HashKeys:        cfg.HashKeys,
		Match:           cfg.MatchMode(),
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{
		{Addr: cfg.Listen, Handler: newProxyRouter(p, logger), ReadHeaderTimeout: 10 * time.Second},
	}
	if cfg.AdminListen != "" {
		servers = append(servers, &http.Server{Addr: cfg.AdminListen, Handler: newAdminRouter(store), ReadHeaderTimeout: 10 * time.Second})
	}

	logger.Info().
		Str("listen", cfg.Listen).
		Str("admin_listen", cfg.AdminListen).
		Str("backend", p.Backend()).
		Bool("vary", cfg.Vary).
		Dur("ttl", cfg.TTL).
		Msg("Starting cacher")

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Str("addr", srv.Addr).Msg("Graceful shutdown failed")
		}
	}
	return runErr
}
