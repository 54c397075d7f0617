package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"taskzen/internal/auth"
	"taskzen/internal/avatars"
	"taskzen/internal/cache"
	"taskzen/internal/events"
	"taskzen/internal/server"
	"taskzen/internal/service"
	"taskzen/internal/storage/sqlite"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().String("static", "", "Directory with built frontend")
	cmd.Flags().String("redis-url", "", "Redis URL for the board cache and events")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := root.load(cmd, map[string]string{
		"addr":      "addr",
		"static":    "static.dir",
		"redis-url": "redis.url",
	})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stdout)
	logger.Info("TaskZen API starting",
		slog.String("db", cfg.DB.Path),
		slog.String("driver", cfg.DB.Driver),
		slog.String("avatar_limit", humanize.IBytes(uint64(cfg.Avatars.MaxBytes))))

	store, err := sqlite.Open(cfg.DB.Driver, cfg.DB.Path, logger)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer store.Close()

	authn, err := auth.New(cfg.Auth)
	if err != nil {
		return err
	}
	defer authn.Close()

	redisClient, err := cache.NewClient(cfg.Redis.URL)
	if err != nil {
		return err
	}
	var bus events.Bus = events.NewLocalBus()
	if redisClient != nil {
		defer redisClient.Close()
		if err := redisClient.Ping(cmd.Context()).Err(); err != nil {
			logger.Warn("redis unreachable; cache and events degrade", slog.String("error", err.Error()))
		}
		bus = events.NewRedisBus(redisClient, logger)
		logger.Info("redis enabled", slog.String("addr", redisAddr(redisClient)))
	}
	defer bus.Close()

	svc := service.New(service.Options{
		Store:   store,
		Auth:    authn,
		Avatars: avatars.NewStore(cfg.Avatars.Dir, cfg.Avatars.MaxBytes),
		Cache:   cache.New(redisClient, cfg.Redis.CacheTTL),
		Bus:     bus,
		Logger:  logger,
	})
	srv := server.New(svc, logger, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

func redisAddr(client *redis.Client) string {
	return client.Options().Addr
}
