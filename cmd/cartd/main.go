package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/engine"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/snapshot"
	"github.com/fjod/go_cart/storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		zl.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()
	zl.Info("snapshot store ready", zap.String("driver", cfg.Store.Driver))

	holder := session.NewHolder(cfg.Session.Token)
	client := remote.NewClient(remote.Config{
		BaseURL:     cfg.Remote.BaseURL,
		Timeout:     cfg.Remote.Timeout,
		MaxFailures: cfg.Remote.MaxFailures,
		OpenTimeout: cfg.Remote.OpenTimeout,
	}, holder, zl)
	syncer := remote.NewSyncer(client, holder, cfg.Remote.SyncDebounce, cfg.Remote.Timeout, zl)

	cart := engine.New(snapshot.NewAdapter(st, cfg.Store.SnapshotKey, zl), syncer, client, holder, zl)
	cart.Restore(ctx)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	var p *poller.Poller
	if len(cfg.Kafka.Brokers) > 0 {
		p = poller.NewPoller(cart, holder, cfg.Kafka.Topic, cfg.Kafka.GroupID, zl, cfg.Kafka.Brokers...)
		go p.Run(pollCtx)
		zl.Info("listening for checkout events", zap.String("topic", cfg.Kafka.Topic))
	}

	cartHandler := h.NewCartHandler(cart, cfg.RequestTimeout, zl)
	sessionHandler := h.NewSessionHandler(holder, cart, zl)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(cartHandler, sessionHandler, cfg.RequestTimeout, zl),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("cartd starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down cartd")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	stopPolling()
	if p != nil {
		p.Close()
	}
	// push whatever is still pending before the process exits
	cart.Close()

	zl.Info("cartd stopped")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return store.NewMemoryStore(), func() {}, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return store.NewRedisStore(client, cfg.RedisPrefix, cfg.RedisTTL), func() { client.Close() }, nil
	default:
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}
