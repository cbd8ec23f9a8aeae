package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/authority"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/logger"
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
	mongoDB, err := authority.ConnectMongoDB(ctx, cfg.Authority.MongoURI, cfg.Authority.MongoDBName)
	if err != nil {
		zl.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	zl.Info("connected to MongoDB", zap.String("uri", cfg.Authority.MongoURI))

	repo := authority.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		zl.Fatal("failed to create indexes", zap.Error(err))
	}

	var publisher authority.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := authority.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		defer kp.Close()
		publisher = kp
		zl.Info("publishing checkout events", zap.String("topic", cfg.Kafka.Topic))
	}

	server := authority.NewServer(repo, authority.DefaultCatalog(), publisher, cfg.RequestTimeout, zl)

	srv := &http.Server{
		Addr:         ":" + cfg.Authority.Port,
		Handler:      server.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("authority starting", zap.String("port", cfg.Authority.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down authority")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		zl.Warn("mongo disconnect failed", zap.Error(err))
	}
	zl.Info("authority stopped")
}
