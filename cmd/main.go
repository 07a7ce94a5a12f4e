package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chat-analytics-service/internal/config"
	"chat-analytics-service/internal/controller"
	"chat-analytics-service/internal/db"
	httpserver "chat-analytics-service/internal/http"
	"chat-analytics-service/internal/observability"
	"chat-analytics-service/internal/repository"
	"chat-analytics-service/internal/routes"
	"chat-analytics-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.AppMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	storeOpts := []service.StoreOption{
		service.WithHistoryCap(cfg.HistorySoftCap),
		service.WithRetentionWindow(cfg.RetentionWindow),
		service.WithStoreMetrics(metrics),
	}

	if cfg.ArchiveEnabled() {
		conn, err := db.NewConnection(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()

		if err := db.RunMigrations(ctx, conn); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		repo := repository.NewEventRepository(conn)
		worker := service.NewArchiveWorker(repo, cfg.ArchiveBufferSize, cfg.ArchiveBatchSize, cfg.ArchiveFlushEvery, logger.Named("archive"), metrics)
		defer worker.Shutdown()

		storeOpts = append(storeOpts, service.WithEventSink(worker))
		logger.Info("event archive enabled", zap.String("addr", cfg.ClickHouseAddr))
	}

	store := service.NewAnalyticsStore(storeOpts...)
	engine := service.NewEngine(store, service.EngineConfig{
		CleanupInterval:      cfg.CleanupInterval,
		BroadcastInterval:    cfg.BroadcastInterval,
		SendTimeout:          cfg.SubscriberSendTimeout,
		BroadcastConcurrency: cfg.BroadcastConcurrency,
	}, logger.Named("engine"), metrics)

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	server := httpserver.NewServer(routes.Controllers{
		Events:    controller.NewEventController(service.NewEventService(store)),
		Analytics: controller.NewAnalyticsController(store),
		Stream:    controller.NewStreamController(engine, logger.Named("stream")),
	}, registry, logger.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", cfg.HTTPPort))
		return server.Listen(cfg.HTTPPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Close subscribers first; open WebSocket connections would otherwise
		// hold the server shutdown until its timeout.
		engine.Shutdown()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
