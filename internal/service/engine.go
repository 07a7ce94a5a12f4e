package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-analytics-service/internal/observability"
)

// EngineConfig holds the scheduling parameters of an Engine.
type EngineConfig struct {
	CleanupInterval      time.Duration
	BroadcastInterval    time.Duration
	SendTimeout          time.Duration
	BroadcastConcurrency int
}

// Engine owns the metric store, the subscriber registry and the two
// background tasks (retention cleanup and broadcast). It is created once at
// startup and passed to the handlers that need it.
type Engine struct {
	store       *AnalyticsStore
	registry    *SubscriberRegistry
	broadcaster *Broadcaster
	retention   *RetentionScheduler
	logger      *zap.Logger
	metrics     *observability.Metrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewEngine wires the engine around store.
func NewEngine(store *AnalyticsStore, cfg EngineConfig, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	registry := NewSubscriberRegistry()
	return &Engine{
		store:    store,
		registry: registry,
		broadcaster: NewBroadcaster(store, registry, BroadcasterConfig{
			Interval:    cfg.BroadcastInterval,
			SendTimeout: cfg.SendTimeout,
			Concurrency: cfg.BroadcastConcurrency,
		}, logger, metrics),
		retention: NewRetentionScheduler(store, cfg.CleanupInterval, logger, metrics),
		logger:    logger,
		metrics:   metrics,
	}
}

// Store exposes the metric store for writers and queries.
func (e *Engine) Store() *AnalyticsStore {
	return e.store
}

// Registry exposes the subscriber registry.
func (e *Engine) Registry() *SubscriberRegistry {
	return e.registry
}

// Start launches the cleanup and broadcast tasks. They stop when ctx is
// cancelled or Shutdown is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("engine already started")
	}

	if err := e.retention.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.broadcaster.Run(ctx)
	}()

	e.logger.Info("analytics engine started")
	return nil
}

// Shutdown stops both tasks, waits for them and closes every subscriber.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.started {
		e.cancel()
		e.started = false
		e.mu.Unlock()
		e.wg.Wait()
		e.retention.Stop()
	} else {
		e.mu.Unlock()
	}

	for _, sub := range e.registry.List() {
		e.registry.Unregister(sub.Subscriber)
		_ = sub.Subscriber.Close()
	}
	e.metrics.Subscribers.Set(0)
	e.logger.Info("analytics engine stopped")
}

// Register adds sub and immediately sends it a full snapshot so it never
// waits for the first tick.
func (e *Engine) Register(ctx context.Context, sub Subscriber) error {
	e.registry.Register(sub)
	e.metrics.Subscribers.Set(float64(e.registry.Len()))
	e.logger.Info("subscriber registered", zap.String("subscriber", sub.ID()))

	return e.broadcaster.SendSnapshot(ctx, sub, nil)
}

// Unregister removes sub. Unknown subscribers are ignored.
func (e *Engine) Unregister(sub Subscriber) {
	if e.registry.Unregister(sub) {
		e.metrics.Subscribers.Set(float64(e.registry.Len()))
		e.logger.Info("subscriber unregistered", zap.String("subscriber", sub.ID()))
	}
}

// Broadcast runs one broadcast pass immediately.
func (e *Engine) Broadcast(ctx context.Context) error {
	return e.broadcaster.Tick(ctx)
}

// Cleanup runs one retention pass immediately.
func (e *Engine) Cleanup() {
	e.retention.RunOnce()
}
