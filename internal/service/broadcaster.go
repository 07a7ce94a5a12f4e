package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chat-analytics-service/internal/observability"
)

const tickRetryDelay = time.Second

// BroadcasterConfig tunes delivery.
type BroadcasterConfig struct {
	Interval    time.Duration
	SendTimeout time.Duration
	Concurrency int
}

// Broadcaster periodically pushes filtered snapshots to every subscriber.
type Broadcaster struct {
	store    *AnalyticsStore
	registry *SubscriberRegistry
	cfg      BroadcasterConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewBroadcaster constructs a Broadcaster; call Run to start ticking.
func NewBroadcaster(store *AnalyticsStore, registry *SubscriberRegistry, cfg BroadcasterConfig, logger *zap.Logger, metrics *observability.Metrics) *Broadcaster {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Broadcaster{
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run ticks until ctx is cancelled. A failing tick is logged and the loop
// resumes after a short pause.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.safeTick(ctx); err != nil {
				b.logger.Error("broadcast tick failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(tickRetryDelay):
				}
			}
		}
	}
}

func (b *Broadcaster) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("broadcast panic: %v", r)
		}
	}()
	return b.Tick(ctx)
}

// Tick snapshots the store once and delivers it to every subscriber, each
// through its own topic filter. Subscribers that fail or time out are closed
// and unregistered; the others are unaffected.
func (b *Broadcaster) Tick(ctx context.Context) error {
	subs := b.registry.List()
	if len(subs) == 0 {
		return nil
	}

	start := time.Now()
	encoded, err := EncodeSnapshot(b.store.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			payload, err := encoded.Filter(sub.Topics)
			if err != nil {
				b.logger.Error("filter snapshot", zap.String("subscriber", sub.Subscriber.ID()), zap.Error(err))
				return nil
			}
			if err := b.deliver(ctx, sub.Subscriber, payload); err != nil {
				b.Drop(sub.Subscriber, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	b.metrics.BroadcastTicksTotal.Inc()
	b.metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	return nil
}

// SendSnapshot delivers one snapshot to sub, filtered by topics. A failed
// delivery drops sub.
func (b *Broadcaster) SendSnapshot(ctx context.Context, sub Subscriber, topics []string) error {
	encoded, err := EncodeSnapshot(b.store.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	payload, err := encoded.Filter(topics)
	if err != nil {
		return fmt.Errorf("filter snapshot: %w", err)
	}
	if err := b.deliver(ctx, sub, payload); err != nil {
		b.Drop(sub, err)
		return err
	}
	return nil
}

// deliver sends payload within the per-subscriber timeout. The send runs in
// its own goroutine so a Send that ignores its deadline cannot stall the tick.
func (b *Broadcaster) deliver(ctx context.Context, sub Subscriber, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sub.Send(ctx, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to subscriber %s: %w", sub.ID(), err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send to subscriber %s: %w", sub.ID(), ctx.Err())
	}
}

// Drop closes and unregisters sub after a delivery failure.
func (b *Broadcaster) Drop(sub Subscriber, cause error) {
	if !b.registry.Unregister(sub) {
		return
	}
	if err := sub.Close(); err != nil {
		b.logger.Debug("close dropped subscriber", zap.String("subscriber", sub.ID()), zap.Error(err))
	}

	reason := "send_error"
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "timeout"
	}
	b.metrics.SubscribersDroppedTotal.WithLabelValues(reason).Inc()
	b.metrics.Subscribers.Set(float64(b.registry.Len()))
	b.logger.Warn("subscriber dropped", zap.String("subscriber", sub.ID()), zap.String("reason", reason), zap.Error(cause))
}
