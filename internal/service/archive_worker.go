package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/observability"
	"chat-analytics-service/internal/repository"
)

const archiveInsertTimeout = 5 * time.Second

// ArchiveWorker batches tracked events into the archive repository.
type ArchiveWorker interface {
	Enqueue(event model.Event)
	Shutdown()
}

type archiveWorker struct {
	repo          repository.EventRepository
	eventQueue    chan model.Event
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewArchiveWorker starts the flush loop. Events are written when batchSize is
// reached, when interval elapses, and once more on Shutdown.
func NewArchiveWorker(repo repository.EventRepository, bufferSize, batchSize int, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *archiveWorker {
	worker := &archiveWorker{
		repo:          repo,
		eventQueue:    make(chan model.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: interval,
		logger:        logger,
		metrics:       metrics,
	}
	worker.wg.Add(1)
	go worker.startLoop()
	return worker
}

// Enqueue never blocks the tracking path: when the buffer is full or the
// worker is shut down the event is dropped and counted.
func (w *archiveWorker) Enqueue(event model.Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.metrics.ArchiveEventsTotal.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case w.eventQueue <- event:
	default:
		w.metrics.ArchiveEventsTotal.WithLabelValues("dropped").Inc()
	}
}

// Shutdown stops accepting events, flushes what is buffered and waits for the
// loop to exit.
func (w *archiveWorker) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.eventQueue)
	w.mu.Unlock()

	w.logger.Info("archive worker draining", zap.Int("queued", len(w.eventQueue)))
	w.wg.Wait()
	w.logger.Info("archive worker stopped")
}

func (w *archiveWorker) startLoop() {
	defer w.wg.Done()

	var batch []model.Event
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.eventQueue:
			if !ok {
				if len(batch) > 0 {
					w.bulkInsert(batch)
				}
				return
			}

			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.bulkInsert(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.bulkInsert(batch)
				batch = nil
			}
		}
	}
}

func (w *archiveWorker) bulkInsert(events []model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveInsertTimeout)
	defer cancel()

	if err := w.repo.CreateBatch(ctx, events); err != nil {
		w.metrics.ArchiveEventsTotal.WithLabelValues("failed").Add(float64(len(events)))
		w.logger.Error("archive batch insert failed", zap.Int("events", len(events)), zap.Error(err))
		return
	}
	w.metrics.ArchiveEventsTotal.WithLabelValues("written").Add(float64(len(events)))
	w.logger.Debug("archive batch flushed", zap.Int("events", len(events)))
}
