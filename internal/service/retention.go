package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"chat-analytics-service/internal/observability"
)

// periodKeys returns sortable keys for the day, ISO week and month of t.
// Later periods always compare greater.
func periodKeys(t time.Time) (day, week, month string) {
	year, isoWeek := t.ISOWeek()
	return t.Format("2006-01-02"), fmt.Sprintf("%04d-W%02d", year, isoWeek), t.Format("2006-01")
}

// rollCalendar clears every activity bucket whose period has ended. Each
// bucket remembers the period it was last reset for, so a boundary resets it
// exactly once no matter how many call sites observe it or how late they run.
func (u *usageStats) rollCalendar(now time.Time) {
	day, week, month := periodKeys(now)
	if day > u.periods.day {
		clear(u.dailyActive)
		u.peakHours = [24]int64{}
		u.concurrentUsers = 0
		u.periods.day = day
	}
	if week > u.periods.week {
		clear(u.weeklyActive)
		u.periods.week = week
	}
	if month > u.periods.month {
		clear(u.monthlyActive)
		u.periods.month = month
	}
}

// CleanupReport summarizes one retention pass.
type CleanupReport struct {
	EvictedScopes int
	PrunedEntries int
}

// Cleanup evicts scopes idle for longer than the retention window, prunes
// aged log entries everywhere else and rolls the calendar buckets.
func (s *AnalyticsStore) Cleanup() CleanupReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.retention)
	var report CleanupReport

	for key, st := range s.scopes {
		if st.lastWrite.Before(cutoff) {
			delete(s.scopes, key)
			report.EvictedScopes++
			continue
		}

		var n int
		st.chat.messageHistory, n = pruneBefore(st.chat.messageHistory, cutoff, func(e messageEntry) time.Time { return e.at })
		report.PrunedEntries += n
		st.documents.uploadHistory, n = pruneBefore(st.documents.uploadHistory, cutoff, func(e uploadEntry) time.Time { return e.at })
		report.PrunedEntries += n
		st.documents.searchQueries, n = pruneBefore(st.documents.searchQueries, cutoff, func(e searchEntry) time.Time { return e.at })
		report.PrunedEntries += n
		st.links.shareHistory, n = pruneBefore(st.links.shareHistory, cutoff, func(e shareEntry) time.Time { return e.at })
		report.PrunedEntries += n
	}

	usage := &s.usage
	var n int
	usage.responseTimes, n = pruneBefore(usage.responseTimes, cutoff, func(e timedValue) time.Time { return e.at })
	report.PrunedEntries += n
	usage.sessionDurations, n = pruneBefore(usage.sessionDurations, cutoff, func(e sessionEntry) time.Time { return e.at })
	report.PrunedEntries += n

	cutDay, cutWeek, cutMonth := periodKeys(cutoff)
	pruneBuckets(usage.retention.daily, cutDay)
	pruneBuckets(usage.retention.weekly, cutWeek)
	pruneBuckets(usage.retention.monthly, cutMonth)

	usage.rollCalendar(now)

	return report
}

// pruneBefore filters log in place, keeping entries at or after cutoff.
func pruneBefore[T any](log []T, cutoff time.Time, at func(T) time.Time) ([]T, int) {
	kept := log[:0]
	for _, entry := range log {
		if !at(entry).Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	removed := len(log) - len(kept)
	clear(log[len(kept):])
	return kept, removed
}

// pruneBuckets drops retention buckets for periods before the cutoff period.
func pruneBuckets(buckets map[string]userSet, cutoffKey string) {
	for key := range buckets {
		if key < cutoffKey {
			delete(buckets, key)
		}
	}
}

// RetentionScheduler runs AnalyticsStore.Cleanup on a fixed interval.
type RetentionScheduler struct {
	store    *AnalyticsStore
	cron     *cron.Cron
	entry    cron.EntryID
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRetentionScheduler builds a scheduler; call Start to begin running.
// A panicking pass is recovered and logged by the cron chain and the next
// pass runs on schedule.
func NewRetentionScheduler(store *AnalyticsStore, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *RetentionScheduler {
	cronLogger := observability.NewCronLogger(logger)
	return &RetentionScheduler{
		store:    store,
		cron:     cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start registers the cleanup job and starts the cron scheduler.
func (r *RetentionScheduler) Start() error {
	entry, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), r.RunOnce)
	if err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	r.entry = entry
	r.cron.Start()
	r.logger.Info("retention cleanup scheduled",
		zap.Duration("interval", r.interval),
		zap.Duration("retention_window", r.store.RetentionWindow()),
	)
	return nil
}

// RunOnce performs one cleanup pass and records its outcome.
func (r *RetentionScheduler) RunOnce() {
	start := time.Now()
	report := r.store.Cleanup()

	r.metrics.CleanupRunsTotal.Inc()
	r.metrics.ScopesEvictedTotal.Add(float64(report.EvictedScopes))

	r.logger.Info("retention cleanup finished",
		zap.Int("evicted_scopes", report.EvictedScopes),
		zap.Int("pruned_entries", report.PrunedEntries),
		zap.Duration("took", time.Since(start)),
	)
}

// Stop stops scheduling, waits for a running pass to finish and removes the
// job so a later Start schedules it exactly once.
func (r *RetentionScheduler) Stop() {
	<-r.cron.Stop().Done()
	r.cron.Remove(r.entry)
}
