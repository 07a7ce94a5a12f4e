package service

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"chat-analytics-service/internal/model"
)

// AnalyticsReader is the read side of the metric store.
type AnalyticsReader interface {
	ChatStatistics(scope string) model.ChatStatistics
	ChatRollup() model.ChatRollup
	DocumentStatistics(scope string) model.DocumentStatistics
	DocumentRollup() model.DocumentRollup
	LinkStatistics(scope string) model.LinkStatistics
	LinkRollup() model.LinkRollup
	UsageStatistics() model.UsageStatistics
	EnhancedStatistics() model.EnhancedStatistics
}

var _ AnalyticsReader = (*AnalyticsStore)(nil)

// ChatStatistics returns the chat view of scope. Unknown scopes yield zero
// values and are not created.
func (s *AnalyticsStore) ChatStatistics(scope string) model.ChatStatistics {
	scope = normalizeScope(scope)

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	view := model.ChatStatistics{
		Scope:              scope,
		ActiveUsers:        []string{},
		MessageHistory:     []model.MessageRecord{},
		RecentMessages:     []model.MessageRecord{},
		CompletionStatus:   map[string]int64{},
		ResponseTimes:      []float64{},
		Topics:             map[string]int64{},
		SatisfactionScores: []float64{},
	}

	st, ok := s.scopes[scope]
	if !ok {
		return view
	}
	chat := &st.chat

	view.MessageCount = chat.messageCount
	view.LastActivity = model.FormatOptionalTimestamp(chat.lastActivity)
	view.DocumentCount = chat.documentCount
	view.LinkCount = chat.linkCount
	view.ActiveUsers = sortedMembers(chat.activeUsers)
	view.ActiveUsersCount = len(chat.activeUsers)
	for _, e := range chat.messageHistory {
		record := model.MessageRecord{Timestamp: model.FormatTimestamp(e.at), UserID: e.userID, Count: e.count}
		view.MessageHistory = append(view.MessageHistory, record)
		if isRecent(now, e.at) {
			view.RecentMessages = append(view.RecentMessages, record)
		}
	}
	maps.Copy(view.CompletionStatus, chat.completionStatus)
	view.ResponseTimes = append(view.ResponseTimes, chat.responseTimes...)
	maps.Copy(view.Topics, chat.topics)
	view.SatisfactionScores = append(view.SatisfactionScores, chat.satisfactionScores...)
	return view
}

// ChatRollup aggregates chat stats across every scope.
func (s *AnalyticsStore) ChatRollup() model.ChatRollup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatRollupLocked(s.now())
}

func (s *AnalyticsStore) chatRollupLocked(now time.Time) model.ChatRollup {
	rollup := model.ChatRollup{TotalChats: len(s.scopes)}
	users := userSet{}
	for _, st := range s.scopes {
		chat := &st.chat
		rollup.TotalMessages += chat.messageCount
		rollup.TotalDocuments += chat.documentCount
		rollup.TotalLinks += chat.linkCount
		if !chat.lastActivity.IsZero() && now.Sub(chat.lastActivity) < activeChatWindow {
			rollup.ActiveChats++
		}
		for id := range chat.activeUsers {
			users.add(id)
		}
	}
	rollup.TotalActiveUsers = len(users)
	return rollup
}

// DocumentStatistics returns the document view of scope.
func (s *AnalyticsStore) DocumentStatistics(scope string) model.DocumentStatistics {
	scope = normalizeScope(scope)

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	view := model.DocumentStatistics{
		Scope:           scope,
		Types:           map[string]int64{},
		UploadHistory:   []model.UploadRecord{},
		RecentUploads:   []model.UploadRecord{},
		ProcessingTimes: []float64{},
		AccessCount:     map[string]int64{},
		SearchQueries:   []model.SearchRecord{},
	}

	st, ok := s.scopes[scope]
	if !ok {
		return view
	}
	docs := &st.documents

	view.Count = docs.count
	view.TotalSize = docs.totalSize
	maps.Copy(view.Types, docs.types)
	for _, e := range docs.uploadHistory {
		record := uploadRecord(e)
		view.UploadHistory = append(view.UploadHistory, record)
		if isRecent(now, e.at) {
			view.RecentUploads = append(view.RecentUploads, record)
		}
	}
	view.ProcessingTimes = append(view.ProcessingTimes, docs.processingTimes...)
	view.SuccessRate = model.SuccessCounts{Success: docs.success, Failure: docs.failure}
	maps.Copy(view.AccessCount, docs.accessCount)
	for _, e := range docs.searchQueries {
		view.SearchQueries = append(view.SearchQueries, model.SearchRecord{
			Timestamp: model.FormatTimestamp(e.at),
			Query:     e.query,
			DocID:     e.docID,
		})
	}
	return view
}

// DocumentRollup aggregates document stats across every scope.
func (s *AnalyticsStore) DocumentRollup() model.DocumentRollup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentRollupLocked(s.now())
}

func (s *AnalyticsStore) documentRollupLocked(now time.Time) model.DocumentRollup {
	rollup := model.DocumentRollup{
		Types:         map[string]int64{},
		RecentUploads: []model.UploadRecord{},
	}
	var recent []uploadEntry
	for _, key := range s.sortedScopeKeys() {
		docs := &s.scopes[key].documents
		rollup.TotalDocuments += docs.count
		rollup.TotalSize += docs.totalSize
		for fileType, count := range docs.types {
			rollup.Types[fileType] += count
		}
		for _, e := range docs.uploadHistory {
			if isRecent(now, e.at) {
				recent = append(recent, e)
			}
		}
	}
	slices.SortStableFunc(recent, func(a, b uploadEntry) int { return b.at.Compare(a.at) })
	for _, e := range recent {
		rollup.RecentUploads = append(rollup.RecentUploads, uploadRecord(e))
	}
	return rollup
}

// LinkStatistics returns the link view of scope.
func (s *AnalyticsStore) LinkStatistics(scope string) model.LinkStatistics {
	scope = normalizeScope(scope)

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	view := model.LinkStatistics{
		Scope:        scope,
		Domains:      map[string]int64{},
		ShareHistory: []model.ShareRecord{},
		RecentShares: []model.RecentShare{},
		HealthStatus: map[string]model.LinkHealth{},
	}

	st, ok := s.scopes[scope]
	if !ok {
		return view
	}
	links := &st.links

	view.Count = links.count
	maps.Copy(view.Domains, links.domains)
	for _, e := range links.shareHistory {
		view.ShareHistory = append(view.ShareHistory, model.ShareRecord{
			ID:        e.id,
			Title:     e.title,
			URL:       e.url,
			Timestamp: model.FormatTimestamp(e.at),
			UserID:    e.userID,
			Domain:    e.domain,
		})
		if isRecent(now, e.at) {
			view.RecentShares = append(view.RecentShares, recentShare(e))
		}
	}
	for domain, h := range links.healthStatus {
		view.HealthStatus[domain] = model.LinkHealth{Active: h.active, LastCheck: model.FormatOptionalTimestamp(h.lastCheck)}
	}
	return view
}

// LinkRollup aggregates link stats across every scope.
func (s *AnalyticsStore) LinkRollup() model.LinkRollup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linkRollupLocked(s.now())
}

func (s *AnalyticsStore) linkRollupLocked(now time.Time) model.LinkRollup {
	rollup := model.LinkRollup{
		Domains:      map[string]int64{},
		RecentShares: []model.RecentShare{},
	}
	var recent []shareEntry
	for _, key := range s.sortedScopeKeys() {
		links := &s.scopes[key].links
		rollup.TotalLinks += links.count
		for domain, count := range links.domains {
			rollup.Domains[domain] += count
		}
		for _, e := range links.shareHistory {
			if isRecent(now, e.at) {
				recent = append(recent, e)
			}
		}
	}
	slices.SortStableFunc(recent, func(a, b shareEntry) int { return b.at.Compare(a.at) })
	for _, e := range recent {
		rollup.RecentShares = append(rollup.RecentShares, recentShare(e))
	}
	return rollup
}

// UsageStatistics returns the global usage view. Buckets whose calendar
// period has ended read as empty even before the next write resets them.
func (s *AnalyticsStore) UsageStatistics() model.UsageStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usageLocked(s.now())
}

func (s *AnalyticsStore) usageLocked(now time.Time) model.UsageStatistics {
	cur := s.usage.current(now)
	view := model.UsageStatistics{
		DailyActiveUsers:   len(cur.daily),
		WeeklyActiveUsers:  len(cur.weekly),
		MonthlyActiveUsers: len(cur.monthly),
		ConcurrentUsers:    cur.concurrent,
		PeakHours:          cur.peakHours,
		ErrorRates:         maps.Clone(s.usage.errorRates),
	}

	var sum float64
	var n int
	for _, rt := range s.usage.responseTimes {
		if isRecent(now, rt.at) {
			sum += rt.value
			n++
		}
	}
	if n > 0 {
		view.AverageResponseTime = sum / float64(n)
	}
	return view
}

// EnhancedStatistics returns the derived cross-cutting metrics.
func (s *AnalyticsStore) EnhancedStatistics() model.EnhancedStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enhancedLocked(s.now())
}

func (s *AnalyticsStore) enhancedLocked(now time.Time) model.EnhancedStatistics {
	var (
		responseTimes []float64
		satisfaction  []float64
		completed     int64
		abandoned     int64
		succeeded     int64
		processed     int64
	)
	topics := map[string]int64{}
	types := map[string]int64{}
	accessed := map[string]int64{}

	for _, key := range s.sortedScopeKeys() {
		st := s.scopes[key]
		chat := &st.chat
		responseTimes = append(responseTimes, chat.responseTimes...)
		satisfaction = append(satisfaction, chat.satisfactionScores...)
		completed += chat.completionStatus["completed"]
		abandoned += chat.completionStatus["abandoned"]
		for topic, count := range chat.topics {
			topics[topic] += count
		}

		docs := &st.documents
		succeeded += docs.success
		processed += docs.success + docs.failure
		for fileType, count := range docs.types {
			types[fileType] += count
		}
		for docID, count := range docs.accessCount {
			accessed[docID] += count
		}
	}

	rates := model.CompletionRates{}
	if finished := completed + abandoned; finished > 0 {
		rates.Completed = float64(completed) / float64(finished)
		rates.Abandoned = float64(abandoned) / float64(finished)
	}

	durations := make([]float64, 0, len(s.usage.sessionDurations))
	for _, session := range s.usage.sessionDurations {
		durations = append(durations, session.duration)
	}

	return model.EnhancedStatistics{
		ChatMetrics: model.ChatMetrics{
			AvgResponseTime: mean(responseTimes),
			CompletionRates: rates,
			TopTopics:       topItems(topics, topItemsLimit),
			AvgSatisfaction: mean(satisfaction),
		},
		DocumentMetrics: model.DocumentMetrics{
			ProcessingSuccessRate: ratio(succeeded, processed),
			PopularTypes:          topItems(types, topItemsLimit),
			MostAccessed:          topItems(accessed, topItemsLimit),
		},
		UserMetrics: model.UserMetrics{
			RetentionRates:     s.retentionRatesLocked(now),
			AvgSessionDuration: mean(durations),
			PopularFeatures:    topItems(s.usage.featureUsage, topItemsLimit),
		},
	}
}

func (s *AnalyticsStore) retentionRatesLocked(now time.Time) model.RetentionRates {
	day, week, month := periodKeys(now)
	cur := s.usage.current(now)
	buckets := &s.usage.retention
	return model.RetentionRates{
		Daily:   ratio(int64(len(buckets.daily[day])), int64(len(cur.daily))),
		Weekly:  ratio(int64(len(buckets.weekly[week])), int64(len(cur.weekly))),
		Monthly: ratio(int64(len(buckets.monthly[month])), int64(len(cur.monthly))),
	}
}

// Snapshot computes every rollup view under a single read lock.
func (s *AnalyticsStore) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	return model.Snapshot{
		Chat:     s.chatRollupLocked(now),
		Document: s.documentRollupLocked(now),
		Link:     s.linkRollupLocked(now),
		Usage:    s.usageLocked(now),
		Enhanced: s.enhancedLocked(now),
	}
}

// activeSets is the usage state as seen at a given instant.
type activeSets struct {
	daily      userSet
	weekly     userSet
	monthly    userSet
	peakHours  [24]int64
	concurrent int
}

// current applies pending calendar rollovers to a read-only view.
func (u *usageStats) current(now time.Time) activeSets {
	day, week, month := periodKeys(now)
	cur := activeSets{
		daily:      u.dailyActive,
		weekly:     u.weeklyActive,
		monthly:    u.monthlyActive,
		peakHours:  u.peakHours,
		concurrent: u.concurrentUsers,
	}
	if day > u.periods.day {
		cur.daily = nil
		cur.peakHours = [24]int64{}
		cur.concurrent = 0
	}
	if week > u.periods.week {
		cur.weekly = nil
	}
	if month > u.periods.month {
		cur.monthly = nil
	}
	return cur
}

func (s *AnalyticsStore) sortedScopeKeys() []string {
	return slices.Sorted(maps.Keys(s.scopes))
}

func uploadRecord(e uploadEntry) model.UploadRecord {
	return model.UploadRecord{
		ID:        e.id,
		Name:      e.name,
		Timestamp: model.FormatTimestamp(e.at),
		UserID:    e.userID,
		FileType:  e.fileType,
		FileSize:  e.fileSize,
	}
}

func recentShare(e shareEntry) model.RecentShare {
	return model.RecentShare{
		ID:        e.id,
		Title:     e.title,
		URL:       e.url,
		Timestamp: model.FormatTimestamp(e.at),
	}
}

func isRecent(now, at time.Time) bool {
	return now.Sub(at) < recentWindow
}

func sortedMembers(set userSet) []string {
	members := make([]string, 0, len(set))
	for id := range set {
		members = append(members, id)
	}
	slices.Sort(members)
	return members
}

// topItems ranks counts descending, breaking ties by name so output is stable.
func topItems(counts map[string]int64, limit int) []model.RankedItem {
	items := make([]model.RankedItem, 0, len(counts))
	for name, count := range counts {
		items = append(items, model.RankedItem{Name: name, Count: count})
	}
	slices.SortFunc(items, func(a, b model.RankedItem) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
