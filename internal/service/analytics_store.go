package service

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/observability"
)

const (
	shareHistoryCap   = 100
	responseTimeCap   = 1000
	defaultHistoryCap = 5000
	defaultRetention  = 30 * 24 * time.Hour
	recentWindow      = time.Hour
	activeChatWindow  = 7 * 24 * time.Hour
	topItemsLimit     = 5
	unknownLabel      = "unknown"
)

// EventSink receives every event applied to the store. Enqueue must not block.
type EventSink interface {
	Enqueue(event model.Event)
}

type messageEntry struct {
	at     time.Time
	userID string
	count  int
}

type uploadEntry struct {
	id       string
	name     string
	at       time.Time
	userID   string
	fileType string
	fileSize int64
}

type searchEntry struct {
	at    time.Time
	query string
	docID string
}

type shareEntry struct {
	id     string
	title  string
	url    string
	at     time.Time
	userID string
	domain string
}

type healthEntry struct {
	active    bool
	lastCheck time.Time
}

type timedValue struct {
	at    time.Time
	value float64
}

type sessionEntry struct {
	userID   string
	duration float64
	at       time.Time
}

type userSet map[string]struct{}

func (s userSet) add(id string) {
	s[id] = struct{}{}
}

type chatStats struct {
	messageCount       int64
	lastActivity       time.Time
	documentCount      int64
	linkCount          int64
	activeUsers        userSet
	messageHistory     []messageEntry
	completionStatus   map[string]int64
	responseTimes      []float64
	topics             map[string]int64
	satisfactionScores []float64
}

type documentStats struct {
	count           int64
	totalSize       int64
	types           map[string]int64
	uploadHistory   []uploadEntry
	processingTimes []float64
	success         int64
	failure         int64
	accessCount     map[string]int64
	searchQueries   []searchEntry
}

type linkStats struct {
	count        int64
	domains      map[string]int64
	shareHistory []shareEntry
	healthStatus map[string]healthEntry
}

// scopeStats groups everything recorded for one conversation. It is evicted
// as a unit once lastWrite falls outside the retention window.
type scopeStats struct {
	chat      chatStats
	documents documentStats
	links     linkStats
	lastWrite time.Time
}

func newScopeStats() *scopeStats {
	return &scopeStats{
		chat: chatStats{
			activeUsers:      userSet{},
			completionStatus: map[string]int64{},
			topics:           map[string]int64{},
		},
		documents: documentStats{
			types:       map[string]int64{},
			accessCount: map[string]int64{},
		},
		links: linkStats{
			domains:      map[string]int64{},
			healthStatus: map[string]healthEntry{},
		},
	}
}

// calendarPeriods holds the period key each activity bucket was last reset for.
type calendarPeriods struct {
	day   string
	week  string
	month string
}

type retentionBuckets struct {
	daily   map[string]userSet
	weekly  map[string]userSet
	monthly map[string]userSet
}

type usageStats struct {
	dailyActive      userSet
	weeklyActive     userSet
	monthlyActive    userSet
	peakHours        [24]int64
	concurrentUsers  int
	responseTimes    []timedValue
	errorRates       map[string]int64
	sessionDurations []sessionEntry
	featureUsage     map[string]int64
	retention        retentionBuckets
	periods          calendarPeriods
}

func newUsageStats(now time.Time) usageStats {
	day, week, month := periodKeys(now)
	return usageStats{
		dailyActive:   userSet{},
		weeklyActive:  userSet{},
		monthlyActive: userSet{},
		errorRates:    map[string]int64{},
		featureUsage:  map[string]int64{},
		retention: retentionBuckets{
			daily:   map[string]userSet{},
			weekly:  map[string]userSet{},
			monthly: map[string]userSet{},
		},
		periods: calendarPeriods{day: day, week: week, month: month},
	}
}

// AnalyticsStore holds all scoped and global aggregates behind one lock.
// Every write holds the lock for its whole multi-field update, so readers
// never observe a counter without its history entry.
type AnalyticsStore struct {
	mu     sync.RWMutex
	scopes map[string]*scopeStats
	usage  usageStats

	now        func() time.Time
	historyCap int
	retention  time.Duration
	sink       EventSink
	metrics    *observability.Metrics
}

// StoreOption configures an AnalyticsStore.
type StoreOption func(*AnalyticsStore)

// WithClock replaces time.Now as the store's time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *AnalyticsStore) {
		s.now = now
	}
}

// WithHistoryCap bounds every unbounded history log between cleanups.
func WithHistoryCap(limit int) StoreOption {
	return func(s *AnalyticsStore) {
		if limit > 0 {
			s.historyCap = limit
		}
	}
}

// WithRetentionWindow sets the maximum age of logged events.
func WithRetentionWindow(window time.Duration) StoreOption {
	return func(s *AnalyticsStore) {
		if window > 0 {
			s.retention = window
		}
	}
}

// WithEventSink forwards every applied event to sink.
func WithEventSink(sink EventSink) StoreOption {
	return func(s *AnalyticsStore) {
		s.sink = sink
	}
}

// WithStoreMetrics counts applied events by kind.
func WithStoreMetrics(metrics *observability.Metrics) StoreOption {
	return func(s *AnalyticsStore) {
		s.metrics = metrics
	}
}

// NewAnalyticsStore constructs an empty store.
func NewAnalyticsStore(opts ...StoreOption) *AnalyticsStore {
	s := &AnalyticsStore{
		scopes:     map[string]*scopeStats{},
		now:        time.Now,
		historyCap: defaultHistoryCap,
		retention:  defaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.usage = newUsageStats(s.now())
	return s
}

// RetentionWindow reports the configured maximum event age.
func (s *AnalyticsStore) RetentionWindow() time.Duration {
	return s.retention
}

// TrackChatActivity records messageCount messages in scope. Counts below one
// are recorded as one.
func (s *AnalyticsStore) TrackChatActivity(scope string, messageCount int, userID string) {
	if messageCount < 1 {
		messageCount = 1
	}
	scope = normalizeScope(scope)

	s.mu.Lock()
	now := s.now()
	chat := &s.scopeFor(scope, now).chat
	chat.messageCount += int64(messageCount)
	chat.lastActivity = now
	if userID != "" {
		chat.activeUsers.add(userID)
	}
	chat.messageHistory = appendCapped(chat.messageHistory, messageEntry{at: now, userID: userID, count: messageCount}, s.historyCap)
	s.mu.Unlock()

	s.emit(model.KindChatActivity, scope, userID, now, model.EventDetails{MessageCount: messageCount})
}

// TrackDocumentUpload records an uploaded document in scope.
func (s *AnalyticsStore) TrackDocumentUpload(scope, fileType string, fileSize int64, userID string) {
	scope = normalizeScope(scope)
	fileType = labelOrUnknown(fileType)
	if fileSize < 0 {
		fileSize = 0
	}

	s.mu.Lock()
	now := s.now()
	st := s.scopeFor(scope, now)
	st.chat.documentCount++
	docs := &st.documents
	docs.count++
	docs.totalSize += fileSize
	docs.types[fileType]++
	docs.uploadHistory = appendCapped(docs.uploadHistory, uploadEntry{
		id:       "doc_" + uuid.NewString(),
		name:     fmt.Sprintf("Document %d", docs.count),
		at:       now,
		userID:   userID,
		fileType: fileType,
		fileSize: fileSize,
	}, s.historyCap)
	s.mu.Unlock()

	s.emit(model.KindDocumentUpload, scope, userID, now, model.EventDetails{FileType: fileType, FileSize: fileSize})
}

// TrackLinkShare records a shared link in scope. share_history stays sorted
// newest first and never holds more than shareHistoryCap entries.
func (s *AnalyticsStore) TrackLinkShare(scope, domain, userID, title, url string) {
	scope = normalizeScope(scope)
	domain = labelOrUnknown(domain)
	if title == "" {
		title = "Link from " + domain
	}
	if url == "" {
		url = "https://" + domain
	}

	s.mu.Lock()
	now := s.now()
	st := s.scopeFor(scope, now)
	st.chat.linkCount++
	links := &st.links
	links.count++
	links.domains[domain]++
	links.shareHistory = insertShare(links.shareHistory, shareEntry{
		id:     "link_" + uuid.NewString(),
		title:  title,
		url:    url,
		at:     now,
		userID: userID,
		domain: domain,
	})
	s.mu.Unlock()

	s.emit(model.KindLinkShare, scope, userID, now, model.EventDetails{Domain: domain, Title: title, URL: url})
}

// TrackUserActivity marks userID active for the current day, week and month
// and counts the current hour. Empty ids are ignored.
func (s *AnalyticsStore) TrackUserActivity(userID string) {
	if userID == "" {
		return
	}

	s.mu.Lock()
	now := s.now()
	usage := &s.usage
	usage.rollCalendar(now)
	usage.dailyActive.add(userID)
	usage.weeklyActive.add(userID)
	usage.monthlyActive.add(userID)
	usage.peakHours[now.Hour()]++
	usage.concurrentUsers = len(usage.dailyActive)
	s.mu.Unlock()

	s.emit(model.KindUserActivity, "", userID, now, model.EventDetails{})
}

// TrackResponseTime records one response latency in seconds.
func (s *AnalyticsStore) TrackResponseTime(seconds float64) {
	s.mu.Lock()
	now := s.now()
	s.usage.responseTimes = appendCapped(s.usage.responseTimes, timedValue{at: now, value: seconds}, responseTimeCap)
	s.mu.Unlock()

	s.emit(model.KindResponseTime, "", "", now, model.EventDetails{Value: seconds})
}

// TrackError counts one occurrence of an error kind.
func (s *AnalyticsStore) TrackError(kind string) {
	kind = labelOrUnknown(kind)

	s.mu.Lock()
	now := s.now()
	s.usage.errorRates[kind]++
	s.mu.Unlock()

	s.emit(model.KindError, "", "", now, model.EventDetails{ErrorKind: kind})
}

// TrackChatCompletion records how a chat turn ended and how long it took.
func (s *AnalyticsStore) TrackChatCompletion(scope, status string, responseTime float64, topic string) {
	scope = normalizeScope(scope)
	status = labelOrUnknown(status)

	s.mu.Lock()
	now := s.now()
	chat := &s.scopeFor(scope, now).chat
	chat.completionStatus[status]++
	chat.responseTimes = appendCapped(chat.responseTimes, responseTime, s.historyCap)
	if topic != "" {
		chat.topics[topic]++
	}
	s.mu.Unlock()

	s.emit(model.KindChatCompletion, scope, "", now, model.EventDetails{Status: status, Value: responseTime, Topic: topic})
}

// TrackSatisfaction records a user feedback score for scope.
func (s *AnalyticsStore) TrackSatisfaction(scope string, score float64) {
	scope = normalizeScope(scope)

	s.mu.Lock()
	now := s.now()
	chat := &s.scopeFor(scope, now).chat
	chat.satisfactionScores = appendCapped(chat.satisfactionScores, score, s.historyCap)
	s.mu.Unlock()

	s.emit(model.KindSatisfaction, scope, "", now, model.EventDetails{Value: score})
}

// TrackDocumentProcessing records the outcome of extracting a document.
func (s *AnalyticsStore) TrackDocumentProcessing(scope, docID string, success bool, processingTime float64) {
	scope = normalizeScope(scope)

	s.mu.Lock()
	now := s.now()
	docs := &s.scopeFor(scope, now).documents
	if success {
		docs.success++
	} else {
		docs.failure++
	}
	docs.processingTimes = appendCapped(docs.processingTimes, processingTime, s.historyCap)
	s.mu.Unlock()

	s.emit(model.KindDocumentProcessing, scope, "", now, model.EventDetails{DocID: docID, Success: success, Value: processingTime})
}

// TrackDocumentAccess counts a read of docID and logs the query that found it.
func (s *AnalyticsStore) TrackDocumentAccess(scope, docID, searchQuery string) {
	scope = normalizeScope(scope)
	docID = labelOrUnknown(docID)

	s.mu.Lock()
	now := s.now()
	docs := &s.scopeFor(scope, now).documents
	docs.accessCount[docID]++
	if searchQuery != "" {
		docs.searchQueries = appendCapped(docs.searchQueries, searchEntry{at: now, query: searchQuery, docID: docID}, s.historyCap)
	}
	s.mu.Unlock()

	s.emit(model.KindDocumentAccess, scope, "", now, model.EventDetails{DocID: docID, Query: searchQuery})
}

// TrackLinkHealth stores the latest reachability check for domain.
func (s *AnalyticsStore) TrackLinkHealth(scope, domain string, active bool) {
	scope = normalizeScope(scope)
	domain = labelOrUnknown(domain)

	s.mu.Lock()
	now := s.now()
	s.scopeFor(scope, now).links.healthStatus[domain] = healthEntry{active: active, lastCheck: now}
	s.mu.Unlock()

	s.emit(model.KindLinkHealth, scope, "", now, model.EventDetails{Domain: domain, Active: active})
}

// TrackUserSession records a finished session and the features it used.
func (s *AnalyticsStore) TrackUserSession(userID string, duration float64, features []string) {
	s.mu.Lock()
	now := s.now()
	usage := &s.usage
	usage.sessionDurations = appendCapped(usage.sessionDurations, sessionEntry{userID: userID, duration: duration, at: now}, s.historyCap)
	for _, feature := range features {
		if feature != "" {
			usage.featureUsage[feature]++
		}
	}
	s.mu.Unlock()

	s.emit(model.KindUserSession, "", userID, now, model.EventDetails{Value: duration, Features: slices.Clone(features)})
}

// TrackUserRetention marks userID as returning in the current day, ISO week
// and month buckets. Empty ids are ignored.
func (s *AnalyticsStore) TrackUserRetention(userID string) {
	if userID == "" {
		return
	}

	s.mu.Lock()
	now := s.now()
	day, week, month := periodKeys(now)
	buckets := &s.usage.retention
	bucketFor(buckets.daily, day).add(userID)
	bucketFor(buckets.weekly, week).add(userID)
	bucketFor(buckets.monthly, month).add(userID)
	s.mu.Unlock()

	s.emit(model.KindUserRetention, "", userID, now, model.EventDetails{})
}

// scopeFor returns the stats of scope, creating them on first use.
// Callers must hold s.mu for writing.
func (s *AnalyticsStore) scopeFor(scope string, now time.Time) *scopeStats {
	st, ok := s.scopes[scope]
	if !ok {
		st = newScopeStats()
		s.scopes[scope] = st
	}
	st.lastWrite = now
	return st
}

func (s *AnalyticsStore) emit(kind model.EventKind, scope, userID string, at time.Time, details model.EventDetails) {
	if s.metrics != nil {
		s.metrics.TrackedEventsTotal.WithLabelValues(string(kind)).Inc()
	}
	if s.sink != nil {
		s.sink.Enqueue(model.Event{
			Kind:      kind,
			Scope:     scope,
			UserID:    userID,
			Timestamp: at,
			Details:   details,
		})
	}
}

func bucketFor(buckets map[string]userSet, key string) userSet {
	set, ok := buckets[key]
	if !ok {
		set = userSet{}
		buckets[key] = set
	}
	return set
}

// appendCapped appends entry and drops the oldest entries beyond limit.
func appendCapped[T any](log []T, entry T, limit int) []T {
	log = append(log, entry)
	if over := len(log) - limit; over > 0 {
		log = log[over:]
	}
	return log
}

// insertShare keeps history newest first and bounded by shareHistoryCap.
func insertShare(history []shareEntry, entry shareEntry) []shareEntry {
	history = append(history, entry)
	slices.SortStableFunc(history, func(a, b shareEntry) int {
		return b.at.Compare(a.at)
	})
	if len(history) > shareHistoryCap {
		history = history[:shareHistoryCap]
	}
	return history
}

func normalizeScope(scope string) string {
	if scope == "" {
		return model.DefaultScope
	}
	return scope
}

func labelOrUnknown(label string) string {
	if label == "" {
		return unknownLabel
	}
	return label
}
