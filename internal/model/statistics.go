package model

import "time"

// TimestampLayout is the single textual wire format for timestamps.
const TimestampLayout = time.RFC3339Nano

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FormatOptionalTimestamp renders t, or nil when t is the zero time.
func FormatOptionalTimestamp(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := FormatTimestamp(t)
	return &s
}

// MessageRecord is one message_history entry.
type MessageRecord struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Count     int    `json:"count"`
}

// ChatStatistics is the per-scope chat view.
type ChatStatistics struct {
	Scope              string           `json:"scope"`
	MessageCount       int64            `json:"message_count"`
	LastActivity       *string          `json:"last_activity"`
	DocumentCount      int64            `json:"document_count"`
	LinkCount          int64            `json:"link_count"`
	ActiveUsers        []string         `json:"active_users"`
	ActiveUsersCount   int              `json:"active_users_count"`
	MessageHistory     []MessageRecord  `json:"message_history"`
	RecentMessages     []MessageRecord  `json:"recent_messages"`
	CompletionStatus   map[string]int64 `json:"completion_status"`
	ResponseTimes      []float64        `json:"response_times"`
	Topics             map[string]int64 `json:"topics"`
	SatisfactionScores []float64        `json:"satisfaction_scores"`
}

// ChatRollup aggregates chat stats across all scopes.
type ChatRollup struct {
	TotalChats       int   `json:"total_chats"`
	TotalMessages    int64 `json:"total_messages"`
	TotalDocuments   int64 `json:"total_documents"`
	TotalLinks       int64 `json:"total_links"`
	ActiveChats      int   `json:"active_chats"`
	TotalActiveUsers int   `json:"total_active_users"`
}

// UploadRecord is one upload_history entry.
type UploadRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	FileType  string `json:"file_type"`
	FileSize  int64  `json:"file_size"`
}

// SearchRecord is one search_queries entry.
type SearchRecord struct {
	Timestamp string `json:"timestamp"`
	Query     string `json:"query"`
	DocID     string `json:"doc_id"`
}

// SuccessCounts holds document processing outcomes.
type SuccessCounts struct {
	Success int64 `json:"success"`
	Failure int64 `json:"failure"`
}

// DocumentStatistics is the per-scope document view.
type DocumentStatistics struct {
	Scope           string           `json:"scope"`
	Count           int64            `json:"count"`
	TotalSize       int64            `json:"total_size"`
	Types           map[string]int64 `json:"types"`
	UploadHistory   []UploadRecord   `json:"upload_history"`
	RecentUploads   []UploadRecord   `json:"recent_uploads"`
	ProcessingTimes []float64        `json:"processing_times"`
	SuccessRate     SuccessCounts    `json:"success_rate"`
	AccessCount     map[string]int64 `json:"access_count"`
	SearchQueries   []SearchRecord   `json:"search_queries"`
}

// DocumentRollup aggregates document stats across all scopes.
type DocumentRollup struct {
	TotalDocuments int64            `json:"total_documents"`
	TotalSize      int64            `json:"total_size"`
	Types          map[string]int64 `json:"types"`
	RecentUploads  []UploadRecord   `json:"recent_uploads"`
}

// ShareRecord is one share_history entry.
type ShareRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Domain    string `json:"domain"`
}

// RecentShare is the reduced share entry exposed in recent_shares.
type RecentShare struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// LinkHealth is the last known health of a domain.
type LinkHealth struct {
	Active    bool    `json:"active"`
	LastCheck *string `json:"last_check"`
}

// LinkStatistics is the per-scope link view.
type LinkStatistics struct {
	Scope        string                `json:"scope"`
	Count        int64                 `json:"count"`
	Domains      map[string]int64      `json:"domains"`
	ShareHistory []ShareRecord         `json:"share_history"`
	RecentShares []RecentShare         `json:"recent_shares"`
	HealthStatus map[string]LinkHealth `json:"health_status"`
}

// LinkRollup aggregates link stats across all scopes.
type LinkRollup struct {
	TotalLinks   int64            `json:"total_links"`
	Domains      map[string]int64 `json:"domains"`
	RecentShares []RecentShare    `json:"recent_shares"`
}

// UsageStatistics is the global usage view.
type UsageStatistics struct {
	DailyActiveUsers    int              `json:"daily_active_users"`
	WeeklyActiveUsers   int              `json:"weekly_active_users"`
	MonthlyActiveUsers  int              `json:"monthly_active_users"`
	ConcurrentUsers     int              `json:"concurrent_users"`
	PeakHours           [24]int64        `json:"peak_hours"`
	AverageResponseTime float64          `json:"average_response_time"`
	ErrorRates          map[string]int64 `json:"error_rates"`
}

// RankedItem is one entry of a top-N list.
type RankedItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CompletionRates splits finished chats into completed and abandoned.
type CompletionRates struct {
	Completed float64 `json:"completed"`
	Abandoned float64 `json:"abandoned"`
}

// RetentionRates are returning users over active users per calendar bucket.
type RetentionRates struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

// ChatMetrics is the chat section of EnhancedStatistics.
type ChatMetrics struct {
	AvgResponseTime float64         `json:"avg_response_time"`
	CompletionRates CompletionRates `json:"completion_rates"`
	TopTopics       []RankedItem    `json:"top_topics"`
	AvgSatisfaction float64         `json:"avg_satisfaction"`
}

// DocumentMetrics is the document section of EnhancedStatistics.
type DocumentMetrics struct {
	ProcessingSuccessRate float64      `json:"processing_success_rate"`
	PopularTypes          []RankedItem `json:"popular_types"`
	MostAccessed          []RankedItem `json:"most_accessed"`
}

// UserMetrics is the user section of EnhancedStatistics.
type UserMetrics struct {
	RetentionRates     RetentionRates `json:"retention_rates"`
	AvgSessionDuration float64        `json:"avg_session_duration"`
	PopularFeatures    []RankedItem   `json:"popular_features"`
}

// EnhancedStatistics holds derived cross-cutting metrics.
type EnhancedStatistics struct {
	ChatMetrics     ChatMetrics     `json:"chat_metrics"`
	DocumentMetrics DocumentMetrics `json:"document_metrics"`
	UserMetrics     UserMetrics     `json:"user_metrics"`
}

// Snapshot categories, as named on the subscription channel.
const (
	CategoryChat     = "chatStats"
	CategoryDocument = "documentStats"
	CategoryLink     = "linkStats"
	CategoryUsage    = "usageStats"
	CategoryEnhanced = "enhancedStats"
)

// Snapshot is a point-in-time copy of every rollup view.
type Snapshot struct {
	Chat     ChatRollup
	Document DocumentRollup
	Link     LinkRollup
	Usage    UsageStatistics
	Enhanced EnhancedStatistics
}
