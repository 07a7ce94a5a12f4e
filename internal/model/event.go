package model

import (
	"time"
)

// EventKind names a tracked analytics event.
type EventKind string

const (
	KindChatActivity       EventKind = "chat_activity"
	KindDocumentUpload     EventKind = "document_upload"
	KindLinkShare          EventKind = "link_share"
	KindUserActivity       EventKind = "user_activity"
	KindResponseTime       EventKind = "response_time"
	KindError              EventKind = "error"
	KindChatCompletion     EventKind = "chat_completion"
	KindSatisfaction       EventKind = "satisfaction"
	KindDocumentProcessing EventKind = "document_processing"
	KindDocumentAccess     EventKind = "document_access"
	KindLinkHealth         EventKind = "link_health"
	KindUserSession        EventKind = "user_session"
	KindUserRetention      EventKind = "user_retention"
)

// DefaultScope is used when an event carries no conversation id.
const DefaultScope = "default"

// EventRequest represents an incoming tracking payload.
type EventRequest struct {
	Kind         string   `json:"kind"`
	Scope        string   `json:"scope"`
	UserID       string   `json:"user_id"`
	MessageCount *int     `json:"message_count"`
	FileType     string   `json:"file_type"`
	FileSize     *int64   `json:"file_size"`
	Domain       string   `json:"domain"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Value        *float64 `json:"value"`
	ErrorKind    string   `json:"error_kind"`
	Status       string   `json:"status"`
	Topic        string   `json:"topic"`
	DocID        string   `json:"doc_id"`
	Success      *bool    `json:"success"`
	Active       *bool    `json:"active"`
	Query        string   `json:"query"`
	Features     []string `json:"features"`
}

// Event is a validated tracked event. It is applied to the metric store and,
// when the archive is enabled, exported as one row.
type Event struct {
	Kind      EventKind
	Scope     string
	UserID    string
	Timestamp time.Time
	Details   EventDetails
}

// EventDetails carries the kind-specific fields of an Event.
type EventDetails struct {
	MessageCount int      `json:"message_count,omitempty"`
	FileType     string   `json:"file_type,omitempty"`
	FileSize     int64    `json:"file_size,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	Title        string   `json:"title,omitempty"`
	URL          string   `json:"url,omitempty"`
	Value        float64  `json:"value,omitempty"`
	ErrorKind    string   `json:"error_kind,omitempty"`
	Status       string   `json:"status,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	DocID        string   `json:"doc_id,omitempty"`
	Success      bool     `json:"success"`
	Active       bool     `json:"active"`
	Query        string   `json:"query,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// EventResult is returned when an event is accepted.
type EventResult struct {
	Status string `json:"status"`
}
