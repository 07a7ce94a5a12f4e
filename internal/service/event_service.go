package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"chat-analytics-service/internal/model"
)

// ValidationError represents user input issues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func required(field string) error {
	return &ValidationError{Message: field + " is required"}
}

// eventService validates tracking requests and applies them to the store.
type eventService struct {
	store *AnalyticsStore
	now   func() time.Time
}

type EventService interface {
	BuildEvent(req model.EventRequest) (model.Event, error)
	ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error)
}

// NewEventService constructs an eventService.
func NewEventService(store *AnalyticsStore) EventService {
	return &eventService{
		store: store,
		now:   time.Now,
	}
}

// BuildEvent validates and constructs an Event from an incoming request.
func (s *eventService) BuildEvent(req model.EventRequest) (model.Event, error) {
	if req.Kind == "" {
		return model.Event{}, required("kind")
	}

	event := model.Event{
		Kind:      model.EventKind(req.Kind),
		Scope:     normalizeScope(strings.TrimSpace(req.Scope)),
		UserID:    strings.TrimSpace(req.UserID),
		Timestamp: s.now().UTC(),
	}
	d := &event.Details

	switch event.Kind {
	case model.KindChatActivity:
		d.MessageCount = 1
		if req.MessageCount != nil {
			if *req.MessageCount < 1 {
				return model.Event{}, &ValidationError{Message: "message_count must be positive"}
			}
			d.MessageCount = *req.MessageCount
		}

	case model.KindDocumentUpload:
		if req.FileType == "" {
			return model.Event{}, required("file_type")
		}
		if req.FileSize == nil {
			return model.Event{}, required("file_size")
		}
		if *req.FileSize < 0 {
			return model.Event{}, &ValidationError{Message: "file_size cannot be negative"}
		}
		d.FileType, d.FileSize = req.FileType, *req.FileSize

	case model.KindLinkShare:
		domain := req.Domain
		if domain == "" {
			domain = domainFromURL(req.URL)
		}
		if domain == "" {
			return model.Event{}, required("domain")
		}
		d.Domain, d.Title, d.URL = domain, req.Title, req.URL

	case model.KindUserActivity, model.KindUserRetention:
		if event.UserID == "" {
			return model.Event{}, required("user_id")
		}

	case model.KindResponseTime:
		v, err := nonNegative(req.Value)
		if err != nil {
			return model.Event{}, err
		}
		d.Value = v

	case model.KindError:
		if req.ErrorKind == "" {
			return model.Event{}, required("error_kind")
		}
		d.ErrorKind = req.ErrorKind

	case model.KindChatCompletion:
		if req.Status == "" {
			return model.Event{}, required("status")
		}
		v, err := nonNegative(req.Value)
		if err != nil {
			return model.Event{}, err
		}
		d.Status, d.Value, d.Topic = req.Status, v, req.Topic

	case model.KindSatisfaction:
		if req.Value == nil {
			return model.Event{}, required("value")
		}
		d.Value = *req.Value

	case model.KindDocumentProcessing:
		if req.DocID == "" {
			return model.Event{}, required("doc_id")
		}
		if req.Success == nil {
			return model.Event{}, required("success")
		}
		v, err := nonNegative(req.Value)
		if err != nil {
			return model.Event{}, err
		}
		d.DocID, d.Success, d.Value = req.DocID, *req.Success, v

	case model.KindDocumentAccess:
		if req.DocID == "" {
			return model.Event{}, required("doc_id")
		}
		d.DocID, d.Query = req.DocID, req.Query

	case model.KindLinkHealth:
		if req.Domain == "" {
			return model.Event{}, required("domain")
		}
		if req.Active == nil {
			return model.Event{}, required("active")
		}
		d.Domain, d.Active = req.Domain, *req.Active

	case model.KindUserSession:
		if event.UserID == "" {
			return model.Event{}, required("user_id")
		}
		v, err := nonNegative(req.Value)
		if err != nil {
			return model.Event{}, err
		}
		d.Value, d.Features = v, req.Features

	default:
		return model.Event{}, &ValidationError{Message: "unsupported kind"}
	}

	return event, nil
}

// ProcessEvent applies a validated event to the metric store.
func (s *eventService) ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error) {
	d := event.Details
	switch event.Kind {
	case model.KindChatActivity:
		s.store.TrackChatActivity(event.Scope, d.MessageCount, event.UserID)
	case model.KindDocumentUpload:
		s.store.TrackDocumentUpload(event.Scope, d.FileType, d.FileSize, event.UserID)
	case model.KindLinkShare:
		s.store.TrackLinkShare(event.Scope, d.Domain, event.UserID, d.Title, d.URL)
	case model.KindUserActivity:
		s.store.TrackUserActivity(event.UserID)
	case model.KindResponseTime:
		s.store.TrackResponseTime(d.Value)
	case model.KindError:
		s.store.TrackError(d.ErrorKind)
	case model.KindChatCompletion:
		s.store.TrackChatCompletion(event.Scope, d.Status, d.Value, d.Topic)
	case model.KindSatisfaction:
		s.store.TrackSatisfaction(event.Scope, d.Value)
	case model.KindDocumentProcessing:
		s.store.TrackDocumentProcessing(event.Scope, d.DocID, d.Success, d.Value)
	case model.KindDocumentAccess:
		s.store.TrackDocumentAccess(event.Scope, d.DocID, d.Query)
	case model.KindLinkHealth:
		s.store.TrackLinkHealth(event.Scope, d.Domain, d.Active)
	case model.KindUserSession:
		s.store.TrackUserSession(event.UserID, d.Value, d.Features)
	case model.KindUserRetention:
		s.store.TrackUserRetention(event.UserID)
	default:
		return model.EventResult{}, &ValidationError{Message: "unsupported kind"}
	}
	return model.EventResult{Status: "accepted"}, nil
}

func nonNegative(value *float64) (float64, error) {
	if value == nil {
		return 0, required("value")
	}
	if *value < 0 {
		return 0, &ValidationError{Message: "value cannot be negative"}
	}
	return *value, nil
}

func domainFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
