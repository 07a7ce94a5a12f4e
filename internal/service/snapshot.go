package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"chat-analytics-service/internal/model"
)

// EncodedSnapshot holds each snapshot category serialized once, keyed by
// category name. It is immutable and shared by every subscriber of a tick.
type EncodedSnapshot map[string]json.RawMessage

// EncodeSnapshot serializes every category of snap. The encoding is
// deterministic: map keys are emitted sorted and sets are sorted slices.
func EncodeSnapshot(snap model.Snapshot) (EncodedSnapshot, error) {
	categories := []struct {
		name  string
		value any
	}{
		{model.CategoryChat, snap.Chat},
		{model.CategoryDocument, snap.Document},
		{model.CategoryLink, snap.Link},
		{model.CategoryUsage, snap.Usage},
		{model.CategoryEnhanced, snap.Enhanced},
	}

	encoded := make(EncodedSnapshot, len(categories))
	for _, c := range categories {
		raw, err := json.Marshal(c.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		encoded[c.name] = raw
	}
	return encoded, nil
}

// Filter returns the JSON frame holding the categories topics select.
func (e EncodedSnapshot) Filter(topics []string) ([]byte, error) {
	if len(topics) == 0 {
		return json.Marshal(map[string]json.RawMessage(e))
	}
	filtered := make(map[string]json.RawMessage, len(e))
	for category, raw := range e {
		if MatchesTopics(category, topics) {
			filtered[category] = raw
		}
	}
	return json.Marshal(filtered)
}

// MatchesTopics reports whether category is delivered to a subscriber with
// the given topics. No topics means everything; otherwise any topic that is
// a case-insensitive substring of the category selects it.
func MatchesTopics(category string, topics []string) bool {
	if len(topics) == 0 {
		return true
	}
	category = strings.ToLower(category)
	for _, topic := range topics {
		if strings.Contains(category, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}
