package service

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Subscriber is a live delivery channel, typically one WebSocket connection.
// Send must honor ctx's deadline; Close must unblock a pending Send.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Subscription is a registered subscriber and a copy of its topic filter.
type Subscription struct {
	Subscriber Subscriber
	Topics     []string
}

type registryEntry struct {
	subscriber Subscriber
	topics     map[string]struct{}
}

// SubscriberRegistry tracks open subscribers and their topic filters.
type SubscriberRegistry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

// NewSubscriberRegistry returns an empty registry.
func NewSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{entries: map[string]*registryEntry{}}
}

// Register adds sub with an empty filter, so it receives every category.
// Registering an already registered subscriber keeps its filter.
func (r *SubscriberRegistry) Register(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[sub.ID()]; ok {
		return
	}
	r.entries[sub.ID()] = &registryEntry{subscriber: sub, topics: map[string]struct{}{}}
}

// Unregister removes sub and reports whether it was registered. Unknown
// subscribers are ignored.
func (r *SubscriberRegistry) Unregister(sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lookup(sub); !ok {
		return false
	}
	delete(r.entries, sub.ID())
	return true
}

// Subscribe adds topics to sub's filter. It reports false when sub is not
// registered.
func (r *SubscriberRegistry) Subscribe(sub Subscriber, topics []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.lookup(sub)
	if !ok {
		return false
	}
	for _, topic := range topics {
		if topic = normalizeTopic(topic); topic != "" {
			entry.topics[topic] = struct{}{}
		}
	}
	return true
}

// Unsubscribe removes topics from sub's filter.
func (r *SubscriberRegistry) Unsubscribe(sub Subscriber, topics []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.lookup(sub)
	if !ok {
		return false
	}
	for _, topic := range topics {
		delete(entry.topics, normalizeTopic(topic))
	}
	return true
}

// Topics returns sub's filter, sorted. Unknown subscribers have none.
func (r *SubscriberRegistry) Topics(sub Subscriber) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.lookup(sub)
	if !ok {
		return nil
	}
	return sortedTopics(entry.topics)
}

// IsRegistered reports whether sub is currently registered.
func (r *SubscriberRegistry) IsRegistered(sub Subscriber) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lookup(sub)
	return ok
}

// lookup finds sub's entry. A different subscriber reusing the same ID does
// not match. Callers hold r.mu.
func (r *SubscriberRegistry) lookup(sub Subscriber) (*registryEntry, bool) {
	entry, ok := r.entries[sub.ID()]
	if !ok || entry.subscriber != sub {
		return nil, false
	}
	return entry, true
}

// Len returns the number of registered subscribers.
func (r *SubscriberRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List copies every subscription so delivery can run without the lock.
func (r *SubscriberRegistry) List() []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := make([]Subscription, 0, len(r.entries))
	for _, entry := range r.entries {
		subs = append(subs, Subscription{Subscriber: entry.subscriber, Topics: sortedTopics(entry.topics)})
	}
	return subs
}

func sortedTopics(topics map[string]struct{}) []string {
	out := make([]string, 0, len(topics))
	for topic := range topics {
		out = append(out, topic)
	}
	slices.Sort(out)
	return out
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
