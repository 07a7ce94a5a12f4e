package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var errClosed = errors.New("subscriber closed")

// recordingSubscriber keeps every frame it is sent. A non-nil failWith makes
// Send fail; block makes Send wait for ctx.
type recordingSubscriber struct {
	id       string
	failWith error
	block    bool

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newRecordingSubscriber() *recordingSubscriber {
	return &recordingSubscriber{id: uuid.NewString()}
}

func (r *recordingSubscriber) ID() string { return r.id }

func (r *recordingSubscriber) Send(ctx context.Context, payload []byte) error {
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.failWith != nil {
		return r.failWith
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed
	}
	r.frames = append(r.frames, append([]byte(nil), payload...))
	return nil
}

func (r *recordingSubscriber) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSubscriber) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func (r *recordingSubscriber) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// lastFrame decodes the most recent frame into a generic object.
func (r *recordingSubscriber) lastFrame() map[string]json.RawMessage {
	frames := r.Frames()
	if len(frames) == 0 {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(frames[len(frames)-1], &out); err != nil {
		return nil
	}
	return out
}

func frameKeys(frame map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(frame))
	for key := range frame {
		keys = append(keys, key)
	}
	return keys
}
