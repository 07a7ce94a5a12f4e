package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-analytics-service/internal/service"
)

type StreamController interface {
	Upgrade(c *fiber.Ctx) error
	Stream(conn *websocket.Conn)
}

// streamController serves the live subscription channel.
type streamController struct {
	engine *service.Engine
	logger *zap.Logger
}

// NewStreamController builds a StreamController on engine.
func NewStreamController(engine *service.Engine, logger *zap.Logger) StreamController {
	return &streamController{engine: engine, logger: logger}
}

// Upgrade rejects plain HTTP requests to the subscription path.
func (h *streamController) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream registers the connection, then answers client frames until the
// connection fails or the engine closes it.
func (h *streamController) Stream(conn *websocket.Conn) {
	sub := newWSSubscriber(conn)
	ctx := context.Background()
	logger := h.logger.With(zap.String("subscriber", sub.ID()))

	defer func() {
		sub.release()
		h.engine.Unregister(sub)
	}()

	if err := h.engine.Register(ctx, sub); err != nil {
		logger.Warn("initial snapshot failed", zap.Error(err))
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("subscriber read ended", zap.Error(err))
			return
		}
		if err := h.engine.HandleClientMessage(ctx, sub, raw); err != nil {
			return
		}
	}
}

var errSubscriberClosed = errors.New("subscriber connection closed")

// wsSubscriber adapts a WebSocket connection to service.Subscriber. Writes
// are serialized because replies and broadcasts share the connection.
// The connection is pooled and reused once Stream returns, so a released
// subscriber must never touch it again.
type wsSubscriber struct {
	id        string
	conn      *websocket.Conn
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func newWSSubscriber(conn *websocket.Conn) *wsSubscriber {
	return &wsSubscriber{id: uuid.NewString(), conn: conn}
}

func (s *wsSubscriber) ID() string {
	return s.id
}

func (s *wsSubscriber) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSubscriberClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close does not take the write lock so it can interrupt a blocked Send.
// After release it is a no-op.
func (s *wsSubscriber) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// release closes the connection, waits out any in-flight Send and marks the
// subscriber closed. It must run before Stream returns the connection.
func (s *wsSubscriber) release() {
	_ = s.Close()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
