package controller

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/observability"
	"chat-analytics-service/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type StreamControllerTestSuite struct {
	suite.Suite
	app    *fiber.App
	store  *service.AnalyticsStore
	engine *service.Engine
	url    string
}

func TestStreamControllerSuite(t *testing.T) {
	suite.Run(t, new(StreamControllerTestSuite))
}

func (s *StreamControllerTestSuite) SetupTest() {
	s.store = service.NewAnalyticsStore()
	// Long interval: tests drive broadcasts explicitly.
	s.engine = service.NewEngine(s.store, service.EngineConfig{
		CleanupInterval:      time.Hour,
		BroadcastInterval:    time.Hour,
		SendTimeout:          time.Second,
		BroadcastConcurrency: 2,
	}, zap.NewNop(), observability.NewNopMetrics())

	ctrl := NewStreamController(s.engine, zap.NewNop())
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.app.Get("/analytics", ctrl.Upgrade, websocket.New(ctrl.Stream))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(s.T(), err)
	go func() { _ = s.app.Listener(ln) }()
	s.url = "ws://" + ln.Addr().String() + "/analytics"
}

func (s *StreamControllerTestSuite) TearDownTest() {
	s.engine.Shutdown()
	_ = s.app.Shutdown()
}

func (s *StreamControllerTestSuite) dial() *gws.Conn {
	conn, _, err := gws.DefaultDialer.Dial(s.url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *StreamControllerTestSuite) read(conn *gws.Conn) map[string]json.RawMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)

	var frame map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(raw, &frame))
	return frame
}

func (s *StreamControllerTestSuite) write(conn *gws.Conn, frame string) {
	s.Require().NoError(conn.WriteMessage(gws.TextMessage, []byte(frame)))
}

func (s *StreamControllerTestSuite) TestFirstFrameIsSnapshot() {
	s.store.TrackChatActivity("c1", 1, "u1")
	conn := s.dial()

	frame := s.read(conn)

	s.Len(frame, 5)
	var chat model.ChatRollup
	s.Require().NoError(json.Unmarshal(frame[model.CategoryChat], &chat))
	s.EqualValues(1, chat.TotalMessages)
	s.Eventually(func() bool { return s.engine.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)
}

func (s *StreamControllerTestSuite) TestProtocolReplies() {
	conn := s.dial()
	s.read(conn)

	s.write(conn, `{"type":"ping"}`)
	s.JSONEq(`"pong"`, string(s.read(conn)["type"]))

	s.write(conn, `not json`)
	reply := s.read(conn)
	s.JSONEq(`"error"`, string(reply["type"]))
	s.JSONEq(`"Invalid JSON message"`, string(reply["message"]))

	s.write(conn, `{"type":"subscribe","topics":"chat"}`)
	s.JSONEq(`"Topics must be a list"`, string(s.read(conn)["message"]))

	// The channel survives protocol errors.
	s.write(conn, `{"type":"ping"}`)
	s.JSONEq(`"pong"`, string(s.read(conn)["type"]))
}

func (s *StreamControllerTestSuite) TestSubscribeFiltersBroadcasts() {
	conn := s.dial()
	s.read(conn)

	s.write(conn, `{"type":"subscribe","topics":["link"]}`)
	reply := s.read(conn)
	s.JSONEq(`"subscribed"`, string(reply["type"]))
	s.JSONEq(`["link"]`, string(reply["topics"]))

	s.Require().NoError(s.engine.Broadcast(context.Background()))
	frame := s.read(conn)
	s.Len(frame, 1)
	s.Contains(frame, model.CategoryLink)

	s.write(conn, `{"type":"refresh"}`)
	s.Len(s.read(conn), 5)
}

func (s *StreamControllerTestSuite) TestClientCloseUnregisters() {
	conn := s.dial()
	s.read(conn)
	s.Eventually(func() bool { return s.engine.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)

	s.Require().NoError(conn.Close())

	s.Eventually(func() bool { return s.engine.Registry().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (s *StreamControllerTestSuite) TestReleasedSubscriberCannotWriteToReusedConnection() {
	first := s.dial()
	s.read(first)
	s.Eventually(func() bool { return s.engine.Registry().Len() == 1 }, time.Second, 10*time.Millisecond)
	stale := s.engine.Registry().List()[0].Subscriber

	s.Require().NoError(first.Close())
	s.Eventually(func() bool { return s.engine.Registry().Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		second := s.dial()
		s.read(second)

		err := stale.Send(context.Background(), []byte(`{"from":"released"}`))
		s.ErrorIs(err, errSubscriberClosed)
		_ = stale.Close()

		s.write(second, `{"type":"ping"}`)
		s.JSONEq(`"pong"`, string(s.read(second)["type"]))
		s.Require().NoError(second.Close())
		s.Eventually(func() bool { return s.engine.Registry().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	}
}

func (s *StreamControllerTestSuite) TestEngineShutdownClosesConnection() {
	conn := s.dial()
	s.read(conn)

	s.engine.Shutdown()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	s.Error(err)
}

func (s *StreamControllerTestSuite) TestPlainRequestRequiresUpgrade() {
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/analytics", nil), -1)
	s.Require().NoError(err)
	s.Equal(fiber.StatusUpgradeRequired, resp.StatusCode)
}
