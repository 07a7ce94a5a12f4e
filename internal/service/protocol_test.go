package service

import (
	"context"
	"testing"
	"time"

	"chat-analytics-service/internal/observability"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ProtocolTestSuite struct {
	suite.Suite

	engine *Engine
	sub    *recordingSubscriber
	ctx    context.Context
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolTestSuite))
}

func (s *ProtocolTestSuite) SetupTest() {
	s.engine = NewEngine(NewAnalyticsStore(), EngineConfig{
		CleanupInterval:      time.Hour,
		BroadcastInterval:    time.Hour,
		SendTimeout:          time.Second,
		BroadcastConcurrency: 1,
	}, zap.NewNop(), observability.NewNopMetrics())
	s.ctx = context.Background()
	s.sub = newRecordingSubscriber()
	s.Require().NoError(s.engine.Register(s.ctx, s.sub))
}

// send handles raw and returns the single reply frame it produced.
func (s *ProtocolTestSuite) send(raw string) string {
	before := len(s.sub.Frames())
	s.Require().NoError(s.engine.HandleClientMessage(s.ctx, s.sub, []byte(raw)))

	frames := s.sub.Frames()
	s.Require().Len(frames, before+1)
	return string(frames[len(frames)-1])
}

func (s *ProtocolTestSuite) TestPing() {
	s.JSONEq(`{"type":"pong"}`, s.send(`{"type":"ping"}`))
}

func (s *ProtocolTestSuite) TestSubscribeAndUnsubscribe() {
	s.JSONEq(`{"type":"subscribed","topics":["Chat","usage"]}`, s.send(`{"type":"subscribe","topics":["Chat","usage"]}`))
	s.Equal([]string{"chat", "usage"}, s.engine.Registry().Topics(s.sub))

	s.JSONEq(`{"type":"unsubscribed","topics":["usage"]}`, s.send(`{"type":"unsubscribe","topics":["usage"]}`))
	s.Equal([]string{"chat"}, s.engine.Registry().Topics(s.sub))
}

func (s *ProtocolTestSuite) TestSubscribeWithoutTopics() {
	s.JSONEq(`{"type":"subscribed","topics":[]}`, s.send(`{"type":"subscribe"}`))
	s.Empty(s.engine.Registry().Topics(s.sub))
}

func (s *ProtocolTestSuite) TestTopicsMustBeAList() {
	s.JSONEq(`{"type":"error","message":"Topics must be a list"}`, s.send(`{"type":"subscribe","topics":"chat"}`))
	s.JSONEq(`{"type":"error","message":"Topics must be a list"}`, s.send(`{"type":"unsubscribe","topics":{"a":1}}`))
	s.True(s.engine.Registry().IsRegistered(s.sub))
}

func (s *ProtocolTestSuite) TestRefreshSendsFullSnapshot() {
	s.send(`{"type":"subscribe","topics":["chat"]}`)

	s.send(`{"type":"refresh"}`)

	s.ElementsMatch(allCategories, frameKeys(s.sub.lastFrame()))
}

func (s *ProtocolTestSuite) TestUnknownType() {
	s.JSONEq(`{"type":"error","message":"Unknown message type: dance"}`, s.send(`{"type":"dance"}`))
}

func (s *ProtocolTestSuite) TestInvalidJSON() {
	s.JSONEq(`{"type":"error","message":"Invalid JSON message"}`, s.send(`{not json`))
	s.True(s.engine.Registry().IsRegistered(s.sub))
	s.False(s.sub.IsClosed())
}

func (s *ProtocolTestSuite) TestReplyFailureDropsSubscriber() {
	broken := newRecordingSubscriber()
	s.engine.Registry().Register(broken)
	s.Require().NoError(broken.Close())

	err := s.engine.HandleClientMessage(s.ctx, broken, []byte(`{"type":"ping"}`))

	s.ErrorIs(err, errClosed)
	s.False(s.engine.Registry().IsRegistered(broken))
}
