package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/service"

	mockservice "chat-analytics-service/internal/testdata/mockservice"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ControllerTestSuite struct {
	suite.Suite
	app     *fiber.App
	service *mockservice.Service
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (s *ControllerTestSuite) SetupTest() {
	s.service = &mockservice.Service{}
	ctrl := NewEventController(s.service)
	s.app = fiber.New()
	s.app.Post("/events", ctrl.CreateEvent)
}

func (s *ControllerTestSuite) TearDownTest() {
	s.service.AssertExpectations(s.T())
}

func (s *ControllerTestSuite) TestCreateEvent_Success() {
	count := 2
	reqBody := model.EventRequest{Kind: "chat_activity", Scope: "c1", UserID: "u1", MessageCount: &count}
	ev := model.Event{
		Kind:      model.KindChatActivity,
		Scope:     "c1",
		UserID:    "u1",
		Timestamp: time.Unix(100, 0).UTC(),
		Details:   model.EventDetails{MessageCount: 2},
	}
	s.service.On("BuildEvent", reqBody).Return(ev, nil)
	s.service.On("ProcessEvent", mock.Anything, ev).Return(model.EventResult{Status: "accepted"}, nil)

	resp := s.performRequest(reqBody)

	require.Equal(s.T(), http.StatusAccepted, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	s.JSONEq(`{"status":"accepted"}`, string(body))
}

func (s *ControllerTestSuite) TestCreateEvent_InvalidJSON() {
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := s.app.Test(req, -1)
	require.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
}

func (s *ControllerTestSuite) TestCreateEvent_BuildError() {
	reqBody := model.EventRequest{Scope: "c1"}
	s.service.On("BuildEvent", reqBody).Return(model.Event{}, &service.ValidationError{Message: "kind is required"})

	resp := s.performRequest(reqBody)

	require.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	s.Equal("kind is required", string(body))
}

func (s *ControllerTestSuite) TestCreateEvent_ProcessValidationError() {
	reqBody := model.EventRequest{Kind: "user_activity", UserID: "u1"}
	ev := model.Event{Kind: model.KindUserActivity, UserID: "u1"}
	s.service.On("BuildEvent", reqBody).Return(ev, nil)
	s.service.On("ProcessEvent", mock.Anything, ev).Return(model.EventResult{}, &service.ValidationError{Message: "unsupported kind"})

	resp := s.performRequest(reqBody)

	require.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
}

func (s *ControllerTestSuite) TestCreateEvent_ProcessError() {
	reqBody := model.EventRequest{Kind: "user_activity", UserID: "u1"}
	ev := model.Event{Kind: model.KindUserActivity, UserID: "u1"}
	s.service.On("BuildEvent", reqBody).Return(ev, nil)
	s.service.On("ProcessEvent", mock.Anything, ev).Return(model.EventResult{}, context.DeadlineExceeded)

	resp := s.performRequest(reqBody)

	require.Equal(s.T(), http.StatusInternalServerError, resp.StatusCode)
}

func (s *ControllerTestSuite) performRequest(body any) *http.Response {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(s.T(), err)
	return resp
}
