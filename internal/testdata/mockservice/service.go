package mockservice

import (
	"context"

	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/service"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

var _ service.EventService = &Service{}

func (m *Service) BuildEvent(req model.EventRequest) (model.Event, error) {
	args := m.Called(req)
	return args.Get(0).(model.Event), args.Error(1)
}

func (m *Service) ProcessEvent(ctx context.Context, event model.Event) (model.EventResult, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(model.EventResult), args.Error(1)
}
