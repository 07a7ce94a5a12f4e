package mockreader

import (
	"chat-analytics-service/internal/model"
	"chat-analytics-service/internal/service"

	"github.com/stretchr/testify/mock"
)

type Reader struct {
	mock.Mock
}

var _ service.AnalyticsReader = &Reader{}

func (m *Reader) ChatStatistics(scope string) model.ChatStatistics {
	return m.Called(scope).Get(0).(model.ChatStatistics)
}

func (m *Reader) ChatRollup() model.ChatRollup {
	return m.Called().Get(0).(model.ChatRollup)
}

func (m *Reader) DocumentStatistics(scope string) model.DocumentStatistics {
	return m.Called(scope).Get(0).(model.DocumentStatistics)
}

func (m *Reader) DocumentRollup() model.DocumentRollup {
	return m.Called().Get(0).(model.DocumentRollup)
}

func (m *Reader) LinkStatistics(scope string) model.LinkStatistics {
	return m.Called(scope).Get(0).(model.LinkStatistics)
}

func (m *Reader) LinkRollup() model.LinkRollup {
	return m.Called().Get(0).(model.LinkRollup)
}

func (m *Reader) UsageStatistics() model.UsageStatistics {
	return m.Called().Get(0).(model.UsageStatistics)
}

func (m *Reader) EnhancedStatistics() model.EnhancedStatistics {
	return m.Called().Get(0).(model.EnhancedStatistics)
}
