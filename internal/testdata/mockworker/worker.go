package mockworker

import (
	"chat-analytics-service/internal/model"

	"github.com/stretchr/testify/mock"
)

// Worker mocks service.ArchiveWorker; it also satisfies service.EventSink.
type Worker struct {
	mock.Mock
}

func (m *Worker) Enqueue(event model.Event) {
	m.Called(event)
}

func (m *Worker) Shutdown() {
	m.Called()
}
