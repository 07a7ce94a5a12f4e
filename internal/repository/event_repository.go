package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"chat-analytics-service/internal/model"
)

// EventRepository defines archive operations for tracked events.
type EventRepository interface {
	// Create inserts a single event.
	Create(ctx context.Context, event model.Event) error

	// CreateBatch inserts multiple events in one native ClickHouse batch.
	CreateBatch(ctx context.Context, events []model.Event) error
}

type eventRepository struct {
	conn clickhouse.Conn
}

// NewEventRepository creates an EventRepository backed by ClickHouse.
func NewEventRepository(conn clickhouse.Conn) EventRepository {
	return &eventRepository{conn: conn}
}

const (
	insertEventQuery = `INSERT INTO analytics_events (kind, scope, user_id, ts, details) VALUES (?, ?, ?, ?, ?)`
	batchEventQuery  = `INSERT INTO analytics_events (kind, scope, user_id, ts, details)`
)

func (r *eventRepository) Create(ctx context.Context, event model.Event) error {
	details, err := marshalDetails(event.Details)
	if err != nil {
		return err
	}

	return r.conn.Exec(ctx, insertEventQuery,
		string(event.Kind),
		event.Scope,
		nullIfEmpty(event.UserID),
		event.Timestamp,
		details,
	)
}

func (r *eventRepository) CreateBatch(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, batchEventQuery)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, event := range events {
		details, err := marshalDetails(event.Details)
		if err != nil {
			return err
		}

		if err := batch.Append(
			string(event.Kind),
			event.Scope,
			nullIfEmpty(event.UserID),
			event.Timestamp,
			details,
		); err != nil {
			return fmt.Errorf("append batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func marshalDetails(details model.EventDetails) (string, error) {
	b, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	return string(b), nil
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
