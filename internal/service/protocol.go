package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"chat-analytics-service/internal/model"
)

const (
	errTopicsNotList  = "Topics must be a list"
	errInvalidJSON    = "Invalid JSON message"
	errInternalServer = "Internal server error"
)

// HandleClientMessage answers one inbound frame from sub. Protocol misuse is
// answered with an error frame and never closes the channel; the returned
// error is non-nil only when sub can no longer be written to.
func (e *Engine) HandleClientMessage(ctx context.Context, sub Subscriber, raw []byte) error {
	var msg model.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		e.logger.Debug("invalid client message", zap.String("subscriber", sub.ID()), zap.Error(err))
		return e.replyError(ctx, sub, errInvalidJSON)
	}

	switch msg.Type {
	case model.MessagePing:
		return e.reply(ctx, sub, model.ServerMessage{Type: model.MessagePong})

	case model.MessageSubscribe:
		topics, ok := decodeTopics(msg.Topics)
		if !ok {
			return e.replyError(ctx, sub, errTopicsNotList)
		}
		e.registry.Subscribe(sub, topics)
		e.logger.Info("client subscribed", zap.String("subscriber", sub.ID()), zap.Strings("topics", topics))
		return e.reply(ctx, sub, model.TopicsReply{Type: model.MessageSubscribed, Topics: topics})

	case model.MessageUnsubscribe:
		topics, ok := decodeTopics(msg.Topics)
		if !ok {
			return e.replyError(ctx, sub, errTopicsNotList)
		}
		e.registry.Unsubscribe(sub, topics)
		e.logger.Info("client unsubscribed", zap.String("subscriber", sub.ID()), zap.Strings("topics", topics))
		return e.reply(ctx, sub, model.TopicsReply{Type: model.MessageUnsubscribed, Topics: topics})

	case model.MessageRefresh:
		if err := e.broadcaster.SendSnapshot(ctx, sub, nil); err != nil {
			if e.registry.IsRegistered(sub) {
				e.logger.Error("refresh snapshot", zap.String("subscriber", sub.ID()), zap.Error(err))
				return e.replyError(ctx, sub, errInternalServer)
			}
			return err
		}
		return nil

	default:
		return e.replyError(ctx, sub, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (e *Engine) replyError(ctx context.Context, sub Subscriber, message string) error {
	return e.reply(ctx, sub, model.ServerMessage{Type: model.MessageError, Message: message})
}

func (e *Engine) reply(ctx context.Context, sub Subscriber, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	if err := e.broadcaster.deliver(ctx, sub, payload); err != nil {
		e.broadcaster.Drop(sub, err)
		return err
	}
	return nil
}

// decodeTopics accepts a JSON list of strings. A missing field is an empty
// list; anything else is rejected.
func decodeTopics(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, true
	}
	var topics []string
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, false
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, true
}
