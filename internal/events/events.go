// Package events publishes domain events about users and articles.
// Publishing is best effort: failures are logged and never fail the write
// that produced the event.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/articlehub/apiserver/internal/mq"
)

const (
	UserRegistered = "user.registered"
	ArticleCreated = "article.created"
	ArticleUpdated = "article.updated"
	ArticleDeleted = "article.deleted"
)

// Event is the JSON body of every published message.
type Event struct {
	Type string    `json:"type"`
	ID   int64     `json:"id"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Publisher sends events to one channel of a broker.
type Publisher struct {
	backend mq.Backend
	channel string
	logger  *zap.Logger
	timeout time.Duration
}

func NewPublisher(backend mq.Backend, channel string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{backend: backend, channel: channel, logger: logger, timeout: 5 * time.Second}
}

// Publish sends an event. The request context only contributes its values;
// the publish is not cancelled when the request finishes.
func (p *Publisher) Publish(ctx context.Context, eventType string, id int64, data any) {
	if p == nil || p.backend == nil {
		return
	}

	body, err := json.Marshal(Event{Type: eventType, ID: id, At: time.Now().UTC(), Data: data})
	if err != nil {
		p.logger.Error("encode event", zap.String("type", eventType), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	attrs := map[string]string{
		mq.AttrType: eventType,
		"id":        strconv.FormatInt(id, 10),
	}
	if _, err := p.backend.Publish(ctx, p.channel, body, attrs); err != nil {
		p.logger.Warn("publish event", zap.String("type", eventType), zap.Int64("id", id), zap.Error(err))
	}
}

// Tail subscribes to the channel and calls fn for every decodable event
// until ctx is cancelled.
func (p *Publisher) Tail(ctx context.Context, fn func(Event)) error {
	return p.backend.Subscribe(ctx, p.channel, func(ctx context.Context, msg mq.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Warn("drop undecodable event", zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}
		fn(event)
		return nil
	})
}
