package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

const (
	EventOrderCreated    = "order.created"
	EventPaymentApproved = "payment.approved"
)

// Envelope is the JSON body of every published event.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// Encode builds the message for an event.
func Encode(eventType string, data any, now time.Time) (*pubsub.Message, error) {
	payload, err := json.Marshal(Envelope{Type: eventType, OccurredAt: now.UTC(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event_type": eventType},
	}, nil
}

// TopicPublisher publishes events to a single topic and waits for the server ack.
type TopicPublisher struct {
	publisher *pubsub.Publisher
	now       func() time.Time
}

func NewTopicPublisher(publisher *pubsub.Publisher) *TopicPublisher {
	return &TopicPublisher{publisher: publisher, now: time.Now}
}

func (p *TopicPublisher) Publish(ctx context.Context, eventType string, data any) error {
	if p == nil || p.publisher == nil {
		return fmt.Errorf("publisher not configured")
	}
	msg, err := Encode(eventType, data, p.now())
	if err != nil {
		return err
	}
	if _, err := p.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// NoopPublisher is used when no topic is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
