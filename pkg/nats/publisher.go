package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"multimodal-rag-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName      = "EVENTS"
	streamRetention = 7 * 24 * time.Hour
)

// Publisher writes session lifecycle events to the EVENTS stream.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ events.Publisher = &Publisher{}

type envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewPublisher(url string) (*Publisher, error) {
	nc, js, err := dial(url, "publisher")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{"events.>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     streamRetention,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		// the stream may already exist with another config
		log.Printf("Warn: Failed to ensure stream '%s': %v", streamName, err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// Encode wraps an event in the wire envelope.
func Encode(event events.Event) ([]byte, error) {
	return json.Marshal(envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
}

// MsgID identifies an event for JetStream de-duplication of retried publishes.
func MsgID(event events.Event) string {
	id := event.EventType()
	if sid, ok := event.Payload()["session_id"].(string); ok {
		id += ":" + sid
	}
	return fmt.Sprintf("%s:%d", id, event.Timestamp().UnixNano())
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := Encode(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := Subject(event.EventType())
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(MsgID(event))); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Subject maps an event type to its NATS subject.
func Subject(eventType string) string {
	return "events." + eventType
}
