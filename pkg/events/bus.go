// Package events publishes tide transitions to Kafka for downstream
// automations. Publishing is optional; a nil Publisher is a no-op.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is one tide transition: a phase change or a window opening/closing.
type Event struct {
	Kind  string    `json:"kind"` // "phase" or "window"
	Value string    `json:"value"`
	At    time.Time `json:"at"`
}

type Publisher struct {
	writer *kafka.Writer
}

// New builds a publisher for the given brokers and topic.
func New(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish sends one event. Nil receivers swallow the call so callers do not
// gate on whether publishing is configured.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if p == nil {
		return nil
	}
	blob, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Kind),
		Value: blob,
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
