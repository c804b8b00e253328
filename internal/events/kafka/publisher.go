package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
)

type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisher writes JSON events to brokers. A non-empty topic pins every
// event to it; otherwise each event goes to the topic passed to Publish.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

// Publish keys the message so all events of one transfer share a partition.
func (p *Publisher) Publish(ctx context.Context, topic, key string, event any) error {
	msg, err := p.message(topic, key, event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Publisher) message(topic, key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	if p.topic != "" {
		topic = p.topic
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
