// Package kafka публикует доменные события в Apache Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mmeshcher/storefront/internal/messaging"
)

var _ messaging.Publisher = (*Publisher)(nil)

// messageWriter описывает часть kafka.Writer, которая нужна публикатору.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher отправляет события через один общий kafka.Writer. Топик задаётся в каждом сообщении.
type Publisher struct {
	writer messageWriter
}

// NewPublisher создаёт публикатор для списка брокеров.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.LeastBytes{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishEvent сериализует событие в JSON и отправляет его в топик.
func (p *Publisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}
	return nil
}

// Close дожидается отправки буферизованных сообщений и закрывает соединения.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
