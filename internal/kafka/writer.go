package kafka

import (
	"context"
	"encoding/json"
	"time"

	"gateway-emulator/internal/config"
	"gateway-emulator/internal/message"
	"gateway-emulator/internal/model"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

func NewWriter(cfg config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Broker.URL),
		Topic:                  cfg.Topic.GatewayEvents,
		Balancer:               &kafka.ReferenceHash{},
		BatchSize:              cfg.Writer.BatchSize,
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           time.Duration(cfg.Writer.BatchTimeoutMs) * time.Millisecond,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher mirrors webhook events to the gateway events topic.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

func (p *Publisher) Publish(ctx context.Context, ev model.WebhookEvent) error {
	value, err := json.Marshal(message.FromWebhookEvent(ev))
	if err != nil {
		return errors.Wrap(err, "marshalling gateway event")
	}

	msg := kafka.Message{
		// subject as key keeps the events of one transaction, shipment or message ordered
		Key:   []byte(ev.Gateway + ":" + ev.Subject),
		Value: value,
		Headers: []kafka.Header{
			{Key: "gateway", Value: []byte(ev.Gateway)},
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "writing gateway event to kafka")
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
