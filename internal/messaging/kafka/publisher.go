package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"leaveflow/internal/events"
	"leaveflow/internal/platform/logger"
)

// MessageWriter is the part of *kafkago.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter builds a writer that routes messages by their own Topic field.
func NewWriter(brokers []string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

type Publisher struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

func NewPublisher(writer MessageWriter, topic string, l *zap.Logger) *Publisher {
	if topic == "" {
		topic = events.LeaveWorkflowTopic
	}
	return &Publisher{
		writer: writer,
		topic:  topic,
		logger: logger.Named(l, "kafka.publisher"),
	}
}

// PublishLeaveEvent writes the event keyed by leave ID so that every
// transition of one request lands on the same partition in order.
func (p *Publisher) PublishLeaveEvent(ctx context.Context, event events.LeaveEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal leave event: %w", err)
	}

	msg := kafkago.Message{
		Topic: p.topic,
		Key:   []byte(event.LeaveID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "aggregate_type", Value: []byte("leave_request")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish leave event failed",
			zap.String("event_type", event.EventType),
			zap.String("leave_id", event.LeaveID),
			zap.String("topic", p.topic),
			zap.Error(err),
		)
		return err
	}
	p.logger.Debug("leave event published",
		zap.String("event_type", event.EventType),
		zap.String("leave_id", event.LeaveID),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
