// Package events publishes booking payment transitions to downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event is one applied payment transition.
type Event struct {
	Type        string    `json:"type"`
	BookingID   int64     `json:"booking_id"`
	IntentID    string    `json:"payment_intent_id"`
	Status      string    `json:"status"`
	AmountMinor int64     `json:"amount"`
	Source      string    `json:"source"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentEventType names the event emitted for a payment status.
func PaymentEventType(status string) string {
	return "booking.payment." + status
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *zap.Logger
}

// NewKafkaPublisher writes asynchronously so a publish never holds up the
// caller; delivery failures surface through the completion log.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Async:        true,
		Completion:   completionLogger(log),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return &KafkaPublisher{writer: w, timeout: w.WriteTimeout, log: log}
}

func completionLogger(log *zap.Logger) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		for _, msg := range messages {
			if err != nil {
				log.Error("failed to deliver event",
					zap.String("topic", msg.Topic),
					zap.String("key", string(msg.Key)),
					zap.Error(err),
				)
				continue
			}
			log.Debug("event delivered", zap.String("topic", msg.Topic), zap.String("key", string(msg.Key)))
		}
	}
}

// Publish keys messages by booking id so transitions of one booking stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.BookingID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish event",
			zap.String("type", ev.Type),
			zap.Int64("booking_id", ev.BookingID),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug("event queued", zap.String("type", ev.Type), zap.Int64("booking_id", ev.BookingID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// New returns a Kafka publisher when brokers are configured and Nop otherwise.
func New(brokers []string, topic string, log *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(brokers, topic, log)
}
