package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second, log: zap.NewNop()}

	ev := Event{
		Type:        PaymentEventType("confirmed"),
		BookingID:   42,
		IntentID:    "pi_abc",
		Status:      "confirmed",
		AmountMinor: 5000,
		Source:      "webhook",
		OccurredAt:  time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "booking.payment.confirmed", string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &recordingWriter{err: boom}, timeout: time.Second, log: zap.NewNop()}

	err := p.Publish(context.Background(), Event{Type: "booking.payment.failed", BookingID: 1})
	assert.ErrorIs(t, err, boom)
}

func TestNew_WithoutBrokersIsNop(t *testing.T) {
	p := New(nil, "booking-payments", nil)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}

func TestNewKafkaPublisher_WritesAsync(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewKafkaPublisher([]string{"localhost:9092"}, "booking-payments", zap.New(core))
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, w.Async)
	assert.LessOrEqual(t, w.BatchTimeout, 100*time.Millisecond)
	require.NotNil(t, w.Completion)

	msgs := []kafka.Message{{Topic: "booking-payments", Key: []byte("42")}}
	w.Completion(msgs, errors.New("broker down"))
	w.Completion(msgs, nil)

	failed := logs.FilterMessage("failed to deliver event").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "42", failed[0].ContextMap()["key"])
	assert.Equal(t, 1, logs.FilterMessage("event delivered").Len())
}
