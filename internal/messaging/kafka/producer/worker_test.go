package producer

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOutbox struct {
	pending []kafka.OutboxEvent
	sent    []string
	failed  map[string]string
	listErr error
}

func (f *fakeOutbox) WithTx(*sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutbox) Create(context.Context, kafka.OutboxEvent) error { return nil }

func (f *fakeOutbox) ListPending(_ context.Context, limit int) ([]kafka.OutboxEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id string, reason string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = reason
	return nil
}

type fakeWriter struct {
	messages []kafkago.Message
	failKey  string
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		if string(m.Key) == w.failKey {
			return errors.New("broker unavailable")
		}
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func settledEvent(id, aggregateID string) kafka.OutboxEvent {
	return kafka.OutboxEvent{
		ID:            id,
		RequestID:     "req-1",
		AggregateType: "payslip",
		AggregateID:   aggregateID,
		EventType:     events.PaymentSettledEventType,
		Topic:         events.PaymentSettledTopic,
		Payload:       []byte(`{"payslip_id":1}`),
		Status:        kafka.OutboxStatusPending,
	}
}

func TestProcessPendingEvents(t *testing.T) {
	t.Run("PublishesAndMarksSent", func(t *testing.T) {
		repo := &fakeOutbox{pending: []kafka.OutboxEvent{settledEvent("o-1", "10"), settledEvent("o-2", "11")}}
		writer := &fakeWriter{}

		sent, err := processPendingEvents(context.Background(), repo, writer, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
		assert.Equal(t, []string{"o-1", "o-2"}, repo.sent)
		require.Len(t, writer.messages, 2)

		msg := writer.messages[0]
		assert.Equal(t, events.PaymentSettledTopic, msg.Topic)
		assert.Equal(t, "10", string(msg.Key))
		assert.Contains(t, msg.Headers, kafkago.Header{Key: "event_type", Value: []byte(events.PaymentSettledEventType)})
		assert.Contains(t, msg.Headers, kafkago.Header{Key: "request_id", Value: []byte("req-1")})
	})

	t.Run("PublishFailureMarksFailedAndContinues", func(t *testing.T) {
		repo := &fakeOutbox{pending: []kafka.OutboxEvent{settledEvent("o-1", "10"), settledEvent("o-2", "11")}}
		writer := &fakeWriter{failKey: "10"}

		sent, err := processPendingEvents(context.Background(), repo, writer, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, []string{"o-2"}, repo.sent)
		assert.Contains(t, repo.failed, "o-1")
	})

	t.Run("InvalidEventIsNotPublished", func(t *testing.T) {
		bad := settledEvent("o-3", "12")
		bad.Payload = nil
		repo := &fakeOutbox{pending: []kafka.OutboxEvent{bad}}
		writer := &fakeWriter{}

		sent, err := processPendingEvents(context.Background(), repo, writer, zap.NewNop())
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Empty(t, writer.messages)
		assert.Equal(t, "outbox payload is required", repo.failed["o-3"])
	})

	t.Run("ListError", func(t *testing.T) {
		repo := &fakeOutbox{listErr: errors.New("db down")}

		_, err := processPendingEvents(context.Background(), repo, &fakeWriter{}, zap.NewNop())
		assert.Error(t, err)
	})
}
