package consumer

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is satisfied by *kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// errSkip marks a message that can never be processed; it is committed so
// the partition moves on.
var errSkip = errors.New("skip message")

type handleFunc func(ctx context.Context, msg kafkago.Message) error

// retryPolicy bounds how long a message is retried in place. A group reader
// keeps fetching past an uncommitted message, so a failure that is not
// retried here is never seen again.
type retryPolicy struct {
	attempts     int
	initialDelay time.Duration
	maxDelay     time.Duration
}

var defaultRetry = retryPolicy{
	attempts:     5,
	initialDelay: 500 * time.Millisecond,
	maxDelay:     15 * time.Second,
}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.initialDelay
	for i := 1; i < attempt && d < p.maxDelay; i++ {
		d *= 2
	}
	if d > p.maxDelay {
		d = p.maxDelay
	}
	return d
}

func run(ctx context.Context, reader MessageReader, log *zap.Logger, handle handleFunc) {
	consume(ctx, reader, log, defaultRetry, handle)
}

// consume fetches until ctx is cancelled. Each message is handled up to
// policy.attempts times and then committed.
func consume(ctx context.Context, reader MessageReader, log *zap.Logger, policy retryPolicy, handle handleFunc) {
	fetchFailures := 0
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer stopped")
				return
			}
			fetchFailures++
			log.Error("fetch message failed", zap.Int("consecutive_failures", fetchFailures), zap.Error(err))
			if !sleep(ctx, policy.delay(fetchFailures)) {
				log.Info("consumer stopped")
				return
			}
			continue
		}
		fetchFailures = 0

		if !handleWithRetry(ctx, msg, log, policy, handle) {
			log.Info("consumer stopped")
			return
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handleWithRetry reports false only when ctx ends before the message is
// resolved; the message is then left uncommitted for the next session.
func handleWithRetry(ctx context.Context, msg kafkago.Message, log *zap.Logger, policy retryPolicy, handle handleFunc) bool {
	for attempt := 1; ; attempt++ {
		err := handle(ctx, msg)
		if err == nil || errors.Is(err, errSkip) {
			return true
		}

		fields := []zap.Field{
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if attempt >= policy.attempts {
			log.Error("handle message failed, giving up", fields...)
			return true
		}
		log.Warn("handle message failed, retrying", fields...)

		if !sleep(ctx, policy.delay(attempt)) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
