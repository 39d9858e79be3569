package services

import (
	"context"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const TransferStream = "transfer:stream"

// TransferDispatcher hands a freshly completed session to the bridge. It
// must not fail completion, so it reports nothing back.
type TransferDispatcher interface {
	Dispatch(ctx context.Context, s *models.Session)
}

// InlineDispatcher runs the bridge in the caller's goroutine on a context
// detached from request cancellation.
type InlineDispatcher struct {
	Bridge  *TransferBridge
	Timeout time.Duration
	Logger  *logrus.Logger
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, s *models.Session) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if _, err := d.Bridge.Transfer(tctx, s); err != nil && d.Logger != nil {
		d.Logger.WithError(err).WithField("session_id", s.SessionID).Error("knowledge transfer failed")
	}
}

// StreamDispatcher queues the session id on a Redis stream for
// workers.TransferWorkerPool and falls back to inline when the queue is down.
type StreamDispatcher struct {
	Redis    *redis.Client
	Stream   string
	Fallback TransferDispatcher
	Logger   *logrus.Logger
}

func (d *StreamDispatcher) Dispatch(ctx context.Context, s *models.Session) {
	stream := d.Stream
	if stream == "" {
		stream = TransferStream
	}
	err := d.Redis.XAdd(context.WithoutCancel(ctx), &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"session_id": s.SessionID},
	}).Err()
	if err == nil {
		return
	}
	if d.Logger != nil {
		d.Logger.WithError(err).WithField("session_id", s.SessionID).Warn("transfer enqueue failed; running inline")
	}
	if d.Fallback != nil {
		d.Fallback.Dispatch(ctx, s)
	}
}
