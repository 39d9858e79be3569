package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/services"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Transferrer is the part of services.TransferBridge the pool needs.
type Transferrer interface {
	Transfer(ctx context.Context, s *models.Session) (*models.KnowledgeTransferRecord, error)
}

// StreamClient is the part of *redis.Client the pool uses.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// TransferWorkerPool consumes completed session ids queued by
// services.StreamDispatcher and runs the knowledge transfer for each.
//
// Entries whose transfer hit a store outage stay pending. Each consumer
// re-reads its own pending list on start, and entries idle longer than
// ClaimIdle are reclaimed and retried while the pool runs.
type TransferWorkerPool struct {
	Redis      StreamClient
	Sessions   repositories.SessionRepository
	Bridge     Transferrer
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
	JobTimeout     time.Duration
	ClaimIdle      time.Duration
}

func (p *TransferWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Sessions == nil || p.Bridge == nil {
		return errors.New("TransferWorkerPool missing dependency: Redis/Sessions/Bridge must be set")
	}
	if p.Stream == "" {
		p.Stream = services.TransferStream
	}
	if p.Group == "" {
		p.Group = "transfer-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.JobTimeout <= 0 {
		p.JobTimeout = 30 * time.Second
	}
	if p.ClaimIdle <= 0 {
		p.ClaimIdle = time.Minute
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	go p.reclaimLoop(ctx)
	return nil
}

func (p *TransferWorkerPool) runConsumer(ctx context.Context, consumer string) {
	p.drainPending(ctx, consumer)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			p.handleBatch(ctx, stream.Messages)
		}
	}
}

// drainPending walks the consumer's own pending list once, oldest first.
func (p *TransferWorkerPool) drainPending(ctx context.Context, consumer string) {
	start := "0"
	for ctx.Err() == nil {
		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, start},
			Count:    10,
			Block:    -1,
		}).Result()
		if err != nil {
			if err != redis.Nil {
				p.Logger.WithError(err).WithField("consumer", consumer).Warn("failed to read pending transfers")
			}
			return
		}
		var msgs []redis.XMessage
		for _, stream := range res {
			msgs = append(msgs, stream.Messages...)
		}
		if len(msgs) == 0 {
			return
		}
		p.handleBatch(ctx, msgs)
		start = msgs[len(msgs)-1].ID
	}
}

func (p *TransferWorkerPool) reclaimLoop(ctx context.Context) {
	t := time.NewTicker(p.ClaimIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.reclaim(ctx)
		}
	}
}

// reclaim takes over every entry idle for at least ClaimIdle and retries it.
func (p *TransferWorkerPool) reclaim(ctx context.Context) {
	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			MinIdle:  p.ClaimIdle,
			Start:    start,
			Count:    10,
			Consumer: p.ConsumerPrefix + "-reclaim",
		}).Result()
		if err != nil {
			if err != redis.Nil {
				p.Logger.WithError(err).Warn("failed to reclaim idle transfers")
			}
			return
		}
		if len(msgs) > 0 {
			p.Logger.WithField("count", len(msgs)).Info("retrying idle transfers")
			p.handleBatch(ctx, msgs)
		}
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

func (p *TransferWorkerPool) handleBatch(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		if p.handleMsg(ctx, msg) {
			_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
		}
	}
}

// handleMsg reports whether the message is finished with. Store outages leave
// it pending for drainPending or reclaim to retry.
func (p *TransferWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) bool {
	sessionID, _ := msg.Values["session_id"].(string)
	if sessionID == "" {
		return true
	}
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
	})
	return p.process(ctx, sessionID, log)
}

func (p *TransferWorkerPool) process(ctx context.Context, sessionID string, log *logrus.Entry) bool {
	jctx, cancel := context.WithTimeout(ctx, p.JobTimeout)
	defer cancel()

	sess, err := p.Sessions.Get(jctx, sessionID)
	if errors.Is(err, utils.ErrNotFound) {
		log.Warn("queued transfer for unknown session dropped")
		return true
	}
	if err != nil {
		log.WithError(err).Error("failed to load session for transfer")
		return false
	}
	if sess.Status != models.SessionCompleted {
		log.Warn("queued transfer for an active session dropped")
		return true
	}

	rec, err := p.Bridge.Transfer(jctx, sess)
	if err != nil {
		log.WithError(err).Error("knowledge transfer failed")
		return !utils.IsCode(err, utils.CodeStoreUnavailable)
	}
	log.WithFields(logrus.Fields{"status": rec.Status, "transfer_id": rec.TransferID}).Debug("transfer processed")
	return true
}
