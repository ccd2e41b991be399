package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	redrepo "github.com/ivankudzin/jobswipe/internal/repo/redis"
)

type StreamStore interface {
	Append(ctx context.Context, stream string, payload []byte) (string, error)
	EnsureGroup(ctx context.Context, stream, group string) error
	ReadNew(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]redrepo.StreamEntry, error)
	Pending(ctx context.Context, stream, group, consumer string, count int64) ([]redrepo.PendingEntry, error)
	Claim(ctx context.Context, stream, group, consumer string, ids ...string) ([]redrepo.StreamEntry, error)
	DeadLetter(ctx context.Context, stream, group, deadStream string, entry redrepo.PendingEntry, reason string) error
	Ack(ctx context.Context, stream, group string, ids ...string) error
}

type RedisPublisher struct {
	store  StreamStore
	stream string
}

func NewRedisPublisher(store StreamStore, stream string) *RedisPublisher {
	return &RedisPublisher{store: store, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := p.store.Append(ctx, p.stream, raw); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

type ConsumerConfig struct {
	Stream       string
	Group        string
	Consumer     string
	BatchSize    int64
	BlockTimeout time.Duration
	// RetryBackoff is the pause between retries of failed entries.
	RetryBackoff time.Duration
	// MaxDeliveries bounds attempts per entry; after that it moves to
	// DeadLetterStream.
	MaxDeliveries    int64
	DeadLetterStream string
}

// RedisConsumer reads a stream through a consumer group. An entry is
// acknowledged only after the handler returns nil. Failed entries are
// retried alongside new ones and dead-lettered after MaxDeliveries, so one
// bad event never holds up the rest.
type RedisConsumer struct {
	store   StreamStore
	handler Handler
	logger  *zap.Logger
	cfg     ConsumerConfig
}

func NewRedisConsumer(store StreamStore, handler Handler, logger *zap.Logger, cfg ConsumerConfig) *RedisConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	if cfg.DeadLetterStream == "" {
		cfg.DeadLetterStream = cfg.Stream + ":dead"
	}
	return &RedisConsumer{store: store, handler: handler, logger: logger, cfg: cfg}
}

// Run consumes until ctx is cancelled. Entries left pending by a previous
// run of the same consumer name are retried on the first pass.
func (c *RedisConsumer) Run(ctx context.Context) error {
	if err := c.store.EnsureGroup(ctx, c.cfg.Stream, c.cfg.Group); err != nil {
		return err
	}

	var lastRetry time.Time
	backlog := true
	for ctx.Err() == nil {
		if backlog && time.Since(lastRetry) >= c.cfg.RetryBackoff {
			var err error
			backlog, err = c.retryPending(ctx)
			if err != nil {
				c.logger.Warn("retry pending events failed", zap.Error(err))
			}
			lastRetry = time.Now()
		}

		block := c.cfg.BlockTimeout
		if backlog {
			block = min(block, c.cfg.RetryBackoff)
		}
		entries, err := c.store.ReadNew(ctx, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize, block)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Warn("read event stream failed", zap.Error(err))
			if !sleepCtx(ctx, c.cfg.RetryBackoff) {
				return nil
			}
			continue
		}
		if c.process(ctx, entries) {
			backlog = true
		}
	}
	return nil
}

// ProcessOnce makes one retry pass over pending entries, then handles what
// is new in the stream without blocking.
func (c *RedisConsumer) ProcessOnce(ctx context.Context) error {
	if err := c.store.EnsureGroup(ctx, c.cfg.Stream, c.cfg.Group); err != nil {
		return err
	}
	if _, err := c.retryPending(ctx); err != nil {
		return err
	}
	entries, err := c.store.ReadNew(ctx, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize, -1)
	if err != nil {
		return err
	}
	c.process(ctx, entries)
	return nil
}

// retryPending redelivers this consumer's unacknowledged entries and
// dead-letters the ones out of attempts. It reports whether anything is
// still pending afterwards.
func (c *RedisConsumer) retryPending(ctx context.Context) (bool, error) {
	pending, err := c.store.Pending(ctx, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize)
	if err != nil {
		return true, err
	}
	if len(pending) == 0 {
		return false, nil
	}

	retry := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Deliveries < c.cfg.MaxDeliveries {
			retry = append(retry, p.ID)
			continue
		}
		if err := c.store.DeadLetter(ctx, c.cfg.Stream, c.cfg.Group, c.cfg.DeadLetterStream, p, "max deliveries reached"); err != nil {
			return true, err
		}
		c.logger.Error("event dead-lettered",
			zap.String("entry_id", p.ID),
			zap.Int64("deliveries", p.Deliveries),
			zap.String("dead_letter_stream", c.cfg.DeadLetterStream),
		)
	}

	entries, err := c.store.Claim(ctx, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, retry...)
	if err != nil {
		return true, err
	}
	if gone := missing(retry, entries); len(gone) > 0 {
		// Trimmed from the stream; nothing left to retry.
		if err := c.store.Ack(ctx, c.cfg.Stream, c.cfg.Group, gone...); err != nil {
			return true, err
		}
	}
	failed := c.process(ctx, entries)
	return failed || int64(len(pending)) >= c.cfg.BatchSize, nil
}

func missing(ids []string, entries []redrepo.StreamEntry) []string {
	found := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		found[e.ID] = struct{}{}
	}
	var out []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (c *RedisConsumer) process(ctx context.Context, entries []redrepo.StreamEntry) bool {
	failed := false
	for _, entry := range entries {
		var event Event
		if err := json.Unmarshal(entry.Payload, &event); err != nil {
			// Poison entry: ack it so it does not block the group.
			c.logger.Error("drop undecodable event", zap.String("entry_id", entry.ID), zap.Error(err))
			_ = c.store.Ack(ctx, c.cfg.Stream, c.cfg.Group, entry.ID)
			continue
		}

		if err := c.handler.Handle(ctx, event); err != nil {
			failed = true
			c.logger.Warn("handle event failed",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
			continue
		}

		if err := c.store.Ack(ctx, c.cfg.Stream, c.cfg.Group, entry.ID); err != nil {
			failed = true
			c.logger.Warn("ack event failed", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}
	return failed
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
