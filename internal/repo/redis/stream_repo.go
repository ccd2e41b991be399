package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const streamPayloadField = "payload"

// StreamEntry is one record read from a consumer group.
type StreamEntry struct {
	ID      string
	Payload []byte
}

// StreamRepo appends to and reads from a Redis stream with consumer groups.
type StreamRepo struct {
	client *goredis.Client
	maxLen int64
}

func NewStreamRepo(client *goredis.Client, maxLen int64) *StreamRepo {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &StreamRepo{client: client, maxLen: maxLen}
}

func (r *StreamRepo) Append(ctx context.Context, stream string, payload []byte) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}

	id, err := r.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{streamPayloadField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group and the stream when missing.
func (r *StreamRepo) EnsureGroup(ctx context.Context, stream, group string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	err := r.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// PendingEntry is a delivered but unacknowledged entry of one consumer.
type PendingEntry struct {
	ID         string
	Deliveries int64
}

// ReadNew returns entries never delivered to the group. A negative block
// returns at once.
func (r *StreamRepo) ReadNew(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]StreamEntry, error) {
	if r.client == nil {
		return nil, errors.New("redis client is nil")
	}

	res, err := r.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", stream, err)
	}

	var entries []StreamEntry
	for _, s := range res {
		entries = append(entries, toEntries(s.Messages)...)
	}
	return entries, nil
}

// Pending lists the oldest unacknowledged entries of consumer with their
// delivery counts.
func (r *StreamRepo) Pending(ctx context.Context, stream, group, consumer string, count int64) ([]PendingEntry, error) {
	if r.client == nil {
		return nil, errors.New("redis client is nil")
	}
	res, err := r.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
		Stream:   stream,
		Group:    group,
		Start:    "-",
		End:      "+",
		Count:    count,
		Consumer: consumer,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending %s: %w", stream, err)
	}
	out := make([]PendingEntry, 0, len(res))
	for _, p := range res {
		out = append(out, PendingEntry{ID: p.ID, Deliveries: p.RetryCount})
	}
	return out, nil
}

// Claim hands pending entries to consumer again and bumps their delivery
// count. Entries trimmed from the stream are missing from the result.
func (r *StreamRepo) Claim(ctx context.Context, stream, group, consumer string, ids ...string) ([]StreamEntry, error) {
	if r.client == nil {
		return nil, errors.New("redis client is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	msgs, err := r.client.XClaim(ctx, &goredis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		Messages: ids,
	}).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("xclaim %s: %w", stream, err)
	}
	return toEntries(msgs), nil
}

// DeadLetter copies entry to deadStream and acknowledges it on stream.
func (r *StreamRepo) DeadLetter(ctx context.Context, stream, group, deadStream string, entry PendingEntry, reason string) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}

	msgs, err := r.client.XRangeN(ctx, stream, entry.ID, entry.ID, 1).Result()
	if err != nil {
		return fmt.Errorf("xrange %s %s: %w", stream, entry.ID, err)
	}
	var payload []byte
	if found := toEntries(msgs); len(found) == 1 {
		payload = found[0].Payload
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: deadStream,
			MaxLen: r.maxLen,
			Approx: true,
			Values: map[string]any{
				streamPayloadField: payload,
				"source_id":        entry.ID,
				"deliveries":       entry.Deliveries,
				"reason":           reason,
			},
		})
		pipe.XAck(ctx, stream, group, entry.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dead-letter %s: %w", entry.ID, err)
	}
	return nil
}

func (r *StreamRepo) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if r.client == nil || len(ids) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", stream, err)
	}
	return nil
}

func toEntries(msgs []goredis.XMessage) []StreamEntry {
	entries := make([]StreamEntry, 0, len(msgs))
	for _, msg := range msgs {
		entry := StreamEntry{ID: msg.ID}
		switch v := msg.Values[streamPayloadField].(type) {
		case string:
			entry.Payload = []byte(v)
		case []byte:
			entry.Payload = v
		}
		entries = append(entries, entry)
	}
	return entries
}
