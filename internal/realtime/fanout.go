package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

const (
	DefaultChannel = "jobswipe:notifications"
	publishTimeout = 2 * time.Second
)

type envelope struct {
	UserID       int64              `json:"user_id"`
	Notification model.Notification `json:"notification"`
}

// Pusher matches the hub's delivery method.
type Pusher interface {
	Push(userID int64, n model.Notification)
}

// RedisFanout carries notifications written by the worker to the API
// processes holding the websocket connections.
type RedisFanout struct {
	client  *goredis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisFanout(client *goredis.Client, channel string, logger *zap.Logger) *RedisFanout {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFanout{client: client, channel: channel, logger: logger}
}

// Push publishes n for delivery by whichever API process holds the user's
// connections. Failures are logged only.
func (f *RedisFanout) Push(userID int64, n model.Notification) {
	payload, err := json.Marshal(envelope{UserID: userID, Notification: n})
	if err != nil {
		f.logger.Warn("encode fanout envelope failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		f.logger.Warn("publish fanout failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Relay forwards published notifications to local until ctx is done.
func (f *RedisFanout) Relay(ctx context.Context, local Pusher) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.logger.Warn("decode fanout envelope failed", zap.Error(err))
				continue
			}
			local.Push(env.UserID, env.Notification)
		}
	}
}
