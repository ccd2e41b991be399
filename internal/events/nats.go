package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const headerEventType = "Event-Type"

type NATSPublisher struct {
	js     nats.JetStreamContext
	prefix string
}

func NewNATSPublisher(js nats.JetStreamContext, subjectPrefix string) *NATSPublisher {
	return &NATSPublisher{js: js, prefix: subjectPrefix}
}

// Publish waits for the stream to store the event. The event id doubles as
// the message id so a retried publish is deduplicated by the server.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if p.js == nil {
		return fmt.Errorf("jetstream context is nil")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := nats.NewMsg(Subject(p.prefix, event.Type))
	msg.Data = raw
	msg.Header.Set(headerEventType, string(event.Type))
	msg.Header.Set(nats.MsgIdHdr, event.ID.String())

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subject maps an event type onto the subject it is published on.
func Subject(prefix string, eventType Type) string {
	if prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}

// SubjectFilter matches every event subject under prefix.
func SubjectFilter(prefix string) string {
	if prefix == "" {
		return ">"
	}
	return prefix + ".>"
}

type NATSConsumerConfig struct {
	SubjectPrefix string
	// Queue names both the queue group and the durable consumer.
	Queue         string
	AckWait       time.Duration
	MaxAckPending int
	MaxDeliveries int
	RetryBackoff  time.Duration
}

func (c NATSConsumerConfig) withDefaults() NATSConsumerConfig {
	if c.Queue == "" {
		c.Queue = "notifications"
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.MaxAckPending <= 0 {
		c.MaxAckPending = 256
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	return c
}

// SubscribeNATS joins a durable JetStream queue consumer on every event
// subject. Each event is acked once the handler succeeds, redelivered after
// RetryBackoff when it fails, and terminated after MaxDeliveries attempts.
func SubscribeNATS(js nats.JetStreamContext, cfg NATSConsumerConfig, handler Handler, logger *zap.Logger) (*nats.Subscription, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream context is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	subject := SubjectFilter(cfg.SubjectPrefix)
	sub, err := js.QueueSubscribe(subject, cfg.Queue, func(msg *nats.Msg) {
		settle(context.Background(), msg, msg.Data, handler, cfg, logger)
	},
		nats.ManualAck(),
		nats.Durable(cfg.Queue),
		nats.AckWait(cfg.AckWait),
		nats.MaxAckPending(cfg.MaxAckPending),
		nats.MaxDeliver(cfg.MaxDeliveries),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// ackable is the part of *nats.Msg the consumer settles deliveries with.
type ackable interface {
	Ack(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
	Metadata() (*nats.MsgMetadata, error)
}

func settle(ctx context.Context, msg ackable, data []byte, handler Handler, cfg NATSConsumerConfig, logger *zap.Logger) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Error("terminate undecodable nats event", zap.Error(err))
		if err := msg.Term(); err != nil {
			logger.Warn("term nats message failed", zap.Error(err))
		}
		return
	}

	handleErr := handler.Handle(ctx, event)
	if handleErr == nil {
		if err := msg.Ack(); err != nil {
			logger.Warn("ack nats message failed", zap.String("event_id", event.ID.String()), zap.Error(err))
		}
		return
	}

	var delivered uint64
	if meta, err := msg.Metadata(); err == nil {
		delivered = meta.NumDelivered
	}
	fields := []zap.Field{
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.Type)),
		zap.Uint64("deliveries", delivered),
		zap.Error(handleErr),
	}
	if delivered >= uint64(cfg.MaxDeliveries) {
		logger.Error("give up on nats event", fields...)
		if err := msg.Term(); err != nil {
			logger.Warn("term nats message failed", zap.Error(err))
		}
		return
	}
	logger.Warn("handle nats event failed, will retry", fields...)
	if err := msg.NakWithDelay(cfg.RetryBackoff); err != nil {
		logger.Warn("nak nats message failed", zap.Error(err))
	}
}
