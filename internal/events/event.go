// Package events carries domain events from the request path to
// asynchronous consumers such as the notification writer.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeMatchCreated   Type = "match.created"
	TypeMessageSent    Type = "message.sent"
	TypeUserRegistered Type = "user.registered"
	TypeJobInterest    Type = "job.interest"
)

var ErrUnknownType = errors.New("unknown event type")

// Event is the envelope published on every transport. ID is stable across
// redeliveries and consumers derive idempotency keys from it.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type MatchCreated struct {
	MatchID     int64 `json:"match_id"`
	CandidateID int64 `json:"candidate_id"`
	PosterID    int64 `json:"poster_id"`
	JobID       int64 `json:"job_id"`
}

type MessageSent struct {
	MessageID   int64 `json:"message_id"`
	MatchID     int64 `json:"match_id"`
	SenderID    int64 `json:"sender_id"`
	RecipientID int64 `json:"recipient_id"`
}

type UserRegistered struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// JobInterest is a candidate super-like on a job, delivered to the poster.
type JobInterest struct {
	CandidateID int64 `json:"candidate_id"`
	PosterID    int64 `json:"poster_id"`
	JobID       int64 `json:"job_id"`
}

func New(eventType Type, payload any, at time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Payload:    raw,
	}, nil
}

func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Transports selectable with events.driver.
const (
	DriverRedis  = "redis"
	DriverNATS   = "nats"
	DriverInline = "inline"
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Inline hands events straight to a handler in the caller's goroutine.
type Inline struct {
	handler Handler
}

func NewInline(handler Handler) *Inline {
	return &Inline{handler: handler}
}

func (p *Inline) Publish(ctx context.Context, event Event) error {
	if p.handler == nil {
		return nil
	}
	return p.handler.Handle(ctx, event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
