// Package activity keeps the audit trail of swipes, matches, messages and
// job posts. Recording is best effort and never fails the caller.
package activity

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

const (
	EventSwipe   = "swipe"
	EventMatch   = "match"
	EventMessage = "message"
	EventJobPost = "job_post"
	EventSignup  = "signup"
)

type Store interface {
	InsertBatch(ctx context.Context, events []model.ActivityEvent) error
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) Record(ctx context.Context, userID int64, name string, props map[string]any) {
	if s == nil || s.store == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	payload, err := json.Marshal(cloneProps(props))
	if err != nil {
		s.logger.Warn("encode activity payload failed", zap.String("name", name), zap.Error(err))
		return
	}

	if err := s.store.InsertBatch(ctx, []model.ActivityEvent{{
		UserID:     userID,
		Name:       name,
		Payload:    payload,
		OccurredAt: s.now().UTC(),
	}}); err != nil {
		s.logger.Warn("record activity failed", zap.Int64("user_id", userID), zap.String("name", name), zap.Error(err))
	}
}

// Prune drops events older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.store == nil || retention <= 0 {
		return 0, nil
	}
	return s.store.PruneBefore(ctx, s.now().Add(-retention))
}

func cloneProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for key, value := range props {
		out[key] = value
	}
	return out
}
