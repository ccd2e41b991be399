package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var ErrValidation = errors.New("validation error")

type Store interface {
	Insert(ctx context.Context, n model.Notification) (bool, error)
	List(ctx context.Context, recipientID int64, limit int, unreadOnly bool) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, recipientID int64, ids []uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, recipientID int64, ids []uuid.UUID) (int64, error)
	PruneRead(ctx context.Context, before time.Time) (int64, error)
}

type ListResult struct {
	Items       []model.Notification
	UnreadCount int
}

// Selection picks either explicit ids or every notification of the caller.
type Selection struct {
	IDs []uuid.UUID
	All bool
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) List(ctx context.Context, userID int64, limit int, unreadOnly bool) (ListResult, error) {
	if userID <= 0 {
		return ListResult{}, ErrValidation
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := s.store.List(ctx, userID, limit, unreadOnly)
	if err != nil {
		return ListResult{}, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return ListResult{}, fmt.Errorf("count unread notifications: %w", err)
	}
	return ListResult{Items: items, UnreadCount: unread}, nil
}

// MarkRead only touches notifications addressed to userID.
func (s *Service) MarkRead(ctx context.Context, userID int64, sel Selection) (int64, error) {
	ids, err := sel.resolve(userID)
	if err != nil {
		return 0, err
	}
	return s.store.MarkRead(ctx, userID, ids, s.now())
}

func (s *Service) Delete(ctx context.Context, userID int64, sel Selection) (int64, error) {
	ids, err := sel.resolve(userID)
	if err != nil {
		return 0, err
	}
	return s.store.Delete(ctx, userID, ids)
}

// Prune removes read notifications older than retention.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.store.PruneRead(ctx, s.now().Add(-retention))
}

// resolve returns nil for "all" so the store skips the id filter.
func (sel Selection) resolve(userID int64) ([]uuid.UUID, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if sel.All {
		return nil, nil
	}
	if len(sel.IDs) == 0 {
		return nil, ErrValidation
	}
	return sel.IDs, nil
}
