package notifications

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

type memStore struct {
	items []model.Notification
}

func (s *memStore) Insert(_ context.Context, n model.Notification) (bool, error) {
	for _, existing := range s.items {
		if existing.ID == n.ID {
			return false, nil
		}
	}
	s.items = append(s.items, n)
	return true, nil
}

func (s *memStore) List(_ context.Context, recipientID int64, limit int, unreadOnly bool) ([]model.Notification, error) {
	out := make([]model.Notification, 0)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.items[i]
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *memStore) CountUnread(_ context.Context, recipientID int64) (int, error) {
	count := 0
	for _, n := range s.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memStore) MarkRead(_ context.Context, recipientID int64, ids []uuid.UUID, at time.Time) (int64, error) {
	var changed int64
	for i := range s.items {
		n := &s.items[i]
		if n.RecipientID != recipientID || n.IsRead || (ids != nil && !slices.Contains(ids, n.ID)) {
			continue
		}
		n.IsRead = true
		readAt := at
		n.ReadAt = &readAt
		changed++
	}
	return changed, nil
}

func (s *memStore) Delete(_ context.Context, recipientID int64, ids []uuid.UUID) (int64, error) {
	kept := s.items[:0]
	var removed int64
	for _, n := range s.items {
		if n.RecipientID == recipientID && (ids == nil || slices.Contains(ids, n.ID)) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	return removed, nil
}

func (s *memStore) PruneRead(_ context.Context, before time.Time) (int64, error) {
	kept := s.items[:0]
	var removed int64
	for _, n := range s.items {
		if n.IsRead && n.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	return removed, nil
}

func (s *memStore) forRecipient(userID int64) []model.Notification {
	out := make([]model.Notification, 0)
	for _, n := range s.items {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out
}
