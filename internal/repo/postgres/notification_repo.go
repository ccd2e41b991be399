package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

const notificationColumns = `id::text, recipient_id, type, title, body, action_url, is_read, read_at, created_at`

// Insert stores n unless a notification with the same id exists. Redelivered
// events produce the same id, so a repeat is reported as inserted=false.
func (r *NotificationRepo) Insert(ctx context.Context, n model.Notification) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if n.RecipientID <= 0 || n.ID == uuid.Nil {
		return false, fmt.Errorf("invalid notification payload")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
INSERT INTO notifications (id, recipient_id, type, title, body, action_url, created_at)
VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`, n.ID.String(), n.RecipientID, string(n.Type), n.Title, n.Body, n.ActionURL, n.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *NotificationRepo) List(ctx context.Context, recipientID int64, limit int, unreadOnly bool) ([]model.Notification, error) {
	if r.pool == nil {
		return []model.Notification{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE recipient_id = $1 AND ($3::bool = FALSE OR is_read = FALSE)
ORDER BY created_at DESC, id
LIMIT $2
`, recipientID, limit, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]model.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate notifications: %w", rows.Err())
	}
	return items, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	if r.pool == nil {
		return 0, nil
	}
	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE
`, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks the listed notifications read, or all of the recipient's
// notifications when ids is nil.
func (r *NotificationRepo) MarkRead(ctx context.Context, recipientID int64, ids []uuid.UUID, at time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
UPDATE notifications SET
	is_read = TRUE,
	read_at = $3
WHERE recipient_id = $1
	AND is_read = FALSE
	AND ($2::text[] IS NULL OR id = ANY($2::text[]::uuid[]))
`, recipientID, uuidStrings(ids), at.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}

// Delete removes the listed notifications, or all of them when ids is nil.
func (r *NotificationRepo) Delete(ctx context.Context, recipientID int64, ids []uuid.UUID) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM notifications
WHERE recipient_id = $1
	AND ($2::text[] IS NULL OR id = ANY($2::text[]::uuid[]))
`, recipientID, uuidStrings(ids))
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return result.RowsAffected(), nil
}

// PruneRead drops read notifications created before the cutoff.
func (r *NotificationRepo) PruneRead(ctx context.Context, before time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	result, err := r.pool.Exec(ctx, `
DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1
`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune read notifications: %w", err)
	}
	return result.RowsAffected(), nil
}

func uuidStrings(ids []uuid.UUID) any {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var (
		n     model.Notification
		id    string
		ntype string
	)
	if err := row.Scan(
		&id,
		&n.RecipientID,
		&ntype,
		&n.Title,
		&n.Body,
		&n.ActionURL,
		&n.IsRead,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return model.Notification{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("parse notification id: %w", err)
	}
	n.ID = parsed
	n.Type = enums.NotificationType(ntype)
	return n, nil
}
