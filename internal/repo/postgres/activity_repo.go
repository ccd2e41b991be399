package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

var activityColumns = []string{"user_id", "name", "payload", "occurred_at"}

// ActivityRepo is append-only storage for analytics events. Without a pool
// every call is a silent no-op.
type ActivityRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool, now: time.Now}
}

// InsertBatch streams events with COPY. Anonymous events store a NULL user.
func (r *ActivityRepo) InsertBatch(ctx context.Context, events []model.ActivityEvent) error {
	if r.pool == nil || len(events) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rows = append(rows, activityRow(ev, r.now))
	}

	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"activity_events"}, activityColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy %d activity events: %w", len(rows), err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copied %d of %d activity events", n, len(rows))
	}
	return nil
}

func (r *ActivityRepo) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_events WHERE occurred_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune activity events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func activityRow(ev model.ActivityEvent, now func() time.Time) []any {
	var userID any
	if ev.UserID > 0 {
		userID = ev.UserID
	}
	payload := []byte(ev.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	at := ev.OccurredAt
	if at.IsZero() {
		at = now()
	}
	return []any{userID, ev.Name, payload, at.UTC()}
}
