package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, match_id, sender_id, recipient_id, content, message_type, is_read, read_at, created_at`

func (r *MessageRepo) Create(ctx context.Context, tx pgx.Tx, msg model.Message) (model.Message, error) {
	if tx == nil {
		return model.Message{}, fmt.Errorf("transaction is required")
	}
	if msg.MatchID <= 0 || msg.SenderID <= 0 || msg.RecipientID <= 0 || msg.Content == "" {
		return model.Message{}, fmt.Errorf("invalid message payload")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	created, err := scanMessage(tx.QueryRow(ctx, `
INSERT INTO messages (match_id, sender_id, recipient_id, content, message_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+messageColumns,
		msg.MatchID, msg.SenderID, msg.RecipientID, msg.Content, string(msg.MessageType), msg.CreatedAt.UTC()))
	if err != nil {
		return model.Message{}, fmt.Errorf("create message: %w", err)
	}
	return created, nil
}

// ListByMatch returns the conversation oldest first.
func (r *MessageRepo) ListByMatch(ctx context.Context, matchID int64) ([]model.Message, error) {
	if r.pool == nil {
		return []model.Message{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE match_id = $1
ORDER BY created_at ASC, id ASC
`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, msg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}
	return items, nil
}

// MarkReadForRecipient flips unread messages addressed to recipientID.
func (r *MessageRepo) MarkReadForRecipient(ctx context.Context, matchID, recipientID int64, at time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages SET
	is_read = TRUE,
	read_at = $3
WHERE match_id = $1 AND recipient_id = $2 AND is_read = FALSE
`, matchID, recipientID, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (model.Message, error) {
	var (
		msg     model.Message
		msgType string
	)
	if err := row.Scan(
		&msg.ID,
		&msg.MatchID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&msgType,
		&msg.IsRead,
		&msg.ReadAt,
		&msg.CreatedAt,
	); err != nil {
		return model.Message{}, err
	}
	msg.MessageType = enums.MessageType(msgType)
	return msg, nil
}
