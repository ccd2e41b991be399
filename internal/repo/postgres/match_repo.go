package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

// MatchSummaryRecord is one row of a user's match list.
type MatchSummaryRecord struct {
	Match              model.Match
	CounterpartID      int64
	CounterpartName    string
	CounterpartRole    string
	CounterpartTitle   string
	CounterpartAvatar  string
	JobTitle           string
	CompanyName        string
	LastMessage        *string
	LastMessageSender  *int64
	LastMessageAt      *time.Time
	LastMessageIsRead  *bool
	UnreadForRequester int
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// Upsert creates the match for the unordered pair and job once. created is
// false when the match already existed; the existing id is returned.
func (r *MatchRepo) Upsert(ctx context.Context, userID, otherID, jobID int64) (int64, bool, error) {
	if userID <= 0 || otherID <= 0 || jobID <= 0 || userID == otherID {
		return 0, false, fmt.Errorf("invalid match payload")
	}
	if r.pool == nil {
		return 0, false, fmt.Errorf("postgres pool is nil")
	}

	userA, userB := model.OrderedPair(userID, otherID)

	var matchID int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	job_id,
	status,
	created_at
) VALUES ($1, $2, $3, 'active', NOW())
ON CONFLICT (user_a_id, user_b_id, job_id) DO NOTHING
RETURNING id
`, userA, userB, jobID).Scan(&matchID)
	if err == nil {
		return matchID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("create match: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
SELECT id
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2 AND job_id = $3
`, userA, userB, jobID).Scan(&matchID)
	if err != nil {
		return 0, false, fmt.Errorf("load existing match: %w", err)
	}
	return matchID, false, nil
}

func (r *MatchRepo) Get(ctx context.Context, matchID int64) (model.Match, error) {
	if r.pool == nil {
		return model.Match{}, fmt.Errorf("postgres pool is nil")
	}
	if matchID <= 0 {
		return model.Match{}, ErrMatchNotFound
	}

	var m model.Match
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, job_id, status, created_at, last_message_at
FROM matches
WHERE id = $1
`, matchID).Scan(&m.ID, &m.UserAID, &m.UserBID, &m.JobID, &m.Status, &m.CreatedAt, &m.LastMessageAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) TouchLastMessage(ctx context.Context, tx pgx.Tx, matchID int64, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if _, err := tx.Exec(ctx, `
UPDATE matches SET last_message_at = $2 WHERE id = $1
`, matchID, at.UTC()); err != nil {
		return fmt.Errorf("touch match last message: %w", err)
	}
	return nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]MatchSummaryRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchSummaryRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, matchSummarySelect+`
WHERE
	(m.user_a_id = $1 OR m.user_b_id = $1)
	AND m.status = 'active'
ORDER BY m.last_message_at DESC NULLS LAST, m.created_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchSummaryRecord, 0)
	for rows.Next() {
		item, err := scanMatchSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match summary: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}

	return items, nil
}

// GetSummary loads one match as seen by userID. Participation is not
// checked here.
func (r *MatchRepo) GetSummary(ctx context.Context, matchID, userID int64) (MatchSummaryRecord, error) {
	if r.pool == nil {
		return MatchSummaryRecord{}, fmt.Errorf("postgres pool is nil")
	}

	item, err := scanMatchSummary(r.pool.QueryRow(ctx, matchSummarySelect+`
WHERE m.id = $2
`, userID, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchSummaryRecord{}, ErrMatchNotFound
		}
		return MatchSummaryRecord{}, fmt.Errorf("get match summary: %w", err)
	}
	return item, nil
}

// $1 is the requesting user.
const matchSummarySelect = `
SELECT
	m.id,
	m.user_a_id,
	m.user_b_id,
	m.job_id,
	m.status,
	m.created_at,
	m.last_message_at,
	u.id,
	u.name,
	u.role,
	COALESCE(p.headline, ''),
	COALESCE(p.avatar_url, ''),
	j.title,
	c.name,
	lm.content,
	lm.sender_id,
	lm.created_at,
	lm.is_read,
	(
		SELECT COUNT(*)
		FROM messages um
		WHERE um.match_id = m.id AND um.recipient_id = $1 AND um.is_read = FALSE
	)
FROM matches m
JOIN users u ON u.id = CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END
LEFT JOIN profiles p ON p.user_id = u.id
JOIN jobs j ON j.id = m.job_id
JOIN companies c ON c.id = j.company_id
LEFT JOIN LATERAL (
	SELECT content, sender_id, created_at, is_read
	FROM messages
	WHERE match_id = m.id
	ORDER BY created_at DESC, id DESC
	LIMIT 1
) lm ON TRUE
`

func scanMatchSummary(row pgx.Row) (MatchSummaryRecord, error) {
	var item MatchSummaryRecord
	err := row.Scan(
		&item.Match.ID,
		&item.Match.UserAID,
		&item.Match.UserBID,
		&item.Match.JobID,
		&item.Match.Status,
		&item.Match.CreatedAt,
		&item.Match.LastMessageAt,
		&item.CounterpartID,
		&item.CounterpartName,
		&item.CounterpartRole,
		&item.CounterpartTitle,
		&item.CounterpartAvatar,
		&item.JobTitle,
		&item.CompanyName,
		&item.LastMessage,
		&item.LastMessageSender,
		&item.LastMessageAt,
		&item.LastMessageIsRead,
		&item.UnreadForRequester,
	)
	return item, err
}
