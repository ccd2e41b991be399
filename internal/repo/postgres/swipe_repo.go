package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

// ErrSwipeTargetNotFound is returned when the receiver or job of a swipe
// does not exist.
var ErrSwipeTargetNotFound = errors.New("swipe target not found")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type SwipeInput struct {
	SenderID   int64
	ReceiverID int64
	JobID      int64
	Side       enums.SwipeSide
	Direction  enums.Direction
}

type SwipeUpsertResult struct {
	Decision model.SwipeDecision
	// Inserted is true when no decision existed for the key before.
	Inserted bool
	// Previous is the direction replaced by this write, empty when inserted.
	Previous enums.Direction
}

// Upsert records or overwrites the decision keyed by (sender, receiver, job).
func (r *SwipeRepo) Upsert(ctx context.Context, tx pgx.Tx, in SwipeInput, now time.Time) (SwipeUpsertResult, error) {
	if in.SenderID <= 0 || in.ReceiverID <= 0 || in.JobID <= 0 || in.Direction == "" {
		return SwipeUpsertResult{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return SwipeUpsertResult{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var (
		res       SwipeUpsertResult
		side      string
		direction string
		previous  *string
	)
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	sender_id,
	receiver_id,
	job_id,
	side,
	direction,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (sender_id, receiver_id, job_id) DO UPDATE SET
	previous_direction = swipes.direction,
	direction = EXCLUDED.direction,
	updated_at = EXCLUDED.updated_at
RETURNING id, sender_id, receiver_id, job_id, side, direction, previous_direction, created_at, updated_at, (xmax = 0)
`, in.SenderID, in.ReceiverID, in.JobID, string(in.Side), string(in.Direction), now.UTC()).Scan(
		&res.Decision.ID,
		&res.Decision.SenderID,
		&res.Decision.ReceiverID,
		&res.Decision.JobID,
		&side,
		&direction,
		&previous,
		&res.Decision.CreatedAt,
		&res.Decision.UpdatedAt,
		&res.Inserted,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return SwipeUpsertResult{}, ErrSwipeTargetNotFound
		}
		return SwipeUpsertResult{}, fmt.Errorf("upsert swipe: %w", err)
	}

	res.Decision.Side = enums.SwipeSide(side)
	res.Decision.Direction = enums.Direction(direction)
	if !res.Inserted && previous != nil {
		res.Previous = enums.Direction(*previous)
	}
	return res, nil
}

// FindPosterInterest looks for a positive poster-side decision by posterID
// about candidateID on any job of companyID.
func (r *SwipeRepo) FindPosterInterest(ctx context.Context, posterID, candidateID, companyID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM swipes s
JOIN jobs j ON j.id = s.job_id
WHERE s.sender_id = $1
	AND s.receiver_id = $2
	AND s.side = 'poster'
	AND s.direction IN ('interested', 'super_interested')
	AND j.company_id = $3
LIMIT 1
`, posterID, candidateID, companyID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup poster interest: %w", err)
	}
	return true, nil
}

// FindCandidateInterest reports whether candidateID swiped positively on jobID.
func (r *SwipeRepo) FindCandidateInterest(ctx context.Context, candidateID, jobID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE sender_id = $1
	AND job_id = $2
	AND side = 'candidate'
	AND direction IN ('interested', 'super_interested')
LIMIT 1
`, candidateID, jobID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup candidate interest: %w", err)
	}
	return true, nil
}
