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

var (
	ErrQuotaNotFound  = errors.New("subscription quota not found")
	ErrQuotaExhausted = errors.New("subscription quota exhausted")
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

const quotaColumns = `user_id, plan, swipes_remaining, super_likes_remaining, ai_credits_remaining, period_started_at`

func (r *SubscriptionRepo) Create(ctx context.Context, tx pgx.Tx, q model.Quota) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if q.UserID <= 0 || q.AICreditsRemaining < 0 {
		return fmt.Errorf("invalid subscription payload")
	}
	if q.PeriodStartedAt.IsZero() {
		q.PeriodStartedAt = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO subscriptions (user_id, plan, swipes_remaining, super_likes_remaining, ai_credits_remaining, period_started_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO NOTHING
`, q.UserID, string(q.Plan), q.SwipesRemaining, q.SuperLikesRemaining, q.AICreditsRemaining, q.PeriodStartedAt.UTC()); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) Get(ctx context.Context, userID int64) (model.Quota, error) {
	if r.pool == nil {
		return model.Quota{}, fmt.Errorf("postgres pool is nil")
	}

	q, err := scanQuota(r.pool.QueryRow(ctx, `
SELECT `+quotaColumns+`
FROM subscriptions
WHERE user_id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Quota{}, ErrQuotaNotFound
		}
		return model.Quota{}, fmt.Errorf("get subscription: %w", err)
	}
	return q, nil
}

// GetForUpdate locks the quota row for the rest of the transaction.
func (r *SubscriptionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (model.Quota, error) {
	if tx == nil {
		return model.Quota{}, fmt.Errorf("transaction is required")
	}

	q, err := scanQuota(tx.QueryRow(ctx, `
SELECT `+quotaColumns+`
FROM subscriptions
WHERE user_id = $1
FOR UPDATE
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Quota{}, ErrQuotaNotFound
		}
		return model.Quota{}, fmt.Errorf("lock subscription: %w", err)
	}
	return q, nil
}

// Consume subtracts the given amounts only if both counters can cover them.
func (r *SubscriptionRepo) Consume(ctx context.Context, tx pgx.Tx, userID int64, swipes, superLikes int) (model.Quota, error) {
	if tx == nil {
		return model.Quota{}, fmt.Errorf("transaction is required")
	}
	if swipes < 0 || superLikes < 0 {
		return model.Quota{}, fmt.Errorf("invalid quota consume payload")
	}

	q, err := scanQuota(tx.QueryRow(ctx, `
UPDATE subscriptions SET
	swipes_remaining = swipes_remaining - $2,
	super_likes_remaining = super_likes_remaining - $3,
	updated_at = NOW()
WHERE user_id = $1
	AND swipes_remaining >= $2
	AND super_likes_remaining >= $3
RETURNING `+quotaColumns, userID, swipes, superLikes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Quota{}, ErrQuotaExhausted
		}
		return model.Quota{}, fmt.Errorf("consume subscription quota: %w", err)
	}
	return q, nil
}

// ConsumeAICredit takes one AI credit and returns what is left. It fails
// with ErrQuotaExhausted when the user has none or no subscription row.
func (r *SubscriptionRepo) ConsumeAICredit(ctx context.Context, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var left int
	err := r.pool.QueryRow(ctx, `
UPDATE subscriptions SET
	ai_credits_remaining = ai_credits_remaining - 1,
	updated_at = NOW()
WHERE user_id = $1
	AND ai_credits_remaining > 0
RETURNING ai_credits_remaining
`, userID).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaExhausted
		}
		return 0, fmt.Errorf("consume ai credit: %w", err)
	}
	return left, nil
}

// RefundAICredit gives back a credit taken for a request that then failed.
func (r *SubscriptionRepo) RefundAICredit(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := r.pool.Exec(ctx, `
UPDATE subscriptions SET
	ai_credits_remaining = ai_credits_remaining + 1,
	updated_at = NOW()
WHERE user_id = $1
`, userID); err != nil {
		return fmt.Errorf("refund ai credit: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) SetPlan(ctx context.Context, userID int64, plan enums.Plan, superLikes int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	result, err := r.pool.Exec(ctx, `
UPDATE subscriptions SET
	plan = $2,
	super_likes_remaining = GREATEST(super_likes_remaining, $3),
	updated_at = NOW()
WHERE user_id = $1
`, userID, string(plan), superLikes)
	if err != nil {
		return fmt.Errorf("set subscription plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrQuotaNotFound
	}
	return nil
}

// Refill resets every subscription for a new period.
func (r *SubscriptionRepo) Refill(ctx context.Context, freeSwipes, freeSuperLikes, paidSuperLikes int, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}
	result, err := r.pool.Exec(ctx, `
UPDATE subscriptions SET
	swipes_remaining = $1,
	super_likes_remaining = CASE WHEN plan = 'free' THEN $2 ELSE $3 END,
	period_started_at = $4,
	updated_at = NOW()
`, freeSwipes, freeSuperLikes, paidSuperLikes, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("refill subscriptions: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanQuota(row pgx.Row) (model.Quota, error) {
	var (
		q    model.Quota
		plan string
	)
	if err := row.Scan(&q.UserID, &plan, &q.SwipesRemaining, &q.SuperLikesRemaining, &q.AICreditsRemaining, &q.PeriodStartedAt); err != nil {
		return model.Quota{}, err
	}
	q.Plan = enums.ParsePlan(plan)
	return q, nil
}
