package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

type ProfileUpdate struct {
	Headline           *string
	Bio                *string
	Location           *string
	AvatarURL          *string
	PreferredRemote    *bool
	PreferredJobTypes  []string
	OnboardingComplete *bool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, tx pgx.Tx, userID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO profiles (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`, userID); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) Get(ctx context.Context, userID int64) (model.Profile, error) {
	if r.pool == nil {
		return model.Profile{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.Profile{}, fmt.Errorf("invalid user id")
	}

	var p model.Profile
	err := r.pool.QueryRow(ctx, `
SELECT
	p.user_id,
	p.headline,
	p.bio,
	p.location,
	p.avatar_url,
	p.resume_key,
	p.preferred_remote,
	p.preferred_job_types,
	p.onboarding_complete,
	p.updated_at,
	COALESCE(ARRAY(
		SELECT s.name
		FROM user_skills us
		JOIN skills s ON s.id = us.skill_id
		WHERE us.user_id = p.user_id
		ORDER BY s.name
	), '{}')
FROM profiles p
WHERE p.user_id = $1
`, userID).Scan(
		&p.UserID,
		&p.Headline,
		&p.Bio,
		&p.Location,
		&p.AvatarURL,
		&p.ResumeKey,
		&p.PreferredRemote,
		&p.PreferredJobTypes,
		&p.OnboardingComplete,
		&p.UpdatedAt,
		&p.Skills,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) Update(ctx context.Context, tx pgx.Tx, userID int64, upd ProfileUpdate) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	var jobTypes any
	if upd.PreferredJobTypes != nil {
		jobTypes = upd.PreferredJobTypes
	}

	result, err := tx.Exec(ctx, `
UPDATE profiles SET
	headline = COALESCE($2, headline),
	bio = COALESCE($3, bio),
	location = COALESCE($4, location),
	avatar_url = COALESCE($5, avatar_url),
	preferred_remote = COALESCE($6, preferred_remote),
	preferred_job_types = COALESCE($7::text[], preferred_job_types),
	onboarding_complete = COALESCE($8, onboarding_complete),
	updated_at = NOW()
WHERE user_id = $1
`, userID, upd.Headline, upd.Bio, upd.Location, upd.AvatarURL, upd.PreferredRemote, jobTypes, upd.OnboardingComplete)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepo) ReplaceSkills(ctx context.Context, tx pgx.Tx, userID int64, skills []string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_skills WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user skills: %w", err)
	}

	ids, err := ensureSkills(ctx, tx, skills)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO user_skills (user_id, skill_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING
`, userID, ids); err != nil {
		return fmt.Errorf("insert user skills: %w", err)
	}
	return nil
}

func (r *ProfileRepo) SetResumeKey(ctx context.Context, userID int64, key string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	result, err := r.pool.Exec(ctx, `
UPDATE profiles SET resume_key = $2, updated_at = NOW() WHERE user_id = $1
`, userID, key)
	if err != nil {
		return fmt.Errorf("set resume key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// ensureSkills finds or creates the named skills and returns their ids.
func ensureSkills(ctx context.Context, tx pgx.Tx, names []string) ([]int64, error) {
	cleaned := NormalizeSkills(names)
	if len(cleaned) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `
INSERT INTO skills (name)
SELECT unnest($1::text[])
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`, cleaned)
	if err != nil {
		return nil, fmt.Errorf("ensure skills: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(cleaned))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan skill id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate skill ids: %w", rows.Err())
	}
	return ids, nil
}

// NormalizeSkills trims names and drops empties and case-insensitive duplicates.
func NormalizeSkills(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
