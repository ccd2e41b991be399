package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

type JobSeekerStats struct {
	Swipes          int
	InterestedSent  int
	Matches         int
	UnreadMessages  int
	ProfileSkills   int
	ResumeUploaded  bool
	OnboardingReady bool
}

type RecruiterStats struct {
	ActiveJobs        int
	TotalViews        int
	CandidateInterest int
	PendingReview     int
	Matches           int
	UnreadMessages    int
	HasCompanyProfile bool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) JobSeeker(ctx context.Context, userID int64) (JobSeekerStats, error) {
	if r.pool == nil {
		return JobSeekerStats{}, nil
	}

	var s JobSeekerStats
	err := r.pool.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM swipes WHERE sender_id = $1 AND side = 'candidate'),
	(SELECT COUNT(*) FROM swipes WHERE sender_id = $1 AND side = 'candidate' AND direction IN ('interested', 'super_interested')),
	(SELECT COUNT(*) FROM matches WHERE (user_a_id = $1 OR user_b_id = $1) AND status = 'active'),
	(SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND is_read = FALSE),
	(SELECT COUNT(*) FROM user_skills WHERE user_id = $1),
	COALESCE((SELECT resume_key <> '' FROM profiles WHERE user_id = $1), FALSE),
	COALESCE((SELECT onboarding_complete FROM profiles WHERE user_id = $1), FALSE)
`, userID).Scan(
		&s.Swipes,
		&s.InterestedSent,
		&s.Matches,
		&s.UnreadMessages,
		&s.ProfileSkills,
		&s.ResumeUploaded,
		&s.OnboardingReady,
	)
	if err != nil {
		return JobSeekerStats{}, fmt.Errorf("load job seeker stats: %w", err)
	}
	return s, nil
}

// Recruiter counts candidate interest as positive candidate swipes on the
// recruiter's jobs; PendingReview is the subset the recruiter has not
// answered with a poster-side decision yet.
func (r *StatsRepo) Recruiter(ctx context.Context, userID int64) (RecruiterStats, error) {
	if r.pool == nil {
		return RecruiterStats{}, nil
	}

	var s RecruiterStats
	err := r.pool.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM jobs WHERE poster_id = $1 AND status = 'active'),
	(SELECT COALESCE(SUM(view_count), 0) FROM jobs WHERE poster_id = $1),
	(SELECT COUNT(*) FROM swipes s JOIN jobs j ON j.id = s.job_id
		WHERE j.poster_id = $1 AND s.side = 'candidate' AND s.direction IN ('interested', 'super_interested')),
	(SELECT COUNT(*) FROM swipes s JOIN jobs j ON j.id = s.job_id
		WHERE j.poster_id = $1 AND s.side = 'candidate' AND s.direction IN ('interested', 'super_interested')
			AND NOT EXISTS (
				SELECT 1 FROM swipes ps
				WHERE ps.sender_id = $1 AND ps.receiver_id = s.sender_id AND ps.job_id = s.job_id AND ps.side = 'poster'
			)),
	(SELECT COUNT(*) FROM matches WHERE (user_a_id = $1 OR user_b_id = $1) AND status = 'active'),
	(SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND is_read = FALSE),
	EXISTS (SELECT 1 FROM companies WHERE owner_id = $1)
`, userID).Scan(
		&s.ActiveJobs,
		&s.TotalViews,
		&s.CandidateInterest,
		&s.PendingReview,
		&s.Matches,
		&s.UnreadMessages,
		&s.HasCompanyProfile,
	)
	if err != nil {
		return RecruiterStats{}, fmt.Errorf("load recruiter stats: %w", err)
	}
	return s, nil
}
