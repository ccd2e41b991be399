package swipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/domain/rules"
	"github.com/ivankudzin/jobswipe/internal/events"
	"github.com/ivankudzin/jobswipe/internal/metrics"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	activitysvc "github.com/ivankudzin/jobswipe/internal/services/activity"
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type JobReader interface {
	Get(ctx context.Context, jobID int64) (model.Job, error)
}

type SwipeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, in pgrepo.SwipeInput, now time.Time) (pgrepo.SwipeUpsertResult, error)
	FindPosterInterest(ctx context.Context, posterID, candidateID, companyID int64) (bool, error)
	FindCandidateInterest(ctx context.Context, candidateID, jobID int64) (bool, error)
}

type QuotaStore interface {
	Get(ctx context.Context, userID int64) (model.Quota, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (model.Quota, error)
	Consume(ctx context.Context, tx pgx.Tx, userID int64, swipes, superLikes int) (model.Quota, error)
}

type MatchStore interface {
	Upsert(ctx context.Context, userID, otherID, jobID int64) (int64, bool, error)
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, userID int64, name string, props map[string]any)
}

type Dependencies struct {
	Tx          TxRunner
	Jobs        JobReader
	Swipes      SwipeStore
	Quotas      QuotaStore
	Matches     MatchStore
	RateLimiter RateLimiter
	Events      events.Publisher
	Activity    ActivityRecorder
	Metrics     metrics.Recorder
	Logger      *zap.Logger
}

// QuotaSnapshot is the caller's remaining allowance. SwipesRemaining is -1
// when the plan does not meter general swipes.
type QuotaSnapshot struct {
	Plan                enums.Plan
	SwipesRemaining     int
	SuperLikesRemaining int
	AICreditsRemaining  int
	Unlimited           bool
	PeriodStartedAt     time.Time
	NextResetAt         time.Time
}

type SwipeResult struct {
	Matched bool
	MatchID int64
	Quota   QuotaSnapshot
}

type Service struct {
	tx          TxRunner
	jobs        JobReader
	swipes      SwipeStore
	quotas      QuotaStore
	matches     MatchStore
	rateLimiter RateLimiter
	events      events.Publisher
	activity    ActivityRecorder
	metrics     metrics.Recorder
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(deps Dependencies) *Service {
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Service{
		tx:          deps.Tx,
		jobs:        deps.Jobs,
		swipes:      deps.Swipes,
		quotas:      deps.Quotas,
		matches:     deps.Matches,
		rateLimiter: deps.RateLimiter,
		events:      deps.Events,
		activity:    deps.Activity,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// Swipe records a candidate's decision on a job and, for a positive
// decision, looks for the poster's reciprocal interest.
func (s *Service) Swipe(ctx context.Context, actorID, jobID int64, rawDirection string) (SwipeResult, error) {
	if actorID <= 0 || jobID <= 0 {
		return SwipeResult{}, ErrValidation
	}
	direction, err := enums.ParseDirection(rawDirection)
	if err != nil {
		return SwipeResult{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return SwipeResult{}, err
	}

	job, err := s.activeJob(ctx, jobID)
	if err != nil {
		return SwipeResult{}, err
	}
	if job.PosterID == actorID {
		return SwipeResult{}, ErrValidation
	}

	rec, err := s.record(ctx, actorID, pgrepo.SwipeInput{
		SenderID:   actorID,
		ReceiverID: job.PosterID,
		JobID:      job.ID,
		Side:       enums.SwipeSideCandidate,
		Direction:  direction,
	})
	if err != nil {
		return SwipeResult{}, err
	}

	result := SwipeResult{Quota: rec.quota}
	if direction.Positive() {
		result.MatchID, result.Matched = s.detectCandidateMatch(ctx, actorID, job)
	}
	if rec.superCharged {
		s.publish(ctx, events.TypeJobInterest, events.JobInterest{
			CandidateID: actorID,
			PosterID:    job.PosterID,
			JobID:       job.ID,
		})
	}
	return result, nil
}

// PosterSwipe records a recruiter's decision on a candidate for one of the
// recruiter's own jobs.
func (s *Service) PosterSwipe(ctx context.Context, posterID, candidateID, jobID int64, rawDirection string) (SwipeResult, error) {
	if posterID <= 0 || candidateID <= 0 || jobID <= 0 || posterID == candidateID {
		return SwipeResult{}, ErrValidation
	}
	direction, err := enums.ParseDirection(rawDirection)
	if err != nil {
		return SwipeResult{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return SwipeResult{}, err
	}

	job, err := s.activeJob(ctx, jobID)
	if err != nil {
		return SwipeResult{}, err
	}
	if job.PosterID != posterID {
		return SwipeResult{}, ErrForbidden
	}

	rec, err := s.record(ctx, posterID, pgrepo.SwipeInput{
		SenderID:   posterID,
		ReceiverID: candidateID,
		JobID:      job.ID,
		Side:       enums.SwipeSidePoster,
		Direction:  direction,
	})
	if err != nil {
		return SwipeResult{}, err
	}

	result := SwipeResult{Quota: rec.quota}
	if direction.Positive() {
		result.MatchID, result.Matched = s.detectPosterMatch(ctx, posterID, candidateID, job)
	}
	return result, nil
}

func (s *Service) Quota(ctx context.Context, userID int64) (QuotaSnapshot, error) {
	if userID <= 0 {
		return QuotaSnapshot{}, ErrValidation
	}
	if s.quotas == nil {
		return QuotaSnapshot{}, fmt.Errorf("swipe dependencies are not configured")
	}
	q, err := s.quotas.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrQuotaNotFound) {
			return QuotaSnapshot{}, ErrNotFound
		}
		return QuotaSnapshot{}, err
	}
	return s.snapshot(q), nil
}

type recorded struct {
	decision     model.SwipeDecision
	quota        QuotaSnapshot
	superCharged bool
}

// record checks the quota, writes the decision and charges the quota in one
// transaction. A rejected swipe leaves no trace.
func (s *Service) record(ctx context.Context, actorID int64, in pgrepo.SwipeInput) (recorded, error) {
	side := string(in.Side)

	if s.rateLimiter != nil {
		q, err := s.quotas.Get(ctx, actorID)
		if err != nil && !errors.Is(err, pgrepo.ErrQuotaNotFound) {
			return recorded{}, fmt.Errorf("load quota: %w", err)
		}
		if err == nil && !q.Plan.MeteredSwipes() {
			retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, actorID)
			if err != nil {
				return recorded{}, fmt.Errorf("apply swipe rate limiter: %w", err)
			}
			if !allowed {
				s.metrics.RecordTooFast()
				return recorded{}, TooFastError{RetryAfterSec: retryAfter}
			}
		}
	}

	now := s.now().UTC()
	var out recorded
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		q, err := s.quotas.GetForUpdate(txCtx, tx, actorID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrQuotaNotFound) {
				return ErrNotFound
			}
			return err
		}

		metered := q.Plan.MeteredSwipes()
		if metered && q.SwipesRemaining <= 0 {
			return ErrQuotaExceeded
		}
		if in.Direction.Super() && q.SuperLikesRemaining <= 0 {
			return ErrQuotaExceeded
		}

		res, err := s.swipes.Upsert(txCtx, tx, in, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrSwipeTargetNotFound) {
				return ErrNotFound
			}
			return err
		}

		chargeSwipes, chargeSuper := quotaCharge(metered, in.Direction, res)
		if chargeSwipes > 0 || chargeSuper > 0 {
			q, err = s.quotas.Consume(txCtx, tx, actorID, chargeSwipes, chargeSuper)
			if err != nil {
				if errors.Is(err, pgrepo.ErrQuotaExhausted) {
					return ErrQuotaExceeded
				}
				return err
			}
		}

		out = recorded{
			decision:     res.Decision,
			quota:        s.snapshot(q),
			superCharged: chargeSuper > 0,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.metrics.RecordQuotaExceeded(side)
		}
		return recorded{}, err
	}

	s.metrics.RecordSwipe(side, string(in.Direction))
	if s.activity != nil {
		s.activity.Record(ctx, actorID, activitysvc.EventSwipe, map[string]any{
			"side":        side,
			"job_id":      in.JobID,
			"receiver_id": in.ReceiverID,
			"direction":   string(in.Direction),
		})
	}
	return out, nil
}

// quotaCharge returns how much a recorded decision costs. Only new decisions
// cost a general swipe, and only on metered plans. A super-like costs one
// super-like unless the decision already was a super-like.
func quotaCharge(metered bool, direction enums.Direction, res pgrepo.SwipeUpsertResult) (int, int) {
	swipes, super := 0, 0
	if metered && res.Inserted {
		swipes = 1
	}
	if direction.Super() && (res.Inserted || !res.Previous.Super()) {
		super = 1
	}
	return swipes, super
}

func (s *Service) detectCandidateMatch(ctx context.Context, candidateID int64, job model.Job) (int64, bool) {
	found, err := s.swipes.FindPosterInterest(ctx, job.PosterID, candidateID, job.CompanyID)
	if err != nil {
		s.detectionFailed(err, candidateID, job.ID)
		return 0, false
	}
	if !found {
		return 0, false
	}
	return s.upsertMatch(ctx, candidateID, job)
}

func (s *Service) detectPosterMatch(ctx context.Context, posterID, candidateID int64, job model.Job) (int64, bool) {
	found, err := s.swipes.FindCandidateInterest(ctx, candidateID, job.ID)
	if err != nil {
		s.detectionFailed(err, posterID, job.ID)
		return 0, false
	}
	if !found {
		return 0, false
	}
	return s.upsertMatch(ctx, candidateID, job)
}

func (s *Service) upsertMatch(ctx context.Context, candidateID int64, job model.Job) (int64, bool) {
	matchID, created, err := s.matches.Upsert(ctx, candidateID, job.PosterID, job.ID)
	if err != nil {
		s.detectionFailed(err, candidateID, job.ID)
		return 0, false
	}
	if !created {
		return matchID, true
	}

	s.metrics.RecordMatchCreated()
	s.publish(ctx, events.TypeMatchCreated, events.MatchCreated{
		MatchID:     matchID,
		CandidateID: candidateID,
		PosterID:    job.PosterID,
		JobID:       job.ID,
	})
	if s.activity != nil {
		props := map[string]any{"match_id": matchID, "job_id": job.ID}
		s.activity.Record(ctx, candidateID, activitysvc.EventMatch, props)
		s.activity.Record(ctx, job.PosterID, activitysvc.EventMatch, props)
	}
	return matchID, true
}

func (s *Service) detectionFailed(err error, userID, jobID int64) {
	s.metrics.RecordDetectionError()
	s.logger.Error("match detection failed",
		zap.Int64("user_id", userID),
		zap.Int64("job_id", jobID),
		zap.Error(err),
	)
}

func (s *Service) publish(ctx context.Context, eventType events.Type, payload any) {
	event, err := events.New(eventType, payload, s.now())
	if err == nil {
		err = s.events.Publish(ctx, event)
	}
	s.metrics.RecordEventPublish(string(eventType), err)
	if err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (s *Service) activeJob(ctx context.Context, jobID int64) (model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrJobNotFound) {
			return model.Job{}, ErrNotFound
		}
		return model.Job{}, fmt.Errorf("load job: %w", err)
	}
	if job.Status != enums.JobStatusActive {
		return model.Job{}, ErrNotFound
	}
	return job, nil
}

func (s *Service) snapshot(q model.Quota) QuotaSnapshot {
	snap := QuotaSnapshot{
		Plan:                q.Plan,
		SwipesRemaining:     q.SwipesRemaining,
		SuperLikesRemaining: q.SuperLikesRemaining,
		AICreditsRemaining:  q.AICreditsRemaining,
		PeriodStartedAt:     q.PeriodStartedAt,
		NextResetAt:         rules.NextResetAt(s.now(), time.UTC),
	}
	if !q.Plan.MeteredSwipes() {
		snap.SwipesRemaining = -1
		snap.Unlimited = true
	}
	return snap
}

func (s *Service) ready() error {
	if s.tx == nil || s.jobs == nil || s.swipes == nil || s.quotas == nil || s.matches == nil {
		return fmt.Errorf("swipe dependencies are not configured")
	}
	return nil
}
