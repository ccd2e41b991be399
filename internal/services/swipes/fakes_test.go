package swipes

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

type swipeKey struct {
	sender, receiver, job int64
}

type matchKey struct {
	a, b, job int64
}

// memDB is an in-memory stand-in for the postgres repositories. WithinTx
// restores the previous state when fn fails.
type memDB struct {
	jobs      map[int64]model.Job
	swipes    map[swipeKey]model.SwipeDecision
	quotas    map[int64]model.Quota
	matches   map[matchKey]int64
	nextMatch int64
	nextSwipe int64
	// missingUsers behave like ids with no users row.
	missingUsers map[int64]bool

	detectErr error
}

func newMemDB() *memDB {
	return &memDB{
		jobs:    map[int64]model.Job{},
		swipes:  map[swipeKey]model.SwipeDecision{},
		quotas:  map[int64]model.Quota{},
		matches: map[matchKey]int64{},
	}
}

func (db *memDB) WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	swipes := maps.Clone(db.swipes)
	quotas := maps.Clone(db.quotas)
	nextSwipe := db.nextSwipe
	if err := fn(ctx, nil); err != nil {
		db.swipes = swipes
		db.quotas = quotas
		db.nextSwipe = nextSwipe
		return err
	}
	return nil
}

func (db *memDB) Get(_ context.Context, jobID int64) (model.Job, error) {
	job, ok := db.jobs[jobID]
	if !ok {
		return model.Job{}, pgrepo.ErrJobNotFound
	}
	return job, nil
}

type swipeStore struct{ db *memDB }

func (s swipeStore) Upsert(_ context.Context, _ pgx.Tx, in pgrepo.SwipeInput, now time.Time) (pgrepo.SwipeUpsertResult, error) {
	if s.db.missingUsers[in.ReceiverID] {
		return pgrepo.SwipeUpsertResult{}, pgrepo.ErrSwipeTargetNotFound
	}
	key := swipeKey{in.SenderID, in.ReceiverID, in.JobID}
	existing, ok := s.db.swipes[key]
	if ok {
		previous := existing.Direction
		existing.Direction = in.Direction
		existing.UpdatedAt = now
		s.db.swipes[key] = existing
		return pgrepo.SwipeUpsertResult{Decision: existing, Previous: previous}, nil
	}
	s.db.nextSwipe++
	d := model.SwipeDecision{
		ID:         s.db.nextSwipe,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		JobID:      in.JobID,
		Side:       in.Side,
		Direction:  in.Direction,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.db.swipes[key] = d
	return pgrepo.SwipeUpsertResult{Decision: d, Inserted: true}, nil
}

func (s swipeStore) FindPosterInterest(_ context.Context, posterID, candidateID, companyID int64) (bool, error) {
	if s.db.detectErr != nil {
		return false, s.db.detectErr
	}
	for key, d := range s.db.swipes {
		if key.sender != posterID || key.receiver != candidateID || d.Side != enums.SwipeSidePoster || !d.Direction.Positive() {
			continue
		}
		if s.db.jobs[key.job].CompanyID == companyID {
			return true, nil
		}
	}
	return false, nil
}

func (s swipeStore) FindCandidateInterest(_ context.Context, candidateID, jobID int64) (bool, error) {
	if s.db.detectErr != nil {
		return false, s.db.detectErr
	}
	for key, d := range s.db.swipes {
		if key.sender == candidateID && key.job == jobID && d.Side == enums.SwipeSideCandidate && d.Direction.Positive() {
			return true, nil
		}
	}
	return false, nil
}

type quotaStore struct{ db *memDB }

func (s quotaStore) Get(_ context.Context, userID int64) (model.Quota, error) {
	q, ok := s.db.quotas[userID]
	if !ok {
		return model.Quota{}, pgrepo.ErrQuotaNotFound
	}
	return q, nil
}

func (s quotaStore) GetForUpdate(ctx context.Context, _ pgx.Tx, userID int64) (model.Quota, error) {
	return s.Get(ctx, userID)
}

func (s quotaStore) Consume(_ context.Context, _ pgx.Tx, userID int64, swipes, superLikes int) (model.Quota, error) {
	q, ok := s.db.quotas[userID]
	if !ok {
		return model.Quota{}, pgrepo.ErrQuotaNotFound
	}
	if q.SwipesRemaining < swipes || q.SuperLikesRemaining < superLikes {
		return model.Quota{}, pgrepo.ErrQuotaExhausted
	}
	q.SwipesRemaining -= swipes
	q.SuperLikesRemaining -= superLikes
	s.db.quotas[userID] = q
	return q, nil
}

type matchStore struct{ db *memDB }

func (s matchStore) Upsert(_ context.Context, userID, otherID, jobID int64) (int64, bool, error) {
	if userID == otherID {
		return 0, false, errors.New("invalid match payload")
	}
	a, b := model.OrderedPair(userID, otherID)
	key := matchKey{a, b, jobID}
	if id, ok := s.db.matches[key]; ok {
		return id, false, nil
	}
	s.db.nextMatch++
	s.db.matches[key] = s.db.nextMatch
	return s.db.nextMatch, true, nil
}

type publisherStub struct {
	events []events.Event
	err    error
}

func (p *publisherStub) Publish(_ context.Context, event events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *publisherStub) ofType(t events.Type) []events.Event {
	out := make([]events.Event, 0)
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type rateLimiterStub struct {
	allowed    bool
	retryAfter int64
	calls      int
}

func (s *rateLimiterStub) AllowSwipe(context.Context, int64) (int64, bool, error) {
	s.calls++
	return s.retryAfter, s.allowed, nil
}

func pgrepoResult(inserted bool, previous enums.Direction) pgrepo.SwipeUpsertResult {
	return pgrepo.SwipeUpsertResult{Inserted: inserted, Previous: previous}
}
