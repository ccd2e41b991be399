package swipes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
)

const (
	candidateID = int64(101)
	recruiterID = int64(202)
	companyID   = int64(7)
	jobID       = int64(55)
	otherJobID  = int64(56)
)

type fixture struct {
	db        *memDB
	publisher *publisherStub
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	db.jobs[jobID] = model.Job{ID: jobID, PosterID: recruiterID, CompanyID: companyID, Status: enums.JobStatusActive, Title: "Go Engineer"}
	db.jobs[otherJobID] = model.Job{ID: otherJobID, PosterID: recruiterID, CompanyID: companyID, Status: enums.JobStatusActive, Title: "SRE"}
	db.quotas[candidateID] = model.Quota{UserID: candidateID, Plan: enums.PlanFree, SwipesRemaining: 50, SuperLikesRemaining: 5}
	db.quotas[recruiterID] = model.Quota{UserID: recruiterID, Plan: enums.PlanFree, SwipesRemaining: 50, SuperLikesRemaining: 5}

	pub := &publisherStub{}
	svc := NewService(Dependencies{
		Tx:      db,
		Jobs:    db,
		Swipes:  swipeStore{db},
		Quotas:  quotaStore{db},
		Matches: matchStore{db},
		Events:  pub,
	})
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

	return &fixture{db: db, publisher: pub, svc: svc}
}

func TestSwipeReplayOverwritesDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Swipe(ctx, candidateID, jobID, "right"); err != nil {
		t.Fatalf("first swipe: %v", err)
	}
	res, err := f.svc.Swipe(ctx, candidateID, jobID, "left")
	if err != nil {
		t.Fatalf("second swipe: %v", err)
	}

	if len(f.db.swipes) != 1 {
		t.Fatalf("expected a single decision row, got %d", len(f.db.swipes))
	}
	got := f.db.swipes[swipeKey{candidateID, recruiterID, jobID}]
	if got.Direction != enums.DirectionPass {
		t.Fatalf("expected overwrite to pass, got %s", got.Direction)
	}
	if res.Quota.SwipesRemaining != 49 {
		t.Fatalf("replay must not charge again, remaining=%d", res.Quota.SwipesRemaining)
	}
}

func TestSwipeRejectsUnknownDirection(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Swipe(context.Background(), candidateID, jobID, "sideways"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.db.swipes) != 0 {
		t.Fatalf("rejected swipe must not write")
	}
}

func TestSwipeUnknownJob(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Swipe(context.Background(), candidateID, 999, "right"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.db.jobs[jobID] = model.Job{ID: jobID, PosterID: recruiterID, CompanyID: companyID, Status: enums.JobStatusClosed}
	if _, err := f.svc.Swipe(context.Background(), candidateID, jobID, "right"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for closed job, got %v", err)
	}
}

func TestSwipeQuotaExceededLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.quotas[candidateID] = model.Quota{UserID: candidateID, Plan: enums.PlanFree, SwipesRemaining: 0, SuperLikesRemaining: 5}

	if _, err := f.svc.Swipe(ctx, candidateID, jobID, "right"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	if len(f.db.swipes) != 0 {
		t.Fatalf("quota rejection must not record a decision")
	}
	if q := f.db.quotas[candidateID]; q.SwipesRemaining != 0 || q.SuperLikesRemaining != 5 {
		t.Fatalf("quota changed on rejection: %+v", q)
	}
}

func TestSuperLikeQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.quotas[candidateID] = model.Quota{UserID: candidateID, Plan: enums.PlanFree, SwipesRemaining: 10, SuperLikesRemaining: 1}

	if _, err := f.svc.Swipe(ctx, candidateID, jobID, "right"); err != nil {
		t.Fatalf("like: %v", err)
	}
	res, err := f.svc.Swipe(ctx, candidateID, jobID, "super")
	if err != nil {
		t.Fatalf("upgrade to super: %v", err)
	}
	if res.Quota.SwipesRemaining != 9 || res.Quota.SuperLikesRemaining != 0 {
		t.Fatalf("upgrade should charge one super-like only, got %+v", res.Quota)
	}
	if got := len(f.publisher.ofType(events.TypeJobInterest)); got != 1 {
		t.Fatalf("expected one job.interest event, got %d", got)
	}

	if _, err := f.svc.Swipe(ctx, candidateID, otherJobID, "super"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected super-like quota exceeded, got %v", err)
	}
	if _, ok := f.db.swipes[swipeKey{candidateID, recruiterID, otherJobID}]; ok {
		t.Fatalf("rejected super-like must not be recorded")
	}
}

func TestPaidPlanIsUnmeteredButBurstLimited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.quotas[candidateID] = model.Quota{UserID: candidateID, Plan: enums.PlanPremium, SwipesRemaining: 0, SuperLikesRemaining: 25}
	limiter := &rateLimiterStub{allowed: true}
	f.svc.rateLimiter = limiter

	res, err := f.svc.Swipe(ctx, candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("premium swipe: %v", err)
	}
	if !res.Quota.Unlimited || res.Quota.SwipesRemaining != -1 {
		t.Fatalf("expected unlimited snapshot, got %+v", res.Quota)
	}

	limiter.allowed = false
	limiter.retryAfter = 4
	_, err = f.svc.Swipe(ctx, candidateID, otherJobID, "right")
	tf, ok := IsTooFast(err)
	if !ok || tf.RetryAfter() != 4 || !errors.Is(err, ErrTooFast) {
		t.Fatalf("expected too fast with retry 4, got %v", err)
	}
	if limiter.calls != 2 {
		t.Fatalf("expected limiter consulted twice, got %d", limiter.calls)
	}
}

func TestMutualInterestCreatesSingleMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Swipe(ctx, candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("candidate swipe: %v", err)
	}
	if res.Matched {
		t.Fatalf("no reciprocal interest yet")
	}

	res, err = f.svc.PosterSwipe(ctx, recruiterID, candidateID, jobID, "interested")
	if err != nil {
		t.Fatalf("poster swipe: %v", err)
	}
	if !res.Matched || res.MatchID == 0 {
		t.Fatalf("expected match, got %+v", res)
	}

	replay, err := f.svc.Swipe(ctx, candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Matched || replay.MatchID != res.MatchID {
		t.Fatalf("replay should report the existing match, got %+v", replay)
	}
	if _, err := f.svc.PosterSwipe(ctx, recruiterID, candidateID, jobID, "right"); err != nil {
		t.Fatalf("poster replay: %v", err)
	}

	if len(f.db.matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(f.db.matches))
	}
	if got := len(f.publisher.ofType(events.TypeMatchCreated)); got != 1 {
		t.Fatalf("expected one match.created event, got %d", got)
	}
}

func TestCandidateDetectionAcceptsPosterInterestOnSameCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.PosterSwipe(ctx, recruiterID, candidateID, otherJobID, "right"); err != nil {
		t.Fatalf("poster swipe: %v", err)
	}
	res, err := f.svc.Swipe(ctx, candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("candidate swipe: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected company-wide reciprocal match")
	}
	if _, ok := f.db.matches[matchKey{candidateID, recruiterID, jobID}]; !ok {
		t.Fatalf("match should be keyed on the swiped job")
	}
}

func TestPassNeverMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.PosterSwipe(ctx, recruiterID, candidateID, jobID, "right"); err != nil {
		t.Fatalf("poster swipe: %v", err)
	}
	res, err := f.svc.Swipe(ctx, candidateID, jobID, "left")
	if err != nil {
		t.Fatalf("candidate pass: %v", err)
	}
	if res.Matched || len(f.db.matches) != 0 {
		t.Fatalf("pass must not create a match")
	}
}

func TestPosterSwipeRequiresJobOwnership(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.PosterSwipe(context.Background(), 303, candidateID, jobID, "right"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestPosterSwipeOnUnknownCandidateIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.db.missingUsers = map[int64]bool{999: true}

	_, err := f.svc.PosterSwipe(context.Background(), recruiterID, 999, jobID, "right")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(f.db.swipes) != 0 {
		t.Fatalf("no decision should be stored")
	}
	if got := f.db.quotas[recruiterID].SwipesRemaining; got != 50 {
		t.Fatalf("quota should be untouched, got %d", got)
	}
}

func TestDetectionErrorDoesNotFailSwipe(t *testing.T) {
	f := newFixture(t)
	f.db.detectErr = errors.New("replica lag")

	res, err := f.svc.Swipe(context.Background(), candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("swipe should succeed despite detection failure: %v", err)
	}
	if res.Matched {
		t.Fatalf("detection failure is treated as no match")
	}
	if len(f.db.swipes) != 1 {
		t.Fatalf("decision should be stored")
	}
}

func TestPublishFailureDoesNotFailSwipe(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("stream down")
	ctx := context.Background()

	if _, err := f.svc.PosterSwipe(ctx, recruiterID, candidateID, jobID, "right"); err != nil {
		t.Fatalf("poster swipe: %v", err)
	}
	res, err := f.svc.Swipe(ctx, candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if !res.Matched {
		t.Fatalf("match should still be created")
	}
}

func TestQuotaChargePolicy(t *testing.T) {
	cases := []struct {
		name       string
		metered    bool
		direction  enums.Direction
		inserted   bool
		previous   enums.Direction
		wantSwipes int
		wantSuper  int
	}{
		{"new like free", true, enums.DirectionInterested, true, "", 1, 0},
		{"new like paid", false, enums.DirectionInterested, true, "", 0, 0},
		{"new super free", true, enums.DirectionSuperInterested, true, "", 1, 1},
		{"upgrade to super", true, enums.DirectionSuperInterested, false, enums.DirectionInterested, 0, 1},
		{"repeat super", true, enums.DirectionSuperInterested, false, enums.DirectionSuperInterested, 0, 0},
		{"change to pass", true, enums.DirectionPass, false, enums.DirectionInterested, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := pgrepoResult(tc.inserted, tc.previous)
			swipes, super := quotaCharge(tc.metered, tc.direction, res)
			if swipes != tc.wantSwipes || super != tc.wantSuper {
				t.Fatalf("got (%d,%d), want (%d,%d)", swipes, super, tc.wantSwipes, tc.wantSuper)
			}
		})
	}
}
