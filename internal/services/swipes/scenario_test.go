package swipes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
	notificationsvc "github.com/ivankudzin/jobswipe/internal/services/notifications"
)

type notificationSink struct {
	byRecipient map[int64][]model.Notification
}

func (s *notificationSink) Insert(_ context.Context, n model.Notification) (bool, error) {
	for _, existing := range s.byRecipient[n.RecipientID] {
		if existing.ID == n.ID {
			return false, nil
		}
	}
	s.byRecipient[n.RecipientID] = append(s.byRecipient[n.RecipientID], n)
	return true, nil
}

func (s *notificationSink) List(context.Context, int64, int, bool) ([]model.Notification, error) {
	return nil, nil
}

func (s *notificationSink) CountUnread(context.Context, int64) (int, error) { return 0, nil }

func (s *notificationSink) MarkRead(context.Context, int64, []uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

func (s *notificationSink) Delete(context.Context, int64, []uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *notificationSink) PruneRead(context.Context, time.Time) (int64, error) { return 0, nil }

// A candidate likes a job, the recruiter likes the candidate back, and each
// side ends up with exactly one match notification even when both sides
// repeat their swipes.
func TestCandidateRecruiterScenario(t *testing.T) {
	f := newFixture(t)
	f.db.jobs[jobID] = model.Job{ID: jobID, PosterID: recruiterID, CompanyID: companyID, Status: "active", Title: "Go Engineer", CompanyName: "Acme"}

	sink := &notificationSink{byRecipient: map[int64][]model.Notification{}}
	emitter := notificationsvc.NewEmitter(notificationsvc.EmitterDependencies{Store: sink, Jobs: f.db})
	f.svc.events = events.NewInline(emitter)
	ctx := context.Background()

	if _, err := f.svc.Swipe(ctx, candidateID, jobID, "right"); err != nil {
		t.Fatalf("candidate swipe: %v", err)
	}
	res, err := f.svc.PosterSwipe(ctx, recruiterID, candidateID, jobID, "right")
	if err != nil {
		t.Fatalf("recruiter swipe: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected match after reciprocal interest")
	}

	if _, err := f.svc.Swipe(ctx, candidateID, jobID, "right"); err != nil {
		t.Fatalf("candidate replay: %v", err)
	}
	if _, err := f.svc.PosterSwipe(ctx, recruiterID, candidateID, jobID, "right"); err != nil {
		t.Fatalf("recruiter replay: %v", err)
	}

	for _, userID := range []int64{candidateID, recruiterID} {
		got := sink.byRecipient[userID]
		if len(got) != 1 {
			t.Fatalf("user %d: expected one notification, got %d", userID, len(got))
		}
		if got[0].Title != "New Match!" {
			t.Fatalf("user %d: unexpected notification %+v", userID, got[0])
		}
	}
	if got := sink.byRecipient[candidateID][0].Body; got != "You matched with Acme for Go Engineer" {
		t.Fatalf("unexpected candidate body %q", got)
	}
}
