package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
	"github.com/ivankudzin/jobswipe/internal/metrics"
)

type JobReader interface {
	Get(ctx context.Context, jobID int64) (model.Job, error)
}

// Pusher delivers a stored notification to live connections of the
// recipient. Delivery is best effort.
type Pusher interface {
	Push(userID int64, n model.Notification)
}

type EmitterDependencies struct {
	Store   Store
	Jobs    JobReader
	Pusher  Pusher
	Metrics metrics.Recorder
	Logger  *zap.Logger
}

// Emitter turns domain events into notification rows. It is safe to run
// the same event twice: ids are derived from the event id and recipient.
type Emitter struct {
	store   Store
	jobs    JobReader
	pusher  Pusher
	metrics metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewEmitter(deps EmitterDependencies) *Emitter {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Emitter{
		store:   deps.Store,
		jobs:    deps.Jobs,
		pusher:  deps.Pusher,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

func (e *Emitter) Handle(ctx context.Context, event events.Event) error {
	if e.store == nil {
		return fmt.Errorf("notification store is nil")
	}

	drafts, err := e.draft(ctx, event)
	if err != nil {
		return err
	}

	for _, d := range drafts {
		n := model.Notification{
			ID:          NotificationID(event.ID, d.recipient),
			RecipientID: d.recipient,
			Type:        d.kind,
			Title:       d.title,
			Body:        d.body,
			ActionURL:   d.link,
			CreatedAt:   e.now().UTC(),
		}
		inserted, err := e.store.Insert(ctx, n)
		if err != nil {
			return fmt.Errorf("write %s notification: %w", event.Type, err)
		}
		if !inserted {
			continue
		}
		e.metrics.RecordNotification(string(n.Type))
		if e.pusher != nil {
			e.pusher.Push(n.RecipientID, n)
		}
	}
	return nil
}

// NotificationID is stable for one event and recipient.
func NotificationID(eventID uuid.UUID, recipientID int64) uuid.UUID {
	return uuid.NewSHA1(eventID, []byte(strconv.FormatInt(recipientID, 10)))
}

type draft struct {
	recipient int64
	kind      enums.NotificationType
	title     string
	body      string
	link      string
}

func (e *Emitter) draft(ctx context.Context, event events.Event) ([]draft, error) {
	switch event.Type {
	case events.TypeMatchCreated:
		var p events.MatchCreated
		if err := event.Decode(&p); err != nil {
			return nil, err
		}
		job, err := e.job(ctx, p.JobID)
		if err != nil {
			return nil, err
		}
		link := matchLink(p.MatchID)
		return []draft{
			{
				recipient: p.CandidateID,
				kind:      enums.NotificationMatch,
				title:     "New Match!",
				body:      fmt.Sprintf("You matched with %s for %s", job.CompanyName, job.Title),
				link:      link,
			},
			{
				recipient: p.PosterID,
				kind:      enums.NotificationMatch,
				title:     "New Match!",
				body:      fmt.Sprintf("A candidate matched with your %s position", job.Title),
				link:      link,
			},
		}, nil

	case events.TypeMessageSent:
		var p events.MessageSent
		if err := event.Decode(&p); err != nil {
			return nil, err
		}
		return []draft{{
			recipient: p.RecipientID,
			kind:      enums.NotificationMessage,
			title:     "New Message",
			body:      "You have a new message",
			link:      matchLink(p.MatchID),
		}}, nil

	case events.TypeUserRegistered:
		var p events.UserRegistered
		if err := event.Decode(&p); err != nil {
			return nil, err
		}
		return []draft{{
			recipient: p.UserID,
			kind:      enums.NotificationSystem,
			title:     "Welcome to JobSwipe AI!",
			body:      "Complete your profile to start matching with opportunities.",
			link:      "/onboarding",
		}}, nil

	case events.TypeJobInterest:
		var p events.JobInterest
		if err := event.Decode(&p); err != nil {
			return nil, err
		}
		job, err := e.job(ctx, p.JobID)
		if err != nil {
			return nil, err
		}
		return []draft{{
			recipient: p.PosterID,
			kind:      enums.NotificationSwipeInterest,
			title:     "Someone is very interested!",
			body:      fmt.Sprintf("A candidate super-liked your %s position", job.Title),
			link:      "/jobs/" + strconv.FormatInt(p.JobID, 10),
		}}, nil

	default:
		e.logger.Warn("skip event without notification", zap.String("event_type", string(event.Type)))
		return nil, nil
	}
}

func (e *Emitter) job(ctx context.Context, jobID int64) (model.Job, error) {
	if e.jobs == nil {
		return model.Job{ID: jobID}, nil
	}
	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		return model.Job{}, fmt.Errorf("load job %d: %w", jobID, err)
	}
	return job, nil
}

func matchLink(matchID int64) string {
	return "/matches/" + strconv.FormatInt(matchID, 10)
}
