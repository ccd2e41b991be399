package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
	"github.com/ivankudzin/jobswipe/internal/metrics"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	activitysvc "github.com/ivankudzin/jobswipe/internal/services/activity"
	assistantsvc "github.com/ivankudzin/jobswipe/internal/services/assistant"
)

const defaultListLimit = 100

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("match not found")
	ErrForbidden  = errors.New("forbidden")
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type MatchStore interface {
	Get(ctx context.Context, matchID int64) (model.Match, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchSummaryRecord, error)
	GetSummary(ctx context.Context, matchID, userID int64) (pgrepo.MatchSummaryRecord, error)
	TouchLastMessage(ctx context.Context, tx pgx.Tx, matchID int64, at time.Time) error
}

type MessageStore interface {
	Create(ctx context.Context, tx pgx.Tx, msg model.Message) (model.Message, error)
	ListByMatch(ctx context.Context, matchID int64) ([]model.Message, error)
	MarkReadForRecipient(ctx context.Context, matchID, recipientID int64, at time.Time) (int64, error)
}

type Suggester interface {
	Suggest(ctx context.Context, req assistantsvc.Request) []string
}

type ActivityRecorder interface {
	Record(ctx context.Context, userID int64, name string, props map[string]any)
}

type Dependencies struct {
	Tx        TxRunner
	Matches   MatchStore
	Messages  MessageStore
	Suggester Suggester
	Events    events.Publisher
	Activity  ActivityRecorder
	Metrics   metrics.Recorder
	Logger    *zap.Logger
}

type Config struct {
	MaxMessageRunes int
	// SuggestionsBelow asks for opening lines while the conversation has
	// fewer messages than this.
	SuggestionsBelow int
}

type Counterpart struct {
	ID       int64
	Name     string
	Role     string
	Headline string
	Avatar   string
}

type LastMessage struct {
	Content   string
	IsFromMe  bool
	CreatedAt time.Time
	IsRead    bool
}

type Summary struct {
	ID          int64
	JobID       int64
	Status      string
	CreatedAt   time.Time
	Counterpart Counterpart
	JobTitle    string
	CompanyName string
	LastMessage *LastMessage
	UnreadCount int
}

type Conversation struct {
	Match       Summary
	Messages    []model.Message
	Suggestions []string
}

type Service struct {
	tx        TxRunner
	matches   MatchStore
	messages  MessageStore
	suggester Suggester
	events    events.Publisher
	activity  ActivityRecorder
	metrics   metrics.Recorder
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
	cfg       Config
	now       func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxMessageRunes <= 0 {
		cfg.MaxMessageRunes = 5000
	}
	if cfg.SuggestionsBelow <= 0 {
		cfg.SuggestionsBelow = 3
	}
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
		tx:        deps.Tx,
		matches:   deps.Matches,
		messages:  deps.Messages,
		suggester: deps.Suggester,
		events:    deps.Events,
		activity:  deps.Activity,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		sanitizer: bluemonday.StrictPolicy(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// List returns the caller's matches, most recent conversation first.
func (s *Service) List(ctx context.Context, userID int64) ([]Summary, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	records, err := s.matches.ListForUser(ctx, userID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	out := make([]Summary, 0, len(records))
	for _, rec := range records {
		out = append(out, toSummary(rec, userID))
	}
	return out, nil
}

// Messages returns the conversation and marks messages addressed to the
// caller as read.
func (s *Service) Messages(ctx context.Context, userID int64, role enums.Role, matchID int64) (Conversation, error) {
	if _, err := s.authorize(ctx, userID, matchID); err != nil {
		return Conversation{}, err
	}

	if _, err := s.messages.MarkReadForRecipient(ctx, matchID, userID, s.now()); err != nil {
		return Conversation{}, fmt.Errorf("mark messages read: %w", err)
	}

	msgs, err := s.messages.ListByMatch(ctx, matchID)
	if err != nil {
		return Conversation{}, fmt.Errorf("list messages: %w", err)
	}

	rec, err := s.matches.GetSummary(ctx, matchID, userID)
	if err != nil {
		return Conversation{}, fmt.Errorf("load match summary: %w", err)
	}
	summary := toSummary(rec, userID)

	suggestions := []string{}
	if s.suggester != nil && len(msgs) < s.cfg.SuggestionsBelow {
		previous := make([]string, 0, len(msgs))
		for _, m := range msgs {
			previous = append(previous, m.Content)
		}
		suggestions = s.suggester.Suggest(ctx, assistantsvc.Request{
			MatchID:          matchID,
			Role:             role,
			JobTitle:         summary.JobTitle,
			PreviousMessages: previous,
		})
	}

	return Conversation{
		Match:       summary,
		Messages:    msgs,
		Suggestions: suggestions,
	}, nil
}

// Send appends a message from userID to the other participant.
func (s *Service) Send(ctx context.Context, userID, matchID int64, content, messageType string) (model.Message, error) {
	match, err := s.authorize(ctx, userID, matchID)
	if err != nil {
		return model.Message{}, err
	}

	body, err := s.clean(content)
	if err != nil {
		return model.Message{}, err
	}
	kind, err := parseMessageType(messageType)
	if err != nil {
		return model.Message{}, err
	}

	now := s.now().UTC()
	var created model.Message
	err = s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		msg, err := s.messages.Create(txCtx, tx, model.Message{
			MatchID:     matchID,
			SenderID:    userID,
			RecipientID: match.Counterpart(userID),
			Content:     body,
			MessageType: kind,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := s.matches.TouchLastMessage(txCtx, tx, matchID, now); err != nil {
			return err
		}
		created = msg
		return nil
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("store message: %w", err)
	}

	s.metrics.RecordMessageSent()
	s.publish(ctx, events.MessageSent{
		MessageID:   created.ID,
		MatchID:     matchID,
		SenderID:    userID,
		RecipientID: created.RecipientID,
	})
	if s.activity != nil {
		s.activity.Record(ctx, userID, activitysvc.EventMessage, map[string]any{"match_id": matchID})
	}
	return created, nil
}

func (s *Service) authorize(ctx context.Context, userID, matchID int64) (model.Match, error) {
	if userID <= 0 || matchID <= 0 {
		return model.Match{}, ErrValidation
	}
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("load match: %w", err)
	}
	if !match.Participant(userID) {
		return model.Match{}, ErrForbidden
	}
	return match, nil
}

// clean strips markup and surrounding space. Blank or oversized content is
// rejected.
func (s *Service) clean(content string) (string, error) {
	body := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if body == "" {
		return "", ErrValidation
	}
	if utf8.RuneCountInString(body) > s.cfg.MaxMessageRunes {
		return "", ErrValidation
	}
	return body, nil
}

func (s *Service) publish(ctx context.Context, payload events.MessageSent) {
	event, err := events.New(events.TypeMessageSent, payload, s.now())
	if err == nil {
		err = s.events.Publish(ctx, event)
	}
	s.metrics.RecordEventPublish(string(events.TypeMessageSent), err)
	if err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(events.TypeMessageSent)), zap.Error(err))
	}
}

func parseMessageType(value string) (enums.MessageType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(enums.MessageTypeText):
		return enums.MessageTypeText, nil
	case string(enums.MessageTypeLink):
		return enums.MessageTypeLink, nil
	default:
		return "", ErrValidation
	}
}

func toSummary(rec pgrepo.MatchSummaryRecord, userID int64) Summary {
	out := Summary{
		ID:        rec.Match.ID,
		JobID:     rec.Match.JobID,
		Status:    rec.Match.Status,
		CreatedAt: rec.Match.CreatedAt,
		Counterpart: Counterpart{
			ID:       rec.CounterpartID,
			Name:     rec.CounterpartName,
			Role:     rec.CounterpartRole,
			Headline: rec.CounterpartTitle,
			Avatar:   rec.CounterpartAvatar,
		},
		JobTitle:    rec.JobTitle,
		CompanyName: rec.CompanyName,
		UnreadCount: rec.UnreadForRequester,
	}
	if rec.LastMessage != nil {
		last := &LastMessage{Content: *rec.LastMessage}
		if rec.LastMessageSender != nil {
			last.IsFromMe = *rec.LastMessageSender == userID
		}
		if rec.LastMessageAt != nil {
			last.CreatedAt = *rec.LastMessageAt
		}
		if rec.LastMessageIsRead != nil {
			last.IsRead = *rec.LastMessageIsRead
		}
		out.LastMessage = last
	}
	return out
}
