package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	assistantsvc "github.com/ivankudzin/jobswipe/internal/services/assistant"
)

const (
	seekerID    = 11
	recruiterID = 22
	strangerID  = 33
	matchID     = 9
)

type conversationStore struct {
	match    model.Match
	messages []model.Message
	touched  *time.Time
	nextID   int64
	failNext error
}

func newConversationStore() *conversationStore {
	return &conversationStore{
		match: model.Match{ID: matchID, UserAID: seekerID, UserBID: recruiterID, JobID: 4, Status: "active"},
	}
}

func (s *conversationStore) WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	messages := append([]model.Message(nil), s.messages...)
	touched := s.touched
	if err := fn(ctx, nil); err != nil {
		s.messages = messages
		s.touched = touched
		return err
	}
	return nil
}

func (s *conversationStore) Get(_ context.Context, id int64) (model.Match, error) {
	if id != s.match.ID {
		return model.Match{}, pgrepo.ErrMatchNotFound
	}
	return s.match, nil
}

func (s *conversationStore) ListForUser(_ context.Context, userID int64, _ int) ([]pgrepo.MatchSummaryRecord, error) {
	if !s.match.Participant(userID) {
		return nil, nil
	}
	rec, _ := s.GetSummary(context.Background(), s.match.ID, userID)
	return []pgrepo.MatchSummaryRecord{rec}, nil
}

func (s *conversationStore) GetSummary(_ context.Context, id, userID int64) (pgrepo.MatchSummaryRecord, error) {
	if id != s.match.ID {
		return pgrepo.MatchSummaryRecord{}, pgrepo.ErrMatchNotFound
	}
	rec := pgrepo.MatchSummaryRecord{
		Match:         s.match,
		CounterpartID: s.match.Counterpart(userID),
		JobTitle:      "Backend Engineer",
		CompanyName:   "Acme",
	}
	for _, m := range s.messages {
		if m.RecipientID == userID && !m.IsRead {
			rec.UnreadForRequester++
		}
	}
	if n := len(s.messages); n > 0 {
		last := s.messages[n-1]
		rec.LastMessage = &last.Content
		rec.LastMessageSender = &last.SenderID
		rec.LastMessageAt = &last.CreatedAt
		rec.LastMessageIsRead = &last.IsRead
	}
	return rec, nil
}

func (s *conversationStore) TouchLastMessage(_ context.Context, _ pgx.Tx, _ int64, at time.Time) error {
	s.touched = &at
	return nil
}

func (s *conversationStore) Create(_ context.Context, _ pgx.Tx, msg model.Message) (model.Message, error) {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return model.Message{}, err
	}
	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *conversationStore) ListByMatch(_ context.Context, id int64) ([]model.Message, error) {
	out := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.MatchID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *conversationStore) MarkReadForRecipient(_ context.Context, id, recipientID int64, at time.Time) (int64, error) {
	var n int64
	for i := range s.messages {
		m := &s.messages[i]
		if m.MatchID == id && m.RecipientID == recipientID && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &at
			n++
		}
	}
	return n, nil
}

type suggesterStub struct {
	calls []assistantsvc.Request
}

func (s *suggesterStub) Suggest(_ context.Context, req assistantsvc.Request) []string {
	s.calls = append(s.calls, req)
	return []string{"Hi there!"}
}

type publisherStub struct {
	events []events.Event
}

func (p *publisherStub) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func newTestService(store *conversationStore, suggester Suggester, pub events.Publisher) *Service {
	svc := NewService(Dependencies{
		Tx:        store,
		Matches:   store,
		Messages:  store,
		Suggester: suggester,
		Events:    pub,
	}, Config{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSendRejectsBlankContentWithoutWriting(t *testing.T) {
	store := newConversationStore()
	pub := &publisherStub{}
	svc := newTestService(store, nil, pub)

	for _, content := range []string{"", "   ", "<b></b>", "\n\t"} {
		if _, err := svc.Send(context.Background(), seekerID, matchID, content, "text"); !errors.Is(err, ErrValidation) {
			t.Fatalf("Send(%q) error = %v, want ErrValidation", content, err)
		}
	}
	if len(store.messages) != 0 || store.touched != nil {
		t.Fatalf("blank content must not write, got %d messages", len(store.messages))
	}
	if len(pub.events) != 0 {
		t.Fatalf("blank content must not publish, got %d events", len(pub.events))
	}
}

func TestSendSanitizesAndPublishes(t *testing.T) {
	store := newConversationStore()
	pub := &publisherStub{}
	svc := newTestService(store, nil, pub)

	msg, err := svc.Send(context.Background(), seekerID, matchID, "  hello <script>alert(1)</script><b>there</b> ", "")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if msg.Content != "hello there" {
		t.Fatalf("content = %q, want sanitized text", msg.Content)
	}
	if msg.RecipientID != recruiterID || msg.MessageType != enums.MessageTypeText {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if store.touched == nil {
		t.Fatalf("expected last_message_at to be updated")
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeMessageSent {
		t.Fatalf("expected one message.sent event, got %+v", pub.events)
	}
	var payload events.MessageSent
	if err := pub.events[0].Decode(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.RecipientID != recruiterID || payload.SenderID != seekerID {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSendValidation(t *testing.T) {
	store := newConversationStore()
	svc := newTestService(store, nil, nil)
	svc.cfg.MaxMessageRunes = 5

	if _, err := svc.Send(context.Background(), seekerID, matchID, "привет!", "text"); !errors.Is(err, ErrValidation) {
		t.Fatalf("oversized content error = %v, want ErrValidation", err)
	}
	if _, err := svc.Send(context.Background(), seekerID, matchID, "hi", "video"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown type error = %v, want ErrValidation", err)
	}
	if _, err := svc.Send(context.Background(), strangerID, matchID, "hi", "text"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-participant error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Send(context.Background(), seekerID, 404, "hi", "text"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown match error = %v, want ErrNotFound", err)
	}
	if msg, err := svc.Send(context.Background(), seekerID, matchID, "ok", "LINK"); err != nil || msg.MessageType != enums.MessageTypeLink {
		t.Fatalf("link message = %+v, %v", msg, err)
	}
}

func TestSendRollsBackOnStoreError(t *testing.T) {
	store := newConversationStore()
	store.failNext = errors.New("insert failed")
	pub := &publisherStub{}
	svc := newTestService(store, nil, pub)

	if _, err := svc.Send(context.Background(), seekerID, matchID, "hi", "text"); err == nil {
		t.Fatalf("expected store error")
	}
	if len(store.messages) != 0 || len(pub.events) != 0 {
		t.Fatalf("failed send must leave no trace")
	}
}

func TestMessagesMarksOnlyCallerAddressedAsRead(t *testing.T) {
	store := newConversationStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	if _, err := svc.Send(ctx, seekerID, matchID, "from seeker", "text"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if _, err := svc.Send(ctx, recruiterID, matchID, "from recruiter", "text"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	conv, err := svc.Messages(ctx, seekerID, enums.RoleJobSeeker, matchID)
	if err != nil {
		t.Fatalf("Messages error: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	for _, m := range store.messages {
		switch m.RecipientID {
		case seekerID:
			if !m.IsRead {
				t.Fatalf("message addressed to caller must be read: %+v", m)
			}
		case recruiterID:
			if m.IsRead {
				t.Fatalf("message addressed to counterpart must stay unread: %+v", m)
			}
		}
	}
	if conv.Match.UnreadCount != 0 {
		t.Fatalf("caller unread count = %d, want 0", conv.Match.UnreadCount)
	}

	if _, err := svc.Messages(ctx, strangerID, enums.RoleJobSeeker, matchID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger error = %v, want ErrForbidden", err)
	}
}

func TestMessagesSuggestionsOnlyForShortConversations(t *testing.T) {
	store := newConversationStore()
	suggester := &suggesterStub{}
	svc := newTestService(store, suggester, nil)
	ctx := context.Background()

	conv, err := svc.Messages(ctx, recruiterID, enums.RoleRecruiter, matchID)
	if err != nil {
		t.Fatalf("Messages error: %v", err)
	}
	if len(conv.Suggestions) != 1 || len(suggester.calls) != 1 {
		t.Fatalf("expected suggestions for an empty conversation, got %v", conv.Suggestions)
	}
	if got := suggester.calls[0]; got.Role != enums.RoleRecruiter || got.JobTitle != "Backend Engineer" {
		t.Fatalf("unexpected suggestion request: %+v", got)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Send(ctx, seekerID, matchID, "hello", "text"); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}
	conv, err = svc.Messages(ctx, recruiterID, enums.RoleRecruiter, matchID)
	if err != nil {
		t.Fatalf("Messages error: %v", err)
	}
	if len(conv.Suggestions) != 0 || len(suggester.calls) != 1 {
		t.Fatalf("no suggestions expected once the conversation is going, got %v", conv.Suggestions)
	}
}

func TestListReportsLastMessageFromCallerView(t *testing.T) {
	store := newConversationStore()
	svc := newTestService(store, nil, nil)
	ctx := context.Background()

	if _, err := svc.Send(ctx, recruiterID, matchID, "are you free friday?", "text"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	list, err := svc.List(ctx, seekerID)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one match, got %d", len(list))
	}
	got := list[0]
	if got.Counterpart.ID != recruiterID || got.UnreadCount != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.LastMessage == nil || got.LastMessage.IsFromMe {
		t.Fatalf("last message should come from the counterpart: %+v", got.LastMessage)
	}
}
