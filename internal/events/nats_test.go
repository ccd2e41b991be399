package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type fakeJSMsg struct {
	delivered uint64
	acked     int
	naks      []time.Duration
	termed    int
}

func (m *fakeJSMsg) Ack(...nats.AckOpt) error { m.acked++; return nil }

func (m *fakeJSMsg) NakWithDelay(delay time.Duration, _ ...nats.AckOpt) error {
	m.naks = append(m.naks, delay)
	return nil
}

func (m *fakeJSMsg) Term(...nats.AckOpt) error { m.termed++; return nil }

func (m *fakeJSMsg) Metadata() (*nats.MsgMetadata, error) {
	return &nats.MsgMetadata{NumDelivered: m.delivered}, nil
}

type scriptedHandler struct {
	err   error
	calls int
}

func (h *scriptedHandler) Handle(context.Context, Event) error {
	h.calls++
	return h.err
}

func encodedEvent(t *testing.T) []byte {
	t.Helper()
	event, err := New(TypeUserRegistered, UserRegistered{UserID: 7, Role: "seeker"}, time.Now())
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestSettleAcksHandledEvent(t *testing.T) {
	cfg := NATSConsumerConfig{}.withDefaults()
	msg := &fakeJSMsg{delivered: 1}
	handler := &scriptedHandler{}

	settle(context.Background(), msg, encodedEvent(t), handler, cfg, zap.NewNop())

	if handler.calls != 1 || msg.acked != 1 || len(msg.naks) != 0 || msg.termed != 0 {
		t.Fatalf("unexpected settle: calls=%d %+v", handler.calls, msg)
	}
}

func TestSettleNaksFailureUntilMaxDeliveries(t *testing.T) {
	cfg := NATSConsumerConfig{MaxDeliveries: 3, RetryBackoff: 250 * time.Millisecond}.withDefaults()
	handler := &scriptedHandler{err: errors.New("store down")}

	msg := &fakeJSMsg{delivered: 2}
	settle(context.Background(), msg, encodedEvent(t), handler, cfg, zap.NewNop())
	if msg.acked != 0 || msg.termed != 0 || len(msg.naks) != 1 || msg.naks[0] != 250*time.Millisecond {
		t.Fatalf("expected delayed nak on attempt 2, got %+v", msg)
	}

	last := &fakeJSMsg{delivered: 3}
	settle(context.Background(), last, encodedEvent(t), handler, cfg, zap.NewNop())
	if last.termed != 1 || len(last.naks) != 0 || last.acked != 0 {
		t.Fatalf("expected term on final attempt, got %+v", last)
	}
}

func TestSettleTerminatesUndecodablePayload(t *testing.T) {
	cfg := NATSConsumerConfig{}.withDefaults()
	msg := &fakeJSMsg{delivered: 1}
	handler := &scriptedHandler{}

	settle(context.Background(), msg, []byte("{not json"), handler, cfg, zap.NewNop())

	if handler.calls != 0 || msg.termed != 1 {
		t.Fatalf("expected term without handling, calls=%d %+v", handler.calls, msg)
	}
}

func TestSubjectFilter(t *testing.T) {
	if got := SubjectFilter("jobswipe.events"); got != "jobswipe.events.>" {
		t.Fatalf("unexpected filter %q", got)
	}
	if got := SubjectFilter(""); got != ">" {
		t.Fatalf("unexpected filter %q", got)
	}
}
