package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		hub.ServeWS(w, r, id)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitConnected(t *testing.T, hub *Hub, userID int64, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("user %d connections = %d, want %d", userID, hub.Connected(userID), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestHubPushReachesOnlyRecipientConnections(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()
	srv := newHubServer(t, hub)

	a1 := dial(t, srv, 1)
	a2 := dial(t, srv, 1)
	b := dial(t, srv, 2)
	waitConnected(t, hub, 1, 2)
	waitConnected(t, hub, 2, 1)

	n := model.Notification{ID: uuid.New(), RecipientID: 1, Title: "New Match!"}
	hub.Push(1, n)

	for _, conn := range []*websocket.Conn{a1, a2} {
		f := readFrame(t, conn)
		if f.Type != "notification" || f.Notification == nil || f.Notification.ID != n.ID {
			t.Fatalf("unexpected frame %+v", f)
		}
	}

	_ = b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := b.ReadMessage(); err == nil {
		t.Fatalf("other users must not receive the notification")
	}
}

func TestHubForgetsClosedConnections(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := newHubServer(t, hub)

	conn := dial(t, srv, 7)
	waitConnected(t, hub, 7, 1)
	_ = conn.Close()
	waitConnected(t, hub, 7, 0)

	hub.Push(7, model.Notification{})
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	if check(r) {
		t.Fatalf("unexpected origin accepted")
	}
	r.Header.Set("Origin", "https://app.example.com")
	if !check(r) {
		t.Fatalf("allowed origin rejected")
	}
}

type recordingPusher struct {
	mu  sync.Mutex
	got []envelope
}

func (p *recordingPusher) Push(userID int64, n model.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, envelope{UserID: userID, Notification: n})
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func TestRedisFanoutRelaysToLocalHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fanout := NewRedisFanout(client, "", nil)
	local := &recordingPusher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Relay(ctx, local) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(mr.PubSubChannels("")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}

	n := model.Notification{ID: uuid.New(), RecipientID: 3, Title: "New message"}
	fanout.Push(3, n)

	for local.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("notification not relayed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	local.mu.Lock()
	got := local.got[0]
	local.mu.Unlock()
	if got.UserID != 3 || got.Notification.ID != n.ID {
		raw, _ := json.Marshal(got)
		t.Fatalf("unexpected relayed envelope %s", raw)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("relay returned error: %v", err)
	}
}
