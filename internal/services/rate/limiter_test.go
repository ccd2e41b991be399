package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/ivankudzin/jobswipe/internal/repo/redis"
)

func TestLimiterWindows(t *testing.T) {
	cases := []struct {
		name      string
		perMinute int
		per10Sec  int
		allowed   int
		resetIn   time.Duration
	}{
		{name: "ten second window", perMinute: 100, per10Sec: 2, allowed: 2, resetIn: 11 * time.Second},
		{name: "minute window", perMinute: 3, per10Sec: 100, allowed: 3, resetIn: 61 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mr, client := newTestRedis(t)
			limiter := NewLimiter(redrepo.NewRateRepo(client), tc.perMinute, tc.per10Sec)
			ctx := context.Background()
			const userID = int64(42)

			for i := 0; i < tc.allowed; i++ {
				if retry, ok, err := limiter.AllowSwipe(ctx, userID); err != nil || !ok || retry != 0 {
					t.Fatalf("swipe %d: ok=%v retry=%d err=%v", i+1, ok, retry, err)
				}
			}

			retry, ok, err := limiter.AllowSwipe(ctx, userID)
			if err != nil {
				t.Fatalf("over-limit swipe: %v", err)
			}
			if ok || retry <= 0 {
				t.Fatalf("expected block with retry, got ok=%v retry=%d", ok, retry)
			}

			pending, err := limiter.RetryAfterSwipe(ctx, userID)
			if err != nil {
				t.Fatalf("retry state: %v", err)
			}
			if pending <= 0 || pending > retry {
				t.Fatalf("retry state = %d, blocked retry = %d", pending, retry)
			}

			mr.FastForward(tc.resetIn)

			if retry, ok, err := limiter.AllowSwipe(ctx, userID); err != nil || !ok || retry != 0 {
				t.Fatalf("after reset: ok=%v retry=%d err=%v", ok, retry, err)
			}
		})
	}
}

func TestRetryAfterSwipeDoesNotCount(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewLimiter(redrepo.NewRateRepo(client), 0, 1)
	ctx := context.Background()

	for range 3 {
		if retry, err := limiter.RetryAfterSwipe(ctx, 9); err != nil || retry != 0 {
			t.Fatalf("idle retry = %d err=%v", retry, err)
		}
	}
	if mr.Exists("jobswipe:rate:swipes:10s:9") {
		t.Fatalf("reading state must not create a window")
	}
	if _, ok, err := limiter.AllowSwipe(ctx, 9); err != nil || !ok {
		t.Fatalf("first swipe: ok=%v err=%v", ok, err)
	}
}

func TestWindowLimiterIgnoresDisabledWindows(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewWindowLimiter(redrepo.NewRateRepo(client),
		Window{Name: "off", Length: time.Minute, Max: 0},
		Window{Name: "hour", Length: time.Hour, Max: 1},
	)
	ctx := context.Background()

	if _, ok, err := limiter.AllowSwipe(ctx, 5); err != nil || !ok {
		t.Fatalf("first swipe: ok=%v err=%v", ok, err)
	}
	retry, ok, err := limiter.AllowSwipe(ctx, 5)
	if err != nil {
		t.Fatalf("second swipe: %v", err)
	}
	if ok || retry <= 60 {
		t.Fatalf("expected hour window block, ok=%v retry=%d", ok, retry)
	}
	if mr.Exists("jobswipe:rate:swipes:off:5") {
		t.Fatalf("disabled window was counted")
	}
}

func TestLimiterRejectsAnonymous(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewLimiter(redrepo.NewRateRepo(client), 1, 1)
	if _, _, err := limiter.AllowSwipe(context.Background(), 0); err == nil {
		t.Fatalf("expected error for user 0")
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
