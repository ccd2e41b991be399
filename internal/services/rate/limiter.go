// Package rate throttles bursts of swipes from plans without a swipe quota.
package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Window is one fixed counting window; Max <= 0 disables it.
type Window struct {
	Name   string
	Length time.Duration
	Max    int
}

type Limiter struct {
	store   WindowStore
	windows []Window
}

// NewLimiter limits swipes per minute and per ten seconds.
func NewLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	return NewWindowLimiter(store,
		Window{Name: "min", Length: time.Minute, Max: perMinute},
		Window{Name: "10s", Length: 10 * time.Second, Max: per10Sec},
	)
}

func NewWindowLimiter(store WindowStore, windows ...Window) *Limiter {
	active := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Max > 0 && w.Length > 0 {
			active = append(active, w)
		}
	}
	return &Limiter{store: store, windows: active}
}

// AllowSwipe counts one swipe in every window. When any window overflows it
// returns allowed=false and the seconds until the longest blocking window
// resets.
func (l *Limiter) AllowSwipe(ctx context.Context, userID int64) (int64, bool, error) {
	if err := l.check(userID); err != nil {
		return 0, false, err
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(w, userID), w.Length)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.Max) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl), 1)
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfterSwipe reports how long the next swipe would be blocked without
// counting it.
func (l *Limiter) RetryAfterSwipe(ctx context.Context, userID int64) (int64, error) {
	if err := l.check(userID); err != nil {
		return 0, err
	}

	var retryAfterSec int64
	for _, w := range l.windows {
		count, ttl, err := l.store.WindowState(ctx, windowKey(w, userID))
		if err != nil {
			return 0, err
		}
		if count >= int64(w.Max) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, nil
}

func (l *Limiter) check(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return fmt.Errorf("rate limiter store is nil")
	}
	return nil
}

func windowKey(w Window, userID int64) string {
	return "swipes:" + w.Name + ":" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return max(sec, 1)
}
