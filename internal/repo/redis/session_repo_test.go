package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
)

func TestSessionRepoRotationInvalidatesOldToken(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewSessionRepo(client)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	if err := repo.Create(ctx, authsvc.SessionRecord{SID: "s1", UserID: 42, Role: "jobseeker", ExpiresAt: expires}, "refresh-a"); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, key := range mr.Keys() {
		if strings.Contains(key, "refresh-a") {
			t.Fatalf("refresh token stored in clear under %q", key)
		}
	}

	got, err := repo.GetByRefreshToken(ctx, "refresh-a")
	if err != nil {
		t.Fatalf("get by refresh: %v", err)
	}
	if got.SID != "s1" || got.UserID != 42 || got.Role != "jobseeker" {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := repo.RotateRefresh(ctx, "s1", "refresh-a", "refresh-b", expires.Add(time.Hour)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := repo.GetByRefreshToken(ctx, "refresh-a"); !errors.Is(err, authsvc.ErrRefreshNotFound) {
		t.Fatalf("old token should be gone, got %v", err)
	}
	if err := repo.RotateRefresh(ctx, "s1", "refresh-a", "refresh-c", expires); !errors.Is(err, authsvc.ErrRefreshNotFound) {
		t.Fatalf("second rotation with old token: got %v", err)
	}

	got, err = repo.GetByRefreshToken(ctx, "refresh-b")
	if err != nil {
		t.Fatalf("get by new refresh: %v", err)
	}
	if got.ExpiresAt.Unix() != expires.Add(time.Hour).Unix() {
		t.Fatalf("expiry not extended: %v", got.ExpiresAt)
	}
}

func TestSessionRepoRotateRejectsForeignSession(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewSessionRepo(client)
	ctx := context.Background()

	if err := repo.Create(ctx, authsvc.SessionRecord{SID: "s1", UserID: 1, Role: "recruiter", ExpiresAt: time.Now().Add(time.Hour)}, "tok"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.RotateRefresh(ctx, "other", "tok", "tok2", time.Now().Add(time.Hour)); !errors.Is(err, authsvc.ErrRefreshNotFound) {
		t.Fatalf("expected refresh not found, got %v", err)
	}
}

func TestSessionRepoDeleteAllForUser(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := NewSessionRepo(client)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for i, sid := range []string{"a", "b"} {
		token := "tok-" + sid
		if err := repo.Create(ctx, authsvc.SessionRecord{SID: sid, UserID: 7, Role: "jobseeker", ExpiresAt: expires}, token); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if err := repo.Create(ctx, authsvc.SessionRecord{SID: "c", UserID: 8, Role: "jobseeker", ExpiresAt: expires}, "tok-c"); err != nil {
		t.Fatalf("create other user: %v", err)
	}

	if err := repo.DeleteAllForUser(ctx, 7); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	for _, sid := range []string{"a", "b"} {
		if _, err := repo.GetSession(ctx, sid); !errors.Is(err, authsvc.ErrSessionNotFound) {
			t.Fatalf("session %s still present: %v", sid, err)
		}
		if _, err := repo.GetByRefreshToken(ctx, "tok-"+sid); !errors.Is(err, authsvc.ErrRefreshNotFound) {
			t.Fatalf("refresh for %s still resolves: %v", sid, err)
		}
	}
	if _, err := repo.GetSession(ctx, "c"); err != nil {
		t.Fatalf("other user's session removed: %v", err)
	}
}
