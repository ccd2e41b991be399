package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
)

const (
	sessionKeyPrefix      = "jobswipe:session:"
	refreshKeyPrefix      = "jobswipe:refresh:"
	userSessionsKeyPrefix = "jobswipe:user_sessions:"
)

// SessionRepo keeps one hash per session. Refresh tokens are never stored in
// clear: a SHA-256 digest of the token points back at the session id.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID <= 0 {
		return authsvc.ErrInvalidInput
	}

	digest := refreshDigest(refreshToken)
	ttl := ttlUntil(session.ExpiresAt)

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(session.SID),
			"user_id", session.UserID,
			"role", session.Role,
			"expires_at", session.ExpiresAt.Unix(),
			"refresh", digest,
		)
		pipe.Expire(ctx, sessionKey(session.SID), ttl)
		pipe.Set(ctx, refreshKey(digest), session.SID, ttl)
		pipe.SAdd(ctx, userSessionsKey(session.UserID), session.SID)
		pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
	}

	values, err := r.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("load session: %w", err)
	}
	if len(values) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
	}
	return decodeSession(sid, values)
}

// GetByRefreshToken resolves the session a refresh token belongs to. A token
// that was rotated away no longer resolves.
func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	digest := refreshDigest(refreshToken)
	sid, err := r.client.Get(ctx, refreshKey(digest)).Result()
	if errors.Is(err, goredis.Nil) {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("resolve refresh token: %w", err)
	}

	values, err := r.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("load session: %w", err)
	}
	if len(values) == 0 || values["refresh"] != digest {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	return decodeSession(sid, values)
}

// RotateRefresh swaps the refresh token of a session. The old token is
// watched, so two concurrent rotations with the same token cannot both win.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(newRefreshToken) == "" {
		return authsvc.ErrInvalidInput
	}

	oldDigest := refreshDigest(oldRefreshToken)
	newDigest := refreshDigest(newRefreshToken)
	ttl := ttlUntil(expiresAt)

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		owner, err := tx.Get(ctx, refreshKey(oldDigest)).Result()
		if errors.Is(err, goredis.Nil) {
			return authsvc.ErrRefreshNotFound
		}
		if err != nil {
			return err
		}
		if sid != "" && owner != sid {
			return authsvc.ErrRefreshNotFound
		}

		rawUserID, err := tx.HGet(ctx, sessionKey(owner), "user_id").Result()
		if errors.Is(err, goredis.Nil) {
			return authsvc.ErrRefreshNotFound
		}
		if err != nil {
			return err
		}
		userID, err := strconv.ParseInt(rawUserID, 10, 64)
		if err != nil || userID <= 0 {
			return authsvc.ErrUnauthorized
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, refreshKey(oldDigest))
			pipe.Set(ctx, refreshKey(newDigest), owner, ttl)
			pipe.HSet(ctx, sessionKey(owner), "expires_at", expiresAt.Unix(), "refresh", newDigest)
			pipe.Expire(ctx, sessionKey(owner), ttl)
			pipe.SAdd(ctx, userSessionsKey(userID), owner)
			pipe.Expire(ctx, userSessionsKey(userID), ttl)
			return nil
		})
		return err
	}, refreshKey(oldDigest))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, goredis.TxFailedErr):
		// Someone else rotated the same token first.
		return authsvc.ErrRefreshNotFound
	case errors.Is(err, authsvc.ErrRefreshNotFound), errors.Is(err, authsvc.ErrUnauthorized):
		return err
	default:
		return fmt.Errorf("rotate refresh token: %w", err)
	}
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	values, err := r.client.HMGet(ctx, sessionKey(sid), "user_id", "refresh").Result()
	if err != nil {
		return fmt.Errorf("load session for delete: %w", err)
	}
	userID, _ := strconv.ParseInt(hashString(values[0]), 10, 64)
	digest := hashString(values[1])

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sid))
		if digest != "" {
			pipe.Del(ctx, refreshKey(digest))
		}
		if userID > 0 {
			pipe.SRem(ctx, userSessionsKey(userID), sid)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return authsvc.ErrInvalidInput
	}

	sids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete user session index: %w", err)
	}
	return nil
}

func decodeSession(sid string, values map[string]string) (authsvc.SessionRecord, error) {
	userID, err := strconv.ParseInt(values["user_id"], 10, 64)
	if err != nil || userID <= 0 {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}
	expires, err := strconv.ParseInt(values["expires_at"], 10, 64)
	if err != nil {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}
	return authsvc.SessionRecord{
		SID:       sid,
		UserID:    userID,
		Role:      values["role"],
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}, nil
}

func hashString(v any) string {
	s, _ := v.(string)
	return s
}

func refreshDigest(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func ttlUntil(expiresAt time.Time) time.Duration {
	if ttl := time.Until(expiresAt); ttl > 0 {
		return ttl
	}
	return time.Second
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}

func refreshKey(digest string) string {
	return refreshKeyPrefix + digest
}

func userSessionsKey(userID int64) string {
	return userSessionsKeyPrefix + strconv.FormatInt(userID, 10)
}
