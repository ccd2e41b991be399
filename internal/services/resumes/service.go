package resumes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrTooLarge        = errors.New("resume too large")
	ErrUnsupportedType = errors.New("unsupported resume type")
	ErrNotFound        = errors.New("resume not found")
)

const (
	defaultMaxBytes = 5 << 20
	defaultURLTTL   = 15 * time.Minute
)

var allowedTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
	SetResumeKey(ctx context.Context, userID int64, key string) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	MaxBytes int64
	URLTTL   time.Duration
}

type Service struct {
	profiles ProfileStore
	storage  ObjectStorage
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

type Resume struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

func NewService(profiles ProfileStore, storage ObjectStorage, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = defaultURLTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		storage:  storage,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// Upload stores a new resume for userID and replaces the previous one.
func (s *Service) Upload(ctx context.Context, userID int64, fileName string, body io.Reader, size int64) (Resume, error) {
	if userID <= 0 || body == nil || size <= 0 {
		return Resume{}, ErrValidation
	}
	if size > s.cfg.MaxBytes {
		return Resume{}, ErrTooLarge
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	contentType, ok := allowedTypes[ext]
	if !ok {
		return Resume{}, ErrUnsupportedType
	}
	if s.profiles == nil || s.storage == nil {
		return Resume{}, fmt.Errorf("resume dependencies are not configured")
	}

	previous, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, fmt.Errorf("load profile: %w", err)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Resume{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key, err := s.objectKey(userID, ext)
	if err != nil {
		return Resume{}, fmt.Errorf("build object key: %w", err)
	}
	if err := s.storage.Put(ctx, key, io.LimitReader(body, size), size, contentType); err != nil {
		return Resume{}, fmt.Errorf("put object: %w", err)
	}

	if err := s.profiles.SetResumeKey(ctx, userID, key); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("delete orphan resume failed", zap.String("key", key), zap.Error(delErr))
		}
		return Resume{}, fmt.Errorf("save resume key: %w", err)
	}

	if old := previous.ResumeKey; old != "" && old != key {
		if err := s.storage.Delete(ctx, old); err != nil {
			s.logger.Warn("delete previous resume failed", zap.String("key", old), zap.Error(err))
		}
	}

	return s.sign(ctx, key)
}

// Link returns a fresh download link for the user's current resume.
func (s *Service) Link(ctx context.Context, userID int64) (Resume, error) {
	if userID <= 0 {
		return Resume{}, ErrValidation
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, fmt.Errorf("load profile: %w", err)
	}
	if profile.ResumeKey == "" {
		return Resume{}, ErrNotFound
	}
	return s.sign(ctx, profile.ResumeKey)
}

func (s *Service) sign(ctx context.Context, key string) (Resume, error) {
	url, err := s.storage.PresignGet(ctx, key, s.cfg.URLTTL)
	if err != nil {
		return Resume{}, fmt.Errorf("presign resume url: %w", err)
	}
	return Resume{
		Key:       key,
		URL:       url,
		ExpiresAt: s.now().UTC().Add(s.cfg.URLTTL),
	}, nil
}

func (s *Service) objectKey(userID int64, ext string) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}
	stamp := s.now().UTC().Format("20060102T150405")
	return fmt.Sprintf("users/%d/resume/%s_%s%s", userID, stamp, hex.EncodeToString(rnd), ext), nil
}
