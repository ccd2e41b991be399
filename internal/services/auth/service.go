package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/domain/rules"
	"github.com/ivankudzin/jobswipe/internal/events"
	"github.com/ivankudzin/jobswipe/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

type UserStore interface {
	Create(ctx context.Context, tx pgx.Tx, email, passwordHash, name string, role enums.Role) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
	UpsertCompany(ctx context.Context, tx pgx.Tx, ownerID int64, name, logo string) (model.Company, error)
}

type ProfileStore interface {
	Create(ctx context.Context, tx pgx.Tx, userID int64) error
}

type SubscriptionStore interface {
	Create(ctx context.Context, tx pgx.Tx, quota model.Quota) error
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type Dependencies struct {
	JWT           *JWTManager
	Sessions      SessionStore
	Users         UserStore
	Profiles      ProfileStore
	Subscriptions SubscriptionStore
	Tx            TxRunner
	Events        events.Publisher
	Logger        *zap.Logger
}

type Config struct {
	RefreshTTL              time.Duration
	BcryptCost              int
	FreeSwipesPerPeriod     int
	FreeSuperLikesPerPeriod int
	SignupAICredits         int
}

type Service struct {
	jwt           *JWTManager
	sessions      SessionStore
	users         UserStore
	profiles      ProfileStore
	subscriptions SubscriptionStore
	tx            TxRunner
	events        events.Publisher
	logger        *zap.Logger
	cfg           Config
	now           func() time.Time
	// dummyHash is compared against when the email is unknown so that
	// both login failures cost one bcrypt run.
	dummyHash []byte
	compare   func(hash, password []byte) error
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.RefreshTTL < MinRefreshTTL {
		cfg.RefreshTTL = MinRefreshTTL
	}
	if cfg.RefreshTTL > MaxRefreshTTL {
		cfg.RefreshTTL = MaxRefreshTTL
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = 12
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	// Any valid hash at the configured cost will do; a failure only leaves
	// the compare to reject early.
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("jobswipe-unknown-account"), cfg.BcryptCost)
	if err != nil {
		deps.Logger.Warn("generate dummy password hash failed", zap.Error(err))
	}

	return &Service{
		jwt:           deps.JWT,
		sessions:      deps.Sessions,
		users:         deps.Users,
		profiles:      deps.Profiles,
		subscriptions: deps.Subscriptions,
		tx:            deps.Tx,
		events:        deps.Events,
		logger:        deps.Logger,
		cfg:           cfg,
		now:           time.Now,
		dummyHash:     dummyHash,
		compare:       bcrypt.CompareHashAndPassword,
	}
}

// Signup creates the account with an empty profile and a free subscription
// in one transaction, then opens a session.
func (s *Service) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	role, err := validateSignup(in)
	if err != nil {
		return AuthResult{}, err
	}
	if s.users == nil || s.profiles == nil || s.subscriptions == nil || s.tx == nil {
		return AuthResult{}, fmt.Errorf("signup dependencies are not configured")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	var user model.User
	err = s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		created, err := s.users.Create(txCtx, tx, in.Email, string(hash), in.Name, role)
		if err != nil {
			return err
		}
		if err := s.profiles.Create(txCtx, tx, created.ID); err != nil {
			return err
		}
		starter := rules.Limits{
			FreeSwipes:     s.cfg.FreeSwipesPerPeriod,
			FreeSuperLikes: s.cfg.FreeSuperLikesPerPeriod,
		}.For(enums.PlanFree)
		if err := s.subscriptions.Create(txCtx, tx, model.Quota{
			UserID:              created.ID,
			Plan:                enums.PlanFree,
			SwipesRemaining:     starter.Swipes,
			SuperLikesRemaining: starter.SuperLikes,
			AICreditsRemaining:  rules.StarterAICredits(s.cfg.SignupAICredits),
			PeriodStartedAt:     now,
		}); err != nil {
			return err
		}
		if role == enums.RoleRecruiter && strings.TrimSpace(in.CompanyName) != "" {
			company, err := s.users.UpsertCompany(txCtx, tx, created.ID, in.CompanyName, "")
			if err != nil {
				return err
			}
			created.CompanyID = &company.ID
		}
		user = created
		return nil
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("create account: %w", err)
	}

	s.publish(ctx, events.TypeUserRegistered, events.UserRegistered{
		UserID: user.ID,
		Name:   user.Name,
		Role:   string(user.Role),
	})

	return s.issueForUser(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if !validate.Required(email) || password == "" {
		return AuthResult{}, ValidationError{Field: "email", Message: "email and password are required"}
	}
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("login dependencies are not configured")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			_ = s.compare(s.dummyHash, []byte(password))
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("touch last active failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return s.issueForUser(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID, session.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:   session.UserID,
			Role: session.Role,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID || session.Role != claims.Role {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) issueForUser(ctx context.Context, user model.User) (AuthResult, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	role := string(user.Role)
	session := SessionRecord{
		SID:       sessionID,
		UserID:    user.ID,
		Role:      role,
		ExpiresAt: s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(user.ID, sessionID, role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  role,
		},
	}, nil
}

func (s *Service) publish(ctx context.Context, eventType events.Type, payload any) {
	event, err := events.New(eventType, payload, s.now())
	if err == nil {
		err = s.events.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func validateSignup(in SignupInput) (enums.Role, error) {
	if !validate.MinRunes(in.Name, 2) {
		return "", ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if !validate.Email(in.Email) {
		return "", ValidationError{Field: "email", Message: "invalid email address"}
	}
	if !validate.StrongPassword(in.Password) {
		return "", ValidationError{Field: "password", Message: "password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a number"}
	}
	role, err := enums.ParseRole(in.Role)
	if err != nil {
		return "", ValidationError{Field: "role", Message: "role must be jobseeker or recruiter"}
	}
	return role, nil
}
