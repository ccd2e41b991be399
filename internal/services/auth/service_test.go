package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/events"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	redrepo "github.com/ivankudzin/jobswipe/internal/repo/redis"
	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
)

type txStub struct{}

func (txStub) WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

type usersStub struct {
	byEmail   map[string]model.User
	nextID    int64
	companies map[int64]model.Company
}

func newUsersStub() *usersStub {
	return &usersStub{byEmail: map[string]model.User{}, companies: map[int64]model.Company{}}
}

func (s *usersStub) Create(_ context.Context, _ pgx.Tx, email, hash, name string, role enums.Role) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.byEmail[email]; ok {
		return model.User{}, pgrepo.ErrEmailTaken
	}
	s.nextID++
	u := model.User{ID: s.nextID, Email: email, PasswordHash: hash, Name: name, Role: role}
	s.byEmail[email] = u
	return u, nil
}

func (s *usersStub) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return u, nil
}

func (s *usersStub) TouchLastActive(context.Context, int64, time.Time) error { return nil }

func (s *usersStub) UpsertCompany(_ context.Context, _ pgx.Tx, ownerID int64, name, logo string) (model.Company, error) {
	c := model.Company{ID: ownerID * 10, Name: name, Logo: logo, OwnerID: ownerID}
	s.companies[ownerID] = c
	return c, nil
}

type profilesStub struct{ created []int64 }

func (s *profilesStub) Create(_ context.Context, _ pgx.Tx, userID int64) error {
	s.created = append(s.created, userID)
	return nil
}

type subscriptionsStub struct{ created []model.Quota }

func (s *subscriptionsStub) Create(_ context.Context, _ pgx.Tx, q model.Quota) error {
	s.created = append(s.created, q)
	return nil
}

type authFixture struct {
	svc    *authsvc.Service
	users  *usersStub
	subs   *subscriptionsStub
	events []events.Event
}

func TestSignupCreatesAccountAndPublishesEvent(t *testing.T) {
	f, cleanup := newAuthFixture(t)
	defer cleanup()

	res, err := f.svc.Signup(context.Background(), authsvc.SignupInput{
		Name:        "Rita Recruiter",
		Email:       "Rita@Example.com",
		Password:    "Secret123",
		Role:        "recruiter",
		CompanyName: "Acme",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.Me.Role != "recruiter" {
		t.Fatalf("unexpected auth result: %+v", res.Me)
	}
	if len(f.subs.created) != 1 || f.subs.created[0].SwipesRemaining != 50 || f.subs.created[0].SuperLikesRemaining != 5 {
		t.Fatalf("expected free subscription, got %+v", f.subs.created)
	}
	if f.subs.created[0].AICreditsRemaining != 10 {
		t.Fatalf("expected 10 starter ai credits, got %d", f.subs.created[0].AICreditsRemaining)
	}
	if _, ok := f.users.companies[res.Me.ID]; !ok {
		t.Fatalf("expected company to be created for recruiter")
	}
	if len(f.events) != 1 || f.events[0].Type != events.TypeUserRegistered {
		t.Fatalf("expected user.registered event, got %+v", f.events)
	}

	if _, err := f.svc.Signup(context.Background(), authsvc.SignupInput{
		Name: "Rita", Email: "rita@example.com", Password: "Secret123", Role: "recruiter",
	}); !errors.Is(err, authsvc.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	f, cleanup := newAuthFixture(t)
	defer cleanup()

	cases := []struct {
		in    authsvc.SignupInput
		field string
	}{
		{authsvc.SignupInput{Name: "A", Email: "a@example.com", Password: "Secret123", Role: "jobseeker"}, "name"},
		{authsvc.SignupInput{Name: "Ann", Email: "nope", Password: "Secret123", Role: "jobseeker"}, "email"},
		{authsvc.SignupInput{Name: "Ann", Email: "a@example.com", Password: "secret", Role: "jobseeker"}, "password"},
		{authsvc.SignupInput{Name: "Ann", Email: "a@example.com", Password: "Secret123", Role: "admin"}, "role"},
	}
	for _, tc := range cases {
		_, err := f.svc.Signup(context.Background(), tc.in)
		var verr authsvc.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("expected validation error on %s, got %v", tc.field, err)
		}
		if !errors.Is(err, authsvc.ErrInvalidInput) {
			t.Fatalf("validation error should wrap ErrInvalidInput")
		}
	}
	if len(f.events) != 0 {
		t.Fatalf("rejected signups must not publish events")
	}
}

func TestLoginChecksPassword(t *testing.T) {
	f, cleanup := newAuthFixture(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, authsvc.SignupInput{
		Name: "Jo Seeker", Email: "jo@example.com", Password: "Secret123", Role: "jobseeker",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := f.svc.Login(ctx, "jo@example.com", "Wrong1234"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "missing@example.com", "Secret123"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}

	res, err := f.svc.Login(ctx, "JO@example.com", "Secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.Role != string(enums.RoleJobSeeker) || claims.UserID != res.Me.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshRotation(t *testing.T) {
	f, cleanup := newAuthFixture(t)
	defer cleanup()

	ctx := context.Background()
	loginRes := signupJobSeeker(t, f.svc, "rot@example.com")

	refreshRes, err := f.svc.Refresh(ctx, loginRes.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if refreshRes.RefreshToken == loginRes.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	if _, err := f.svc.Refresh(ctx, loginRes.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old refresh token should be unauthorized, got err=%v", err)
	}

	if _, err := f.svc.ValidateAccessToken(ctx, refreshRes.AccessToken); err != nil {
		t.Fatalf("new access token validation failed: %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	f, cleanup := newAuthFixture(t)
	defer cleanup()

	ctx := context.Background()
	loginRes := signupJobSeeker(t, f.svc, "out@example.com")

	claims, err := f.svc.ValidateAccessToken(ctx, loginRes.AccessToken)
	if err != nil {
		t.Fatalf("validate access token before logout: %v", err)
	}

	if err := f.svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := f.svc.ValidateAccessToken(ctx, loginRes.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after logout, got err=%v", err)
	}
}

func signupJobSeeker(t *testing.T, svc *authsvc.Service, email string) authsvc.AuthResult {
	t.Helper()
	res, err := svc.Signup(context.Background(), authsvc.SignupInput{
		Name: "Test User", Email: email, Password: "Secret123", Role: "jobseeker",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return res
}

func newAuthFixture(t *testing.T) (*authFixture, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	f := &authFixture{users: newUsersStub(), subs: &subscriptionsStub{}}
	f.svc = authsvc.NewService(authsvc.Dependencies{
		JWT:           authsvc.NewJWTManager("test-secret", 15*time.Minute),
		Sessions:      redrepo.NewSessionRepo(client),
		Users:         f.users,
		Profiles:      &profilesStub{},
		Subscriptions: f.subs,
		Tx:            txStub{},
		Events: events.NewInline(events.HandlerFunc(func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})),
	}, authsvc.Config{RefreshTTL: 45 * 24 * time.Hour, BcryptCost: 4})

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}

	return f, cleanup
}
