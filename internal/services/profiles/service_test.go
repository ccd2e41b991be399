package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

type fakeStore struct {
	users     map[int64]model.User
	profiles  map[int64]model.Profile
	companies map[int64]model.Company
	lastUpd   *pgrepo.ProfileUpdate
	skillsSet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]model.User{
			1: {ID: 1, Name: "Ann", Role: enums.RoleJobSeeker},
			2: {ID: 2, Name: "Rob", Role: enums.RoleRecruiter},
		},
		profiles: map[int64]model.Profile{
			1: {UserID: 1, Headline: "old"},
			2: {UserID: 2},
		},
		companies: map[int64]model.Company{},
	}
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (f *fakeStore) Get(_ context.Context, userID int64) (model.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, pgrepo.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeStore) Update(_ context.Context, _ pgx.Tx, userID int64, upd pgrepo.ProfileUpdate) error {
	p, ok := f.profiles[userID]
	if !ok {
		return pgrepo.ErrProfileNotFound
	}
	f.lastUpd = &upd
	if upd.Headline != nil {
		p.Headline = *upd.Headline
	}
	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	f.profiles[userID] = p
	return nil
}

func (f *fakeStore) ReplaceSkills(_ context.Context, _ pgx.Tx, userID int64, skills []string) error {
	p := f.profiles[userID]
	p.Skills = skills
	f.profiles[userID] = p
	f.skillsSet = true
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, userID int64) (model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetCompany(_ context.Context, companyID int64) (model.Company, error) {
	c, ok := f.companies[companyID]
	if !ok {
		return model.Company{}, pgrepo.ErrCompanyNotFound
	}
	return c, nil
}

func (f *fakeStore) UpsertCompany(_ context.Context, _ pgx.Tx, ownerID int64, name, logo string) (model.Company, error) {
	c := model.Company{ID: 40 + ownerID, Name: name, Logo: logo, OwnerID: ownerID}
	f.companies[c.ID] = c
	u := f.users[ownerID]
	u.CompanyID = &c.ID
	f.users[ownerID] = u
	return c, nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, store, store)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateSanitizesAndReplacesSkills(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	view, err := svc.Update(context.Background(), 1, UpdateInput{
		Headline: ptr("  <i>Go</i> engineer "),
		Skills:   []string{"Go", "go", "SQL"},
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if view.Profile.Headline != "Go engineer" {
		t.Fatalf("headline = %q, want sanitized", view.Profile.Headline)
	}
	if len(view.Profile.Skills) != 2 {
		t.Fatalf("skills = %v, want deduplicated", view.Profile.Skills)
	}
	if store.lastUpd.Bio != nil {
		t.Fatalf("unset fields must stay nil")
	}
}

func TestUpdateWithoutSkillsKeepsThem(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.Update(context.Background(), 1, UpdateInput{Bio: ptr("hi")}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if store.skillsSet {
		t.Fatalf("skills must not be replaced when omitted")
	}
}

func TestUpdateValidation(t *testing.T) {
	svc := newTestService(newFakeStore())

	if _, err := svc.Update(context.Background(), 1, UpdateInput{AvatarURL: ptr("javascript:alert(1)")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("avatar error = %v, want ErrValidation", err)
	}
	long := make([]byte, maxHeadlineRunes+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := svc.Update(context.Background(), 1, UpdateInput{Headline: ptr(string(long))}); !errors.Is(err, ErrValidation) {
		t.Fatalf("headline error = %v, want ErrValidation", err)
	}
	if _, err := svc.Update(context.Background(), 99, UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing profile error = %v, want ErrNotFound", err)
	}
}

func TestSetCompanyRecruiterOnly(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.SetCompany(context.Background(), 1, enums.RoleJobSeeker, "Acme", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("job seeker error = %v, want ErrForbidden", err)
	}
	if _, err := svc.SetCompany(context.Background(), 2, enums.RoleRecruiter, "  ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name error = %v, want ErrValidation", err)
	}

	company, err := svc.SetCompany(context.Background(), 2, enums.RoleRecruiter, "Acme", "https://cdn.example.com/acme.png")
	if err != nil {
		t.Fatalf("SetCompany error: %v", err)
	}
	view, err := svc.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if view.Company == nil || view.Company.ID != company.ID {
		t.Fatalf("expected company on the profile view, got %+v", view.Company)
	}
}
