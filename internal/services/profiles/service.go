package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

const (
	maxHeadlineRunes = 120
	maxBioRunes      = 2000
	maxLocationRunes = 120
	maxSkills        = 50
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
	ErrForbidden  = errors.New("forbidden")
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
	Update(ctx context.Context, tx pgx.Tx, userID int64, upd pgrepo.ProfileUpdate) error
	ReplaceSkills(ctx context.Context, tx pgx.Tx, userID int64, skills []string) error
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
	GetCompany(ctx context.Context, companyID int64) (model.Company, error)
	UpsertCompany(ctx context.Context, tx pgx.Tx, ownerID int64, name, logo string) (model.Company, error)
}

type Service struct {
	tx        TxRunner
	profiles  ProfileStore
	users     UserStore
	sanitizer *bluemonday.Policy
}

// View is the caller's own account as shown on the profile screen.
type View struct {
	User    model.User
	Profile model.Profile
	Company *model.Company
}

// UpdateInput holds optional changes. Nil fields are left as they are;
// a non-nil empty Skills clears the skill list.
type UpdateInput struct {
	Headline           *string
	Bio                *string
	Location           *string
	AvatarURL          *string
	PreferredRemote    *bool
	PreferredJobTypes  []string
	Skills             []string
	OnboardingComplete *bool
}

func NewService(tx TxRunner, profiles ProfileStore, users UserStore) *Service {
	return &Service{
		tx:        tx,
		profiles:  profiles,
		users:     users,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *Service) Get(ctx context.Context, userID int64) (View, error) {
	if userID <= 0 {
		return View{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("load user: %w", err)
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("load profile: %w", err)
	}

	view := View{User: user, Profile: profile}
	if user.CompanyID != nil {
		company, err := s.users.GetCompany(ctx, *user.CompanyID)
		switch {
		case err == nil:
			view.Company = &company
		case !errors.Is(err, pgrepo.ErrCompanyNotFound):
			return View{}, fmt.Errorf("load company: %w", err)
		}
	}
	return view, nil
}

func (s *Service) Update(ctx context.Context, userID int64, in UpdateInput) (View, error) {
	if userID <= 0 {
		return View{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	upd, err := s.normalize(in)
	if err != nil {
		return View{}, err
	}
	var skills []string
	if in.Skills != nil {
		skills = pgrepo.NormalizeSkills(in.Skills)
		if len(skills) > maxSkills {
			return View{}, fmt.Errorf("too many skills: %w", ErrValidation)
		}
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.profiles.Update(txCtx, tx, userID, upd); err != nil {
			return err
		}
		if in.Skills != nil {
			return s.profiles.ReplaceSkills(txCtx, tx, userID, skills)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("update profile: %w", err)
	}

	return s.Get(ctx, userID)
}

// SetCompany creates or renames the recruiter's company.
func (s *Service) SetCompany(ctx context.Context, userID int64, role enums.Role, name, logo string) (model.Company, error) {
	if role != enums.RoleRecruiter {
		return model.Company{}, ErrForbidden
	}
	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" || utf8.RuneCountInString(name) > maxHeadlineRunes {
		return model.Company{}, fmt.Errorf("company name: %w", ErrValidation)
	}
	logo = strings.TrimSpace(logo)
	if logo != "" && !validate.HTTPURL(logo) {
		return model.Company{}, fmt.Errorf("company logo: %w", ErrValidation)
	}

	var company model.Company
	err := s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		c, err := s.users.UpsertCompany(txCtx, tx, userID, name, logo)
		if err != nil {
			return err
		}
		company = c
		return nil
	})
	if err != nil {
		return model.Company{}, fmt.Errorf("save company: %w", err)
	}
	return company, nil
}

func (s *Service) normalize(in UpdateInput) (pgrepo.ProfileUpdate, error) {
	upd := pgrepo.ProfileUpdate{
		PreferredRemote:    in.PreferredRemote,
		OnboardingComplete: in.OnboardingComplete,
	}

	var err error
	if upd.Headline, err = s.text(in.Headline, maxHeadlineRunes); err != nil {
		return pgrepo.ProfileUpdate{}, fmt.Errorf("headline: %w", err)
	}
	if upd.Bio, err = s.text(in.Bio, maxBioRunes); err != nil {
		return pgrepo.ProfileUpdate{}, fmt.Errorf("bio: %w", err)
	}
	if upd.Location, err = s.text(in.Location, maxLocationRunes); err != nil {
		return pgrepo.ProfileUpdate{}, fmt.Errorf("location: %w", err)
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" && !validate.HTTPURL(avatar) {
			return pgrepo.ProfileUpdate{}, fmt.Errorf("avatar url: %w", ErrValidation)
		}
		upd.AvatarURL = &avatar
	}
	if in.PreferredJobTypes != nil {
		upd.PreferredJobTypes = pgrepo.NormalizeSkills(in.PreferredJobTypes)
	}
	return upd, nil
}

func (s *Service) text(value *string, maxRunes int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(*value))
	if utf8.RuneCountInString(cleaned) > maxRunes {
		return nil, ErrValidation
	}
	return &cleaned, nil
}
