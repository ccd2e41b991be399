package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	"github.com/ivankudzin/jobswipe/internal/domain/rules"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	activitysvc "github.com/ivankudzin/jobswipe/internal/services/activity"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxTitleRunes   = 200
	maxSkills       = 30
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("job not found")
	ErrForbidden       = errors.New("forbidden")
	ErrCompanyRequired = errors.New("company profile required")
)

type Mode string

const (
	ModeBrowse Mode = "browse"
	// ModeSwipe hides jobs the caller already decided on and orders the
	// rest by fit.
	ModeSwipe Mode = "swipe"
)

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type JobStore interface {
	Create(ctx context.Context, tx pgx.Tx, in pgrepo.JobInput) (int64, error)
	Get(ctx context.Context, jobID int64) (model.Job, error)
	IncrementViews(ctx context.Context, jobID int64) error
	List(ctx context.Context, f pgrepo.JobFilter) ([]model.Job, int, error)
}

type ProfileReader interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
}

type UserReader interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, userID int64, name string, props map[string]any)
}

type Dependencies struct {
	Tx       TxRunner
	Jobs     JobStore
	Profiles ProfileReader
	Users    UserReader
	Activity ActivityRecorder
	Logger   *zap.Logger
}

type Query struct {
	Mode            Mode
	Page            int
	Limit           int
	Search          string
	Location        string
	LocationType    string
	EmploymentType  string
	ExperienceLevel string
	MinSalary       *int
	MaxSalary       *int
}

type ScoredJob struct {
	model.Job
	// MatchScore is nil when the caller has no candidate profile to score against.
	MatchScore *int `json:"match_score,omitempty"`
}

type Page struct {
	Jobs    []ScoredJob
	Total   int
	Page    int
	Limit   int
	HasMore bool
}

type CreateInput struct {
	Title           string
	Description     string
	Location        string
	LocationType    string
	EmploymentType  string
	ExperienceLevel string
	MinSalary       *int
	MaxSalary       *int
	Currency        string
	Skills          []string
	Status          string
}

type Service struct {
	tx       TxRunner
	jobs     JobStore
	profiles ProfileReader
	users    UserReader
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		tx:       deps.Tx,
		jobs:     deps.Jobs,
		profiles: deps.Profiles,
		users:    deps.Users,
		activity: deps.Activity,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Feed lists active jobs for userID. Job seekers get a fit score per job;
// in swipe mode their already-decided jobs are left out and the page is
// ordered by that score.
func (s *Service) Feed(ctx context.Context, userID int64, role enums.Role, q Query) (Page, error) {
	if userID <= 0 {
		return Page{}, ErrValidation
	}
	mode, err := parseMode(q.Mode)
	if err != nil {
		return Page{}, err
	}
	page, limit := normalizePage(q.Page, q.Limit)
	if q.MinSalary != nil && q.MaxSalary != nil && *q.MinSalary > *q.MaxSalary {
		return Page{}, ErrValidation
	}

	filter := pgrepo.JobFilter{
		Search:          q.Search,
		Location:        q.Location,
		LocationType:    q.LocationType,
		EmploymentType:  q.EmploymentType,
		ExperienceLevel: q.ExperienceLevel,
		MinSalary:       q.MinSalary,
		MaxSalary:       q.MaxSalary,
		Limit:           limit,
		Offset:          (page - 1) * limit,
	}
	if mode == ModeSwipe && role == enums.RoleJobSeeker {
		filter.ExcludeDecidedBy = userID
	}

	items, total, err := s.jobs.List(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("list jobs: %w", err)
	}

	out := make([]ScoredJob, 0, len(items))
	for _, job := range items {
		out = append(out, ScoredJob{Job: job})
	}

	if role == enums.RoleJobSeeker {
		if profile, ok := s.candidateProfile(ctx, userID); ok {
			for i := range out {
				score := rules.MatchScore(out[i].Job, profile)
				out[i].MatchScore = &score
			}
			if mode == ModeSwipe {
				slices.SortStableFunc(out, func(a, b ScoredJob) int {
					return *b.MatchScore - *a.MatchScore
				})
			}
		}
	}

	return Page{
		Jobs:    out,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: (page-1)*limit+len(out) < total,
	}, nil
}

// Get returns one job and counts the view.
func (s *Service) Get(ctx context.Context, jobID int64) (model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrJobNotFound) {
			return model.Job{}, ErrNotFound
		}
		return model.Job{}, fmt.Errorf("get job: %w", err)
	}

	if err := s.jobs.IncrementViews(ctx, jobID); err != nil {
		s.logger.Warn("increment job views failed", zap.Int64("job_id", jobID), zap.Error(err))
	} else {
		job.ViewCount++
	}
	return job, nil
}

// Create posts a job on behalf of a recruiter with a company.
func (s *Service) Create(ctx context.Context, userID int64, role enums.Role, in CreateInput) (model.Job, error) {
	if role != enums.RoleRecruiter {
		return model.Job{}, ErrForbidden
	}

	input, err := validateCreate(in)
	if err != nil {
		return model.Job{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Job{}, fmt.Errorf("load poster: %w", err)
	}
	if user.CompanyID == nil || *user.CompanyID <= 0 {
		return model.Job{}, ErrCompanyRequired
	}
	input.PosterID = userID
	input.CompanyID = *user.CompanyID

	var jobID int64
	err = s.tx.WithinTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, err := s.jobs.Create(txCtx, tx, input)
		if err != nil {
			return err
		}
		jobID = id
		return nil
	})
	if err != nil {
		return model.Job{}, fmt.Errorf("create job: %w", err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, userID, activitysvc.EventJobPost, map[string]any{"job_id": jobID})
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return model.Job{}, fmt.Errorf("load created job: %w", err)
	}
	return job, nil
}

func (s *Service) candidateProfile(ctx context.Context, userID int64) (model.Profile, bool) {
	if s.profiles == nil {
		return model.Profile{}, false
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgrepo.ErrProfileNotFound) {
			s.logger.Warn("load profile for scoring failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return model.Profile{}, false
	}
	return profile, true
}

func parseMode(m Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(string(m)))) {
	case "", ModeBrowse:
		return ModeBrowse, nil
	case ModeSwipe:
		return ModeSwipe, nil
	default:
		return "", ErrValidation
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

var (
	locationTypes   = []string{"remote", "onsite", "hybrid"}
	employmentTypes = []string{"full-time", "part-time", "contract", "internship"}
	levels          = []string{"entry", "mid", "senior", "lead", "executive"}
)

func validateCreate(in CreateInput) (pgrepo.JobInput, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || utf8.RuneCountInString(title) > maxTitleRunes {
		return pgrepo.JobInput{}, ErrValidation
	}
	if in.MinSalary != nil && *in.MinSalary < 0 || in.MaxSalary != nil && *in.MaxSalary < 0 {
		return pgrepo.JobInput{}, ErrValidation
	}
	if in.MinSalary != nil && in.MaxSalary != nil && *in.MinSalary > *in.MaxSalary {
		return pgrepo.JobInput{}, ErrValidation
	}

	locationType, err := oneOf(in.LocationType, locationTypes, "onsite")
	if err != nil {
		return pgrepo.JobInput{}, err
	}
	employmentType, err := oneOf(in.EmploymentType, employmentTypes, "full-time")
	if err != nil {
		return pgrepo.JobInput{}, err
	}
	level, err := oneOf(in.ExperienceLevel, levels, "mid")
	if err != nil {
		return pgrepo.JobInput{}, err
	}

	status := enums.JobStatusActive
	switch enums.JobStatus(strings.ToLower(strings.TrimSpace(in.Status))) {
	case "", enums.JobStatusActive:
	case enums.JobStatusDraft:
		status = enums.JobStatusDraft
	default:
		return pgrepo.JobInput{}, ErrValidation
	}

	skills := pgrepo.NormalizeSkills(in.Skills)
	if len(skills) > maxSkills {
		return pgrepo.JobInput{}, ErrValidation
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	return pgrepo.JobInput{
		Status:          status,
		Title:           title,
		Description:     description,
		Location:        strings.TrimSpace(in.Location),
		LocationType:    locationType,
		EmploymentType:  employmentType,
		ExperienceLevel: level,
		MinSalary:       in.MinSalary,
		MaxSalary:       in.MaxSalary,
		Currency:        currency,
		Skills:          skills,
	}, nil
}

func oneOf(value string, allowed []string, fallback string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return fallback, nil
	}
	if !slices.Contains(allowed, v) {
		return "", ErrValidation
	}
	return v, nil
}
