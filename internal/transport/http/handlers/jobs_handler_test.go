package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/model"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
	jobsvc "github.com/ivankudzin/jobswipe/internal/services/jobs"
)

func TestCreateJobRequiresCompany(t *testing.T) {
	h := NewJobsHandler(jobsvc.NewService(jobsvc.Dependencies{
		Tx:    txStub{},
		Jobs:  &jobsStoreStub{},
		Users: usersStub{},
	}), nil)

	rr := performJSON(t, h.Create, http.MethodPost, "/jobs", map[string]any{
		"title":       "Backend Engineer",
		"description": "Build the swipe service",
		"location":    "Berlin",
		"skills":      []string{"Go"},
	}, posterID, enums.RoleRecruiter)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeError(t, rr)
	if payload.Message != "Please set up your company profile first" {
		t.Fatalf("unexpected message: %q", payload.Message)
	}
}

func TestCreateJobForbiddenForJobSeeker(t *testing.T) {
	h := NewJobsHandler(jobsvc.NewService(jobsvc.Dependencies{
		Tx:    txStub{},
		Jobs:  &jobsStoreStub{},
		Users: usersStub{},
	}), nil)

	rr := performJSON(t, h.Create, http.MethodPost, "/jobs", map[string]any{
		"title": "Backend Engineer",
	}, candidateID, enums.RoleJobSeeker)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestListJobsParsesQuery(t *testing.T) {
	store := &jobsStoreStub{jobs: []model.Job{{ID: 1, Title: "Go developer", Status: enums.JobStatusActive}}}
	h := NewJobsHandler(jobsvc.NewService(jobsvc.Dependencies{
		Tx:    txStub{},
		Jobs:  store,
		Users: usersStub{},
	}), nil)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/jobs?mode=browse&page=2&limit=5&search=go&locationType=remote&minSalary=1000", nil), posterID, enums.RoleRecruiter)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body=%s", rr.Code, rr.Body.String())
	}
	if store.filter.Search != "go" || store.filter.LocationType != "remote" {
		t.Fatalf("filters not passed: %+v", store.filter)
	}
	if store.filter.MinSalary == nil || *store.filter.MinSalary != 1000 {
		t.Fatalf("min salary not passed: %+v", store.filter.MinSalary)
	}

	var payload struct {
		Jobs       []map[string]any `json:"jobs"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Jobs) != 1 || payload.Pagination.Page != 2 || payload.Pagination.Limit != 5 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if _, ok := payload.Jobs[0]["matchScore"]; ok {
		t.Fatalf("recruiter listing must not carry a match score")
	}
}

func TestListJobsRejectsBadSalary(t *testing.T) {
	h := NewJobsHandler(jobsvc.NewService(jobsvc.Dependencies{Tx: txStub{}, Jobs: &jobsStoreStub{}}), nil)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/jobs?minSalary=lots", nil), posterID, enums.RoleRecruiter)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

type txStub struct{}

func (txStub) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

type jobsStoreStub struct {
	jobs   []model.Job
	filter pgrepo.JobFilter
}

func (s *jobsStoreStub) Create(context.Context, pgx.Tx, pgrepo.JobInput) (int64, error) {
	return 1, nil
}

func (s *jobsStoreStub) Get(_ context.Context, jobID int64) (model.Job, error) {
	for _, job := range s.jobs {
		if job.ID == jobID {
			return job, nil
		}
	}
	return model.Job{}, pgrepo.ErrJobNotFound
}

func (s *jobsStoreStub) IncrementViews(context.Context, int64) error {
	return nil
}

func (s *jobsStoreStub) List(_ context.Context, f pgrepo.JobFilter) ([]model.Job, int, error) {
	s.filter = f
	return s.jobs, len(s.jobs), nil
}

type usersStub struct{}

func (usersStub) GetByID(_ context.Context, userID int64) (model.User, error) {
	return model.User{ID: userID, Role: enums.RoleRecruiter}, nil
}
