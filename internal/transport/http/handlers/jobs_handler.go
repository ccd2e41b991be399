package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
	jobsvc "github.com/ivankudzin/jobswipe/internal/services/jobs"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

type JobsHandler struct {
	service *jobsvc.Service
	logger  *zap.Logger
}

func NewJobsHandler(service *jobsvc.Service, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{service: service, logger: nopIfNil(logger)}
}

// List handles GET /jobs in browse or swipe mode.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "JOBS_SERVICE_UNAVAILABLE", "jobs service is unavailable")
		return
	}

	minSalary, okMin := queryOptionalInt(r, "minSalary")
	maxSalary, okMax := queryOptionalInt(r, "maxSalary")
	if !okMin || !okMax {
		writeBadRequest(w, httperrors.CodeValidation, "salary filters must be integers")
		return
	}

	q := r.URL.Query()
	page, err := h.service.Feed(r.Context(), identity.UserID, role, jobsvc.Query{
		Mode:            jobsvc.Mode(strings.TrimSpace(q.Get("mode"))),
		Page:            queryInt(r, "page", 1),
		Limit:           queryInt(r, "limit", 0),
		Search:          q.Get("search"),
		Location:        q.Get("location"),
		LocationType:    q.Get("locationType"),
		EmploymentType:  q.Get("employmentType"),
		ExperienceLevel: q.Get("experienceLevel"),
		MinSalary:       minSalary,
		MaxSalary:       maxSalary,
	})
	if err != nil {
		h.handleJobsError(w, r, err)
		return
	}

	resp := dto.JobsResponse{
		Jobs: make([]dto.JobResponse, 0, len(page.Jobs)),
		Pagination: dto.PaginationInfo{
			Page:    page.Page,
			Limit:   page.Limit,
			Total:   page.Total,
			HasMore: page.HasMore,
		},
	}
	for _, job := range page.Jobs {
		item := mapJob(job.Job)
		item.MatchScore = job.MatchScore
		resp.Jobs = append(resp.Jobs, item)
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := requireIdentity(w, r); !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "JOBS_SERVICE_UNAVAILABLE", "jobs service is unavailable")
		return
	}
	jobID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, httperrors.CodeValidation, "invalid job id")
		return
	}

	job, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		h.handleJobsError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapJob(job))
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "JOBS_SERVICE_UNAVAILABLE", "jobs service is unavailable")
		return
	}

	var req dto.CreateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}

	job, err := h.service.Create(r.Context(), identity.UserID, role, jobsvc.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		LocationType:    req.LocationType,
		EmploymentType:  req.EmploymentType,
		ExperienceLevel: req.ExperienceLevel,
		MinSalary:       req.MinSalary,
		MaxSalary:       req.MaxSalary,
		Currency:        req.Currency,
		Skills:          req.Skills,
		Status:          req.Status,
	})
	if err != nil {
		h.handleJobsError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, mapJob(job))
}

func (h *JobsHandler) handleJobsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, jobsvc.ErrCompanyRequired):
		writeBadRequest(w, httperrors.CodeValidation, "Please set up your company profile first")
	case errors.Is(err, jobsvc.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, "invalid job request")
	case errors.Is(err, jobsvc.ErrForbidden):
		writeForbidden(w, httperrors.CodeForbidden, "only recruiters can post jobs")
	case errors.Is(err, jobsvc.ErrNotFound):
		writeNotFound(w, httperrors.CodeNotFound, "job not found")
	default:
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "internal server error")
	}
}

func mapJob(job model.Job) dto.JobResponse {
	skills := job.Skills
	if skills == nil {
		skills = []string{}
	}
	return dto.JobResponse{
		ID:              job.ID,
		PosterID:        job.PosterID,
		CompanyID:       job.CompanyID,
		CompanyName:     job.CompanyName,
		CompanyLogo:     job.CompanyLogo,
		Status:          string(job.Status),
		Title:           job.Title,
		Description:     job.Description,
		Location:        job.Location,
		LocationType:    job.LocationType,
		EmploymentType:  job.EmploymentType,
		ExperienceLevel: job.ExperienceLevel,
		MinSalary:       job.MinSalary,
		MaxSalary:       job.MaxSalary,
		Currency:        job.Currency,
		Featured:        job.Featured,
		Skills:          skills,
		ViewCount:       job.ViewCount,
		CreatedAt:       job.CreatedAt,
	}
}
