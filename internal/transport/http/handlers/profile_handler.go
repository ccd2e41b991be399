package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
	assistantsvc "github.com/ivankudzin/jobswipe/internal/services/assistant"
	profilesvc "github.com/ivankudzin/jobswipe/internal/services/profiles"
	resumesvc "github.com/ivankudzin/jobswipe/internal/services/resumes"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

const noCreditsMessage = "No AI credits remaining. Upgrade to Premium!"

type ProfileHandler struct {
	service   *profilesvc.Service
	resumes   *resumesvc.Service
	assistant *assistantsvc.Service
	logger    *zap.Logger
}

func NewProfileHandler(service *profilesvc.Service, resumes *resumesvc.Service, assistant *assistantsvc.Service, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, resumes: resumes, assistant: assistant, logger: nopIfNil(logger)}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	view, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		h.handleProfileError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapProfileView(view))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}

	view, err := h.service.Update(r.Context(), identity.UserID, profilesvc.UpdateInput{
		Headline:           req.Headline,
		Bio:                req.Bio,
		Location:           req.Location,
		AvatarURL:          req.AvatarURL,
		PreferredRemote:    req.PreferredRemote,
		PreferredJobTypes:  req.PreferredJobTypes,
		Skills:             req.Skills,
		OnboardingComplete: req.OnboardingComplete,
	})
	if err != nil {
		h.handleProfileError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapProfileView(view))
}

// SetCompany handles PUT /company.
func (h *ProfileHandler) SetCompany(w http.ResponseWriter, r *http.Request) {
	identity, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.CompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}

	company, err := h.service.SetCompany(r.Context(), identity.UserID, role, req.Name, req.Logo)
	if err != nil {
		h.handleProfileError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapCompany(company))
}

// UploadResume handles POST /profile/resume as multipart field "file".
func (h *ProfileHandler) UploadResume(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.resumes == nil {
		writeInternal(w, "RESUME_SERVICE_UNAVAILABLE", "resume storage is unavailable")
		return
	}

	limit := h.resumes.MaxBytes() + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBadRequest(w, httperrors.CodeValidation, "resume is too large")
			return
		}
		writeBadRequest(w, httperrors.CodeValidation, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, httperrors.CodeValidation, "file is empty")
		return
	}

	resume, err := h.resumes.Upload(r.Context(), identity.UserID, header.Filename, file, header.Size)
	if err != nil {
		h.handleResumeError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ResumeResponse{URL: resume.URL, ExpiresAt: resume.ExpiresAt})
}

// Resume handles GET /profile/resume with a fresh presigned link.
func (h *ProfileHandler) Resume(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.resumes == nil {
		writeInternal(w, "RESUME_SERVICE_UNAVAILABLE", "resume storage is unavailable")
		return
	}

	resume, err := h.resumes.Link(r.Context(), identity.UserID)
	if err != nil {
		h.handleResumeError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ResumeResponse{URL: resume.URL, ExpiresAt: resume.ExpiresAt})
}

// Optimize handles POST /profile/optimize. Each call costs one AI credit.
func (h *ProfileHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil || h.assistant == nil {
		writeInternal(w, "ASSISTANT_UNAVAILABLE", "profile optimization is unavailable")
		return
	}

	view, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		h.handleProfileError(w, r, err)
		return
	}

	res, err := h.assistant.OptimizeProfile(r.Context(), assistantsvc.ProfileInput{
		UserID:      identity.UserID,
		Headline:    view.Profile.Headline,
		Bio:         view.Profile.Bio,
		Skills:      view.Profile.Skills,
		TargetRoles: view.Profile.PreferredJobTypes,
	})
	if err != nil {
		if errors.Is(err, assistantsvc.ErrNoCredits) {
			writeForbidden(w, httperrors.CodeQuotaExceeded, noCreditsMessage)
			return
		}
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "failed to optimize profile")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProfileOptimizationResponse{
		Suggestions: dto.ProfileSuggestions{
			OptimizedHeadline:  res.Suggestions.OptimizedHeadline,
			OptimizedBio:       res.Suggestions.OptimizedBio,
			SuggestedSkills:    nonNil(res.Suggestions.SuggestedSkills),
			Tips:               nonNil(res.Suggestions.Tips),
			KeywordSuggestions: nonNil(res.Suggestions.KeywordSuggestions),
		},
		AICreditsRemaining: res.CreditsRemaining,
	})
}

func (h *ProfileHandler) handleProfileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, profilesvc.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, "invalid profile data")
	case errors.Is(err, profilesvc.ErrForbidden):
		writeForbidden(w, httperrors.CodeForbidden, "only recruiters can manage a company")
	case errors.Is(err, profilesvc.ErrNotFound):
		writeNotFound(w, httperrors.CodeNotFound, "profile not found")
	default:
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "internal server error")
	}
}

func (h *ProfileHandler) handleResumeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resumesvc.ErrTooLarge):
		writeBadRequest(w, httperrors.CodeValidation, "resume is too large")
	case errors.Is(err, resumesvc.ErrUnsupportedType):
		writeBadRequest(w, httperrors.CodeValidation, "resume must be a PDF or Word document")
	case errors.Is(err, resumesvc.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, "invalid resume upload")
	case errors.Is(err, resumesvc.ErrNotFound):
		writeNotFound(w, httperrors.CodeNotFound, "no resume uploaded")
	default:
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "failed to store resume")
	}
}

func mapProfileView(v profilesvc.View) dto.ProfileResponse {
	out := dto.ProfileResponse{
		ID:                 v.User.ID,
		Email:              v.User.Email,
		Name:               v.User.Name,
		Role:               string(v.User.Role),
		Headline:           v.Profile.Headline,
		Bio:                v.Profile.Bio,
		Location:           v.Profile.Location,
		AvatarURL:          v.Profile.AvatarURL,
		HasResume:          v.Profile.ResumeKey != "",
		PreferredRemote:    v.Profile.PreferredRemote,
		PreferredJobTypes:  nonNil(v.Profile.PreferredJobTypes),
		Skills:             nonNil(v.Profile.Skills),
		OnboardingComplete: v.Profile.OnboardingComplete,
	}
	if v.Company != nil {
		c := mapCompany(*v.Company)
		out.Company = &c
	}
	return out
}

func mapCompany(c model.Company) dto.CompanyResponse {
	return dto.CompanyResponse{ID: c.ID, Name: c.Name, Logo: c.Logo}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
