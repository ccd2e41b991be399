package handlers

import (
	"net/http"

	"go.uber.org/zap"

	dashboardsvc "github.com/ivankudzin/jobswipe/internal/services/dashboard"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

type DashboardHandler struct {
	service *dashboardsvc.Service
	logger  *zap.Logger
}

func NewDashboardHandler(service *dashboardsvc.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: nopIfNil(logger)}
}

func (h *DashboardHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "DASHBOARD_SERVICE_UNAVAILABLE", "dashboard service is unavailable")
		return
	}

	d, err := h.service.For(r.Context(), identity.UserID, role)
	if err != nil {
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "failed to load dashboard")
		return
	}

	resp := dto.DashboardResponse{Role: string(d.Role), NextSteps: nonNil(d.NextSteps)}
	if js := d.JobSeeker; js != nil {
		resp.JobSeeker = &dto.JobSeekerDashboard{
			Swipes:         js.Swipes,
			InterestedSent: js.InterestedSent,
			Matches:        js.Matches,
			UnreadMessages: js.UnreadMessages,
			ProfileSkills:  js.ProfileSkills,
			ResumeUploaded: js.ResumeUploaded,
		}
	}
	if rc := d.Recruiter; rc != nil {
		resp.Recruiter = &dto.RecruiterDashboard{
			ActiveJobs:        rc.ActiveJobs,
			TotalViews:        rc.TotalViews,
			CandidateInterest: rc.CandidateInterest,
			PendingReview:     rc.PendingReview,
			Matches:           rc.Matches,
			UnreadMessages:    rc.UnreadMessages,
		}
	}
	httperrors.Write(w, http.StatusOK, resp)
}
