package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	swipesvc "github.com/ivankudzin/jobswipe/internal/services/swipes"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

const quotaUpsellMessage = "You've used all your swipes for this period. Upgrade to Premium for unlimited swipes."

type SwipeHandler struct {
	service *swipesvc.Service
	logger  *zap.Logger
}

func NewSwipeHandler(service *swipesvc.Service, logger *zap.Logger) *SwipeHandler {
	return &SwipeHandler{service: service, logger: nopIfNil(logger)}
}

// Swipe handles POST /swipes.
func (h *SwipeHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	if req.JobID <= 0 || strings.TrimSpace(req.Direction) == "" {
		writeBadRequest(w, httperrors.CodeValidation, "jobId and direction are required")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.JobID, req.Direction)
	if err != nil {
		h.handleSwipeError(w, r, err)
		return
	}

	httperrors.Write(w, http.StatusOK, swipeResponse(result))
}

// CandidateSwipe handles POST /candidates/swipes, the poster side of a match.
func (h *SwipeHandler) CandidateSwipe(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.CandidateSwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	if req.CandidateID <= 0 || req.JobID <= 0 || strings.TrimSpace(req.Direction) == "" {
		writeBadRequest(w, httperrors.CodeValidation, "candidateId, jobId and direction are required")
		return
	}

	result, err := h.service.PosterSwipe(r.Context(), identity.UserID, req.CandidateID, req.JobID, req.Direction)
	if err != nil {
		h.handleSwipeError(w, r, err)
		return
	}

	httperrors.Write(w, http.StatusOK, swipeResponse(result))
}

// Subscription handles GET /subscription.
func (h *SwipeHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	quota, err := h.service.Quota(r.Context(), identity.UserID)
	if err != nil {
		h.handleSwipeError(w, r, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SubscriptionResponse{
		Plan:                string(quota.Plan),
		SwipesRemaining:     swipesRemaining(quota),
		SuperLikesRemaining: quota.SuperLikesRemaining,
		AICreditsRemaining:  quota.AICreditsRemaining,
		Unlimited:           quota.Unlimited,
		PeriodStartedAt:     quota.PeriodStartedAt,
		NextResetAt:         quota.NextResetAt,
	})
}

func (h *SwipeHandler) handleSwipeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, swipesvc.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, "invalid swipe request")
	case errors.Is(err, swipesvc.ErrNotFound):
		writeNotFound(w, httperrors.CodeNotFound, "job not found")
	case errors.Is(err, swipesvc.ErrForbidden):
		writeForbidden(w, httperrors.CodeForbidden, "not allowed to swipe here")
	case errors.Is(err, swipesvc.ErrQuotaExceeded):
		writeForbidden(w, httperrors.CodeQuotaExceeded, quotaUpsellMessage)
	default:
		if tf, ok := swipesvc.IsTooFast(err); ok {
			httperrors.WriteTooFast(w, "too many swipes, slow down", tf.RetryAfter(), time.Now())
			return
		}
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "failed to process swipe")
	}
}

func swipeResponse(result swipesvc.SwipeResult) dto.SwipeResponse {
	return dto.SwipeResponse{
		Success:             true,
		Matched:             result.Matched,
		MatchID:             result.MatchID,
		SwipesRemaining:     swipesRemaining(result.Quota),
		SuperLikesRemaining: result.Quota.SuperLikesRemaining,
		Unlimited:           result.Quota.Unlimited,
	}
}

func swipesRemaining(q swipesvc.QuotaSnapshot) *int {
	if q.Unlimited || q.SwipesRemaining < 0 {
		return nil
	}
	v := q.SwipesRemaining
	return &v
}
