package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
	notificationsvc "github.com/ivankudzin/jobswipe/internal/services/notifications"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

// StreamServer upgrades the request and pushes the user's notifications
// until the connection closes.
type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64)
}

type NotificationsHandler struct {
	service *notificationsvc.Service
	stream  StreamServer
	logger  *zap.Logger
}

func NewNotificationsHandler(service *notificationsvc.Service, stream StreamServer, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{service: service, stream: stream, logger: nopIfNil(logger)}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATIONS_SERVICE_UNAVAILABLE", "notifications service is unavailable")
		return
	}

	res, err := h.service.List(r.Context(), identity.UserID, queryInt(r, "limit", 0), queryBool(r, "unreadOnly"))
	if err != nil {
		h.handleNotificationsError(w, r, err)
		return
	}

	resp := dto.NotificationsResponse{
		Notifications: make([]dto.NotificationResponse, 0, len(res.Items)),
		UnreadCount:   res.UnreadCount,
	}
	for _, n := range res.Items {
		resp.Notifications = append(resp.Notifications, mapNotification(n))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

// MarkRead handles PUT /notifications.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATIONS_SERVICE_UNAVAILABLE", "notifications service is unavailable")
		return
	}

	var req dto.MarkNotificationsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	sel, ok := parseSelection(req.NotificationIDs, req.MarkAll)
	if !ok {
		writeBadRequest(w, httperrors.CodeValidation, "notificationIds must be valid ids")
		return
	}

	affected, err := h.service.MarkRead(r.Context(), identity.UserID, sel)
	if err != nil {
		h.handleNotificationsError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.AffectedResponse{Success: true, Affected: affected})
}

// Delete handles DELETE /notifications.
func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATIONS_SERVICE_UNAVAILABLE", "notifications service is unavailable")
		return
	}

	var req dto.DeleteNotificationsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}
	sel, ok := parseSelection(req.NotificationIDs, req.DeleteAll)
	if !ok {
		writeBadRequest(w, httperrors.CodeValidation, "notificationIds must be valid ids")
		return
	}

	affected, err := h.service.Delete(r.Context(), identity.UserID, sel)
	if err != nil {
		h.handleNotificationsError(w, r, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.AffectedResponse{Success: true, Affected: affected})
}

// Stream handles GET /notifications/stream.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.stream == nil {
		writeInternal(w, "STREAM_UNAVAILABLE", "notification stream is unavailable")
		return
	}
	h.stream.ServeWS(w, r, identity.UserID)
}

func parseSelection(raw []string, all bool) (notificationsvc.Selection, bool) {
	if all {
		return notificationsvc.Selection{All: true}, true
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return notificationsvc.Selection{}, false
		}
		ids = append(ids, id)
	}
	return notificationsvc.Selection{IDs: ids}, true
}

func (h *NotificationsHandler) handleNotificationsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notificationsvc.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, "notificationIds or an all flag is required")
	default:
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "internal server error")
	}
}

func mapNotification(n model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		ActionURL: n.ActionURL,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
