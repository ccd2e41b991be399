package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
	matchsvc "github.com/ivankudzin/jobswipe/internal/services/matches"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/jobswipe/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchsvc.Service
	logger  *zap.Logger
}

func NewMatchesHandler(service *matchsvc.Service, logger *zap.Logger) *MatchesHandler {
	return &MatchesHandler{service: service, logger: nopIfNil(logger)}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		h.handleMatchesError(w, r, err)
		return
	}

	resp := dto.MatchesResponse{Matches: make([]dto.MatchResponse, 0, len(items))}
	for _, item := range items {
		resp.Matches = append(resp.Matches, mapMatchSummary(item))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *MatchesHandler) Messages(w http.ResponseWriter, r *http.Request) {
	identity, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}
	matchID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, httperrors.CodeValidation, "invalid match id")
		return
	}

	conv, err := h.service.Messages(r.Context(), identity.UserID, role, matchID)
	if err != nil {
		h.handleMatchesError(w, r, err)
		return
	}

	resp := dto.ConversationResponse{
		Match:       mapMatchSummary(conv.Match),
		Messages:    make([]dto.MessageResponse, 0, len(conv.Messages)),
		Suggestions: conv.Suggestions,
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	for _, m := range conv.Messages {
		resp.Messages = append(resp.Messages, mapMessage(m))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *MatchesHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, _, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}
	matchID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, httperrors.CodeValidation, "invalid match id")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, httperrors.CodeValidation, "invalid request body")
		return
	}

	msg, err := h.service.Send(r.Context(), identity.UserID, matchID, req.Content, req.MessageType)
	if err != nil {
		h.handleMatchesError(w, r, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.SendMessageResponse{Message: mapMessage(msg)})
}

func (h *MatchesHandler) handleMatchesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, matchsvc.ErrValidation):
		writeBadRequest(w, httperrors.CodeValidation, "message content is required")
	case errors.Is(err, matchsvc.ErrForbidden):
		writeForbidden(w, httperrors.CodeForbidden, "you are not part of this match")
	case errors.Is(err, matchsvc.ErrNotFound):
		writeNotFound(w, httperrors.CodeNotFound, "match not found")
	default:
		logInternal(h.logger, r, err)
		writeInternal(w, httperrors.CodeInternal, "internal server error")
	}
}

func mapMatchSummary(s matchsvc.Summary) dto.MatchResponse {
	out := dto.MatchResponse{
		ID:        s.ID,
		JobID:     s.JobID,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		User: dto.CounterpartResponse{
			ID:       s.Counterpart.ID,
			Name:     s.Counterpart.Name,
			Role:     s.Counterpart.Role,
			Headline: s.Counterpart.Headline,
			Avatar:   s.Counterpart.Avatar,
		},
		JobTitle:    s.JobTitle,
		CompanyName: s.CompanyName,
		UnreadCount: s.UnreadCount,
	}
	if s.LastMessage != nil {
		out.LastMessage = &dto.LastMessageResponse{
			Content:   s.LastMessage.Content,
			IsFromMe:  s.LastMessage.IsFromMe,
			CreatedAt: s.LastMessage.CreatedAt,
			IsRead:    s.LastMessage.IsRead,
		}
	}
	return out
}

func mapMessage(m model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:          m.ID,
		MatchID:     m.MatchID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		MessageType: string(m.MessageType),
		IsRead:      m.IsRead,
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
	}
}
