package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

type Notification struct {
	ID          uuid.UUID              `json:"id"`
	RecipientID int64                  `json:"recipient_id"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	ActionURL   string                 `json:"action_url,omitempty"`
	IsRead      bool                   `json:"is_read"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
