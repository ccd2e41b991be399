package model

import (
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

type Message struct {
	ID          int64             `json:"id"`
	MatchID     int64             `json:"match_id"`
	SenderID    int64             `json:"sender_id"`
	RecipientID int64             `json:"recipient_id"`
	Content     string            `json:"content"`
	MessageType enums.MessageType `json:"message_type"`
	IsRead      bool              `json:"is_read"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
