package model

import (
	"encoding/json"
	"time"
)

type ActivityEvent struct {
	UserID     int64           `json:"user_id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
