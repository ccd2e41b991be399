package model

import (
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

// SwipeDecision is one party's decision about the other party for a job.
// Candidate rows: Sender is the candidate, Receiver the job poster.
// Poster rows: Sender is the poster, Receiver the candidate.
type SwipeDecision struct {
	ID         int64           `json:"id"`
	SenderID   int64           `json:"sender_id"`
	ReceiverID int64           `json:"receiver_id"`
	JobID      int64           `json:"job_id"`
	Side       enums.SwipeSide `json:"side"`
	Direction  enums.Direction `json:"direction"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
