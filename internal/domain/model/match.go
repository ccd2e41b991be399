package model

import "time"

type Match struct {
	ID            int64      `json:"id"`
	UserAID       int64      `json:"user_a_id"`
	UserBID       int64      `json:"user_b_id"`
	JobID         int64      `json:"job_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Participant reports whether userID is one of the two sides.
func (m Match) Participant(userID int64) bool {
	return userID > 0 && (m.UserAID == userID || m.UserBID == userID)
}

// Counterpart returns the other side of the match for userID.
func (m Match) Counterpart(userID int64) int64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// OrderedPair returns the two ids as stored: smaller first.
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
