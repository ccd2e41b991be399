package dto

import "time"

type SwipeRequest struct {
	JobID     int64  `json:"jobId"`
	Direction string `json:"direction"`
}

type CandidateSwipeRequest struct {
	CandidateID int64  `json:"candidateId"`
	JobID       int64  `json:"jobId"`
	Direction   string `json:"direction"`
}

// SwipeResponse reports swipesRemaining as null on unmetered plans.
type SwipeResponse struct {
	Success             bool  `json:"success"`
	Matched             bool  `json:"matched"`
	MatchID             int64 `json:"matchId,omitempty"`
	SwipesRemaining     *int  `json:"swipesRemaining"`
	SuperLikesRemaining int   `json:"superLikesRemaining"`
	Unlimited           bool  `json:"unlimited"`
}

type SubscriptionResponse struct {
	Plan                string    `json:"plan"`
	SwipesRemaining     *int      `json:"swipesRemaining"`
	SuperLikesRemaining int       `json:"superLikesRemaining"`
	AICreditsRemaining  int       `json:"aiCreditsRemaining"`
	Unlimited           bool      `json:"unlimited"`
	PeriodStartedAt     time.Time `json:"periodStartedAt"`
	NextResetAt         time.Time `json:"nextResetAt"`
}
