package model

import (
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

type Quota struct {
	UserID              int64      `json:"user_id"`
	Plan                enums.Plan `json:"plan"`
	SwipesRemaining     int        `json:"swipes_remaining"`
	SuperLikesRemaining int        `json:"super_likes_remaining"`
	AICreditsRemaining  int        `json:"ai_credits_remaining"`
	PeriodStartedAt     time.Time  `json:"period_started_at"`
}
