package rules

import (
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
)

// Built-in allowances used when configuration leaves a limit unset.
const (
	FreeSwipesPerPeriod     = 50
	FreeSuperLikesPerPeriod = 5
	PaidSuperLikesPerPeriod = 25
	// SignupAICredits is granted once at signup and never refilled.
	SignupAICredits = 10
)

// Unlimited marks an allowance that is never decremented.
const Unlimited = -1

// Allowance is what a plan gets at each refill.
type Allowance struct {
	Swipes     int
	SuperLikes int
}

// Limits holds the configured per-period allowances. Zero fields fall back
// to the built-in values.
type Limits struct {
	FreeSwipes     int
	FreeSuperLikes int
	PaidSuperLikes int
}

// For returns the allowance of plan. Paid plans have unlimited general
// swipes.
func (l Limits) For(plan enums.Plan) Allowance {
	if plan.MeteredSwipes() {
		return Allowance{
			Swipes:     orDefault(l.FreeSwipes, FreeSwipesPerPeriod),
			SuperLikes: orDefault(l.FreeSuperLikes, FreeSuperLikesPerPeriod),
		}
	}
	return Allowance{
		Swipes:     Unlimited,
		SuperLikes: orDefault(l.PaidSuperLikes, PaidSuperLikesPerPeriod),
	}
}

// NextResetAt is the next midnight in loc after now, in UTC. A nil loc means
// UTC.
func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc).UTC()
}

// StarterAICredits is the AI credit grant for a new account.
func StarterAICredits(configured int) int {
	return orDefault(configured, SignupAICredits)
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
