package enums

import "strings"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPremium    Plan = "premium"
	PlanPro        Plan = "pro"
	PlanBusiness   Plan = "business"
	PlanEnterprise Plan = "enterprise"
)

func ParsePlan(value string) Plan {
	switch p := Plan(strings.ToLower(strings.TrimSpace(value))); p {
	case PlanPremium, PlanPro, PlanBusiness, PlanEnterprise:
		return p
	default:
		return PlanFree
	}
}

// MeteredSwipes reports whether general swipes are counted against quota.
func (p Plan) MeteredSwipes() bool {
	return p == PlanFree || p == ""
}
