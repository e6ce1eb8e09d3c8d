package entitlements

import "strings"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// DocumentQuota returns how many knowledge documents a plan may hold.
func DocumentQuota(plan Plan) int64 {
	switch plan {
	case PlanEnterprise:
		return 10000
	case PlanPro:
		return 1000
	default:
		return 50
	}
}

// DailyQueryQuota returns how many LLM-backed queries a plan may run per day.
func DailyQueryQuota(plan Plan) int64 {
	switch plan {
	case PlanEnterprise:
		return 5000
	case PlanPro:
		return 500
	default:
		return 25
	}
}

// NormalizePlan maps arbitrary input to a known plan, defaulting to free.
func NormalizePlan(raw string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanPro:
		return PlanPro
	case PlanEnterprise:
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// PlanRank orders plans so reconciliation can pick the best entitling one.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanEnterprise:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}
