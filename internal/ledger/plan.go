package ledger

// Plan is the user's subscription tier. Limits scale with it; the context
// window does not.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanMax  Plan = "max"
)

// ContextWindowTokens is the model-level conversation capacity,
// independent of plan.
const ContextWindowTokens int64 = 200_000

// Limits holds the tier-scaled capacity limits.
type Limits struct {
	DailyTokens          int64
	ConversationMessages int64
}

var planLimits = map[Plan]Limits{
	PlanFree: {DailyTokens: 100_000, ConversationMessages: 50},
	PlanPro:  {DailyTokens: 500_000, ConversationMessages: 100},
	PlanMax:  {DailyTokens: 2_000_000, ConversationMessages: 150},
}

// ParsePlan maps a stored plan string to a Plan, defaulting to pro for
// anything unrecognized or unset.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanFree, PlanPro, PlanMax:
		return Plan(s)
	default:
		return PlanPro
	}
}

// LimitsFor returns the capacity limits for a plan.
func LimitsFor(p Plan) Limits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanPro]
}
