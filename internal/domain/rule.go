package domain

// Rule identifiers in evaluation order.
const (
	RuleSeason         = "season"
	RuleSowingMonth    = "sowing_month"
	RuleSeasonDuration = "season_duration"
	RuleTemperature    = "temperature"
	RuleSoil           = "soil"
	RuleWater          = "water"
	RuleBudget         = "budget"
	RulePreference     = "preference"
	RuleProfit         = "profit"
)

// RuleOrder lists every rule in the order the engine applies them.
var RuleOrder = []string{
	RuleSeason,
	RuleSowingMonth,
	RuleSeasonDuration,
	RuleTemperature,
	RuleSoil,
	RuleWater,
	RuleBudget,
	RulePreference,
	RuleProfit,
}

// RuleResult is the contribution of a single rule to a crop's score.
type RuleResult struct {
	RuleID  string  `json:"rule_id"`
	Outcome string  `json:"outcome"` // ".pass", ".fail", ".review", ".skip"
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
}

// Predefined rule outcomes
const (
	RuleOutcomePass   = ".pass"
	RuleOutcomeFail   = ".fail"   // hard constraint failed, crop becomes unselectable
	RuleOutcomeReview = ".review" // soft penalty, crop stays selectable
	RuleOutcomeSkip   = ".skip"   // rule not applicable to this request
)
