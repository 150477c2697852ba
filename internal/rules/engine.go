// Package rules scores crops against a farmer's constraints.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/cropadvisor/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// waterLevels orders water needs and availabilities.
var waterLevels = map[string]int{
	domain.WaterLow:    1,
	domain.WaterMedium: 2,
	domain.WaterHigh:   3,
}

// ruleFunc computes one rule's contribution for a crop.
type ruleFunc func(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult

// Engine applies the hard constraints and soft adjustments to catalog crops.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	cfg       domain.ScoringConfig
	inclusion *InclusionPolicy
	rules     []ruleFunc
}

// NewEngine creates a rule engine with the given scoring tunables.
func NewEngine(cfg domain.ScoringConfig) (*Engine, error) {
	if cfg.ProfitNormalizer == 0 {
		return nil, fmt.Errorf("profit normalizer must be non-zero")
	}

	inclusion, err := NewInclusionPolicy(cfg.InclusionExpression, cfg.InclusionThreshold)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		inclusion: inclusion,
		rules: []ruleFunc{
			seasonRule,
			sowingMonthRule,
			seasonDurationRule,
			temperatureRule,
			soilRule,
			waterRule,
			budgetRule,
			preferenceRule,
			profitRule,
		},
	}, nil
}

// Config returns the scoring tunables in use.
func (e *Engine) Config() domain.ScoringConfig {
	return e.cfg
}

// Evaluate runs every rule against the crop. Failed hard constraints do not
// stop evaluation: all rules contribute and every failure reason is kept.
func (e *Engine) Evaluate(req *Request, crop *domain.Crop) *domain.Evaluation {
	eval := &domain.Evaluation{
		CropName:            crop.Name,
		Selectable:          true,
		UnselectableReasons: []string{},
		Preferred:           req.Prefers(crop),
		ProfitPerAcre:       ProfitPerAcre(crop),
		Contributions:       make([]domain.RuleResult, 0, len(e.rules)),
	}

	for _, rule := range e.rules {
		result := rule(e, req, crop)
		eval.Contributions = append(eval.Contributions, result)
		eval.TotalScore += result.Score

		if result.Outcome == domain.RuleOutcomeFail {
			eval.Selectable = false
			eval.UnselectableReasons = append(eval.UnselectableReasons, result.Reason)
		}
	}

	return eval
}

// Include reports whether an evaluated crop belongs in the candidate list.
func (e *Engine) Include(eval *domain.Evaluation) (bool, error) {
	return e.inclusion.Includes(eval)
}

func seasonRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	yearRound := crop.IsYearRound()
	grows := strings.Join(crop.Seasons, ", ")

	switch {
	case req.Season == domain.SeasonYearRound && !yearRound:
		return fail(e, domain.RuleSeason, fmt.Sprintf("Requires 365-day cycle (Only grows in %s)", grows))
	case req.Season != domain.SeasonYearRound && !crop.GrowsIn(req.Season) && !yearRound:
		return fail(e, domain.RuleSeason, fmt.Sprintf("Out of Season (Grows in %s)", grows))
	default:
		return pass(domain.RuleSeason, e.cfg.SeasonBonus)
	}
}

func sowingMonthRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	sowing, ok := req.Sowing()
	if !ok {
		return skip(domain.RuleSowingMonth)
	}

	if !SowingMonthAllowed(req.Season, sowing.Month()) {
		return fail(e, domain.RuleSowingMonth, fmt.Sprintf(
			"Sowing Month (%s) does not match %s season constraints", sowing.Month(), title(req.Season)))
	}
	return pass(domain.RuleSowingMonth, e.cfg.SowingMonthBonus)
}

func seasonDurationRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	sowing, ok := req.Sowing()
	if !ok || req.Season == domain.SeasonYearRound {
		return skip(domain.RuleSeasonDuration)
	}

	end, bounded := SeasonEnd(req.Season, sowing)
	if !bounded {
		return skip(domain.RuleSeasonDuration)
	}

	harvest := sowing.AddDate(0, 0, crop.DurationDays)
	if harvest.After(end) {
		return fail(e, domain.RuleSeasonDuration, fmt.Sprintf(
			"Crop duration (%d days) exceeds the end of %s season", crop.DurationDays, title(req.Season)))
	}
	return pass(domain.RuleSeasonDuration, 0)
}

func temperatureRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	if req.Temperature == nil {
		return skip(domain.RuleTemperature)
	}

	minT, maxT := crop.TempRange[0], crop.TempRange[1]
	t := *req.Temperature
	if t < minT || t > maxT {
		return fail(e, domain.RuleTemperature, fmt.Sprintf(
			"Temperature Mismatch (Needs %s-%s°C)", formatNumber(minT), formatNumber(maxT)))
	}
	return pass(domain.RuleTemperature, e.cfg.TemperatureBonus)
}

func soilRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	if !crop.SuitsSoil(req.SoilType) {
		return fail(e, domain.RuleSoil, fmt.Sprintf(
			"Incompatible Soil (Needs %s)", title(strings.Join(crop.SoilTypes, ", "))))
	}
	return pass(domain.RuleSoil, e.cfg.SoilBonus)
}

func waterRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	need := waterLevel(crop.WaterNeed)
	avail := waterLevel(req.WaterAvail)

	switch {
	case need > avail:
		return fail(e, domain.RuleWater, fmt.Sprintf(
			"Insufficient Water (Needs %s availability)", title(crop.WaterNeed)))
	case need == avail:
		return pass(domain.RuleWater, e.cfg.WaterExactBonus)
	default:
		return pass(domain.RuleWater, e.cfg.WaterSurplusBonus)
	}
}

func budgetRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	cost := crop.CostPerAcre * req.LandSize
	if cost > req.Budget {
		return domain.RuleResult{
			RuleID:  domain.RuleBudget,
			Outcome: domain.RuleOutcomeReview,
			Score:   e.cfg.BudgetPenalty,
			Reason:  fmt.Sprintf("Cost %s exceeds budget %s", formatNumber(cost), formatNumber(req.Budget)),
		}
	}
	return pass(domain.RuleBudget, 0)
}

func preferenceRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	if !req.Prefers(crop) {
		return skip(domain.RulePreference)
	}
	return pass(domain.RulePreference, e.cfg.PreferenceBoost)
}

func profitRule(e *Engine, req *Request, crop *domain.Crop) domain.RuleResult {
	return pass(domain.RuleProfit, ProfitScore(ProfitPerAcre(crop), e.cfg))
}

func pass(ruleID string, score float64) domain.RuleResult {
	return domain.RuleResult{RuleID: ruleID, Outcome: domain.RuleOutcomePass, Score: score}
}

func fail(e *Engine, ruleID, reason string) domain.RuleResult {
	return domain.RuleResult{
		RuleID:  ruleID,
		Outcome: domain.RuleOutcomeFail,
		Score:   e.cfg.HardConstraintPenalty,
		Reason:  reason,
	}
}

func skip(ruleID string) domain.RuleResult {
	return domain.RuleResult{RuleID: ruleID, Outcome: domain.RuleOutcomeSkip}
}

// waterLevel maps a water need or availability to its rank; unknown is medium.
func waterLevel(s string) int {
	if level, ok := waterLevels[fold(s)]; ok {
		return level
	}
	return waterLevels[domain.WaterMedium]
}

func title(s string) string {
	return cases.Title(language.Und).String(s)
}

// formatNumber prints whole numbers without a fractional part.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
