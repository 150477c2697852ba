package rules

import (
	"math"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// CalculateProfit returns revenue minus cost for the given acreage.
func CalculateProfit(yieldPerAcre, msp, costPerAcre, acres float64) float64 {
	revenue := yieldPerAcre * acres * msp
	cost := costPerAcre * acres
	return revenue - cost
}

// ProfitPerAcre is the land-size independent profit of a crop.
func ProfitPerAcre(crop *domain.Crop) float64 {
	return CalculateProfit(crop.YieldPerAcre, crop.MSP, crop.CostPerAcre, 1.0)
}

// ProfitScore maps per-acre profit onto the score scale. It is capped above
// and unbounded below, so loss-making crops are pushed down.
func ProfitScore(profitPerAcre float64, cfg domain.ScoringConfig) float64 {
	return math.Min(cfg.ProfitScoreCap, profitPerAcre/cfg.ProfitNormalizer*cfg.ProfitScoreCap)
}
