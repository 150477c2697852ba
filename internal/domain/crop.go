package domain

import "strings"

// Crop is one immutable record of the crop catalog.
type Crop struct {
	Name         string     `json:"name" validate:"required"`
	Seasons      []string   `json:"season" validate:"required,min=1,dive,required"`
	SoilTypes    []string   `json:"soil_type" validate:"required,min=1,dive,required"`
	WaterNeed    string     `json:"water_need" validate:"required"`
	TempRange    [2]float64 `json:"temp_range"`
	DurationDays int        `json:"duration_days" validate:"gt=0"`
	YieldPerAcre float64    `json:"yield_per_acre" validate:"gte=0"`
	MSP          float64    `json:"msp" validate:"gte=0"`
	CostPerAcre  float64    `json:"cost_per_acre" validate:"gte=0"`
}

// Agricultural seasons.
const (
	SeasonKharif = "kharif"
	SeasonRabi   = "rabi"
	SeasonZaid   = "zaid"

	// SeasonYearRound is the request value asking for crops grown in every season.
	SeasonYearRound = "365 days"
)

// Water need / availability levels.
const (
	WaterLow    = "low"
	WaterMedium = "medium"
	WaterHigh   = "high"
)

// GrowsIn reports whether the crop lists the season (case-insensitive).
func (c *Crop) GrowsIn(season string) bool {
	for _, s := range c.Seasons {
		if strings.EqualFold(s, season) {
			return true
		}
	}
	return false
}

// IsYearRound reports whether the crop grows in kharif, rabi and zaid.
func (c *Crop) IsYearRound() bool {
	return c.GrowsIn(SeasonKharif) && c.GrowsIn(SeasonRabi) && c.GrowsIn(SeasonZaid)
}

// SuitsSoil reports whether the soil category is compatible (case-insensitive).
func (c *Crop) SuitsSoil(soil string) bool {
	for _, s := range c.SoilTypes {
		if strings.EqualFold(s, soil) {
			return true
		}
	}
	return false
}

// Key returns the case-folded crop name used for lookups and preference matching.
func (c *Crop) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}
