package rules

import (
	"strings"
	"time"

	"github.com/opensource-finance/cropadvisor/internal/calendar"
	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// Request is a farmer request normalized for rule evaluation: categorical
// fields are case-folded and the sowing date is parsed once.
type Request struct {
	LandSize    float64
	SoilType    string
	WaterAvail  string
	Season      string
	Budget      float64
	Temperature *float64

	// SowingDate is the raw value handed to the calendar generator.
	SowingDate string

	sowing    time.Time
	hasSowing bool
	preferred map[string]bool
}

// NewRequest normalizes a recommendation input.
func NewRequest(in *domain.RecommendInput) *Request {
	req := &Request{
		LandSize:    in.LandSize,
		SoilType:    fold(in.SoilType),
		WaterAvail:  fold(in.WaterAvail),
		Season:      fold(in.Season),
		Budget:      in.Budget,
		Temperature: in.Temperature,
		SowingDate:  in.SowingDate,
		preferred:   make(map[string]bool, len(in.PreferredCrops)),
	}

	if in.SowingDate != "" {
		req.sowing, req.hasSowing = calendar.ParseDate(in.SowingDate)
	}

	for _, name := range in.PreferredCrops {
		req.preferred[fold(name)] = true
	}

	return req
}

// Sowing returns the parsed sowing date, if one was supplied and valid.
func (r *Request) Sowing() (time.Time, bool) {
	return r.sowing, r.hasSowing
}

// Prefers reports whether the farmer listed the crop as preferred.
func (r *Request) Prefers(crop *domain.Crop) bool {
	return r.preferred[crop.Key()]
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
