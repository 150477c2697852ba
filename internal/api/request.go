package api

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// Number is a JSON number that also accepts numeric strings. Null and the
// empty string leave it unset.
type Number struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = Number{}

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not a valid number", raw)
	}

	n.Value = v
	n.Set = true
	return nil
}

// Or returns the value, or def when unset.
func (n Number) Or(def float64) float64 {
	if !n.Set {
		return def
	}
	return n.Value
}

// RecommendRequest is the request body for POST /recommend.
type RecommendRequest struct {
	LandSize       Number   `json:"land_size"`
	SoilType       string   `json:"soil_type"`
	WaterAvail     string   `json:"water_avail"`
	Season         string   `json:"season"`
	Budget         Number   `json:"budget"`
	PreferredCrops []string `json:"preferred_crops"`
	SowingDate     string   `json:"sowing_date"`
	Temperature    Number   `json:"temperature"`
}

// Input converts the request into engine input, applying defaults.
func (r *RecommendRequest) Input() *domain.RecommendInput {
	in := &domain.RecommendInput{
		LandSize:       r.LandSize.Or(advisor.DefaultLandSize),
		SoilType:       r.SoilType,
		WaterAvail:     r.WaterAvail,
		Season:         r.Season,
		Budget:         r.Budget.Or(advisor.DefaultBudget),
		PreferredCrops: r.PreferredCrops,
		SowingDate:     r.SowingDate,
	}
	if r.Temperature.Set {
		t := r.Temperature.Value
		in.Temperature = &t
	}
	return in
}
