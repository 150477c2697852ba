package domain

// RecommendInput is the normalized farmer request handed to the engine.
type RecommendInput struct {
	LandSize       float64 `validate:"gt=0"`
	SoilType       string
	WaterAvail     string
	Season         string
	Budget         float64 `validate:"gte=0"`
	PreferredCrops []string
	SowingDate     string   // YYYY-MM-DD; empty or malformed means "not supplied"
	Temperature    *float64 // nil means "not supplied"
}

// Evaluation is the per-request result of running every rule against one crop.
// It never mutates the catalog record it was computed from.
type Evaluation struct {
	CropName            string       `json:"-"`
	Selectable          bool         `json:"selectable"`
	UnselectableReasons []string     `json:"unselectable_reasons"`
	TotalScore          float64      `json:"total_score"`
	ProfitPerAcre       float64      `json:"profit_per_acre"`
	Preferred           bool         `json:"preferred"`
	Contributions       []RuleResult `json:"contributions"`
}

// CalendarEvent is a single irrigation or fertilization task.
type CalendarEvent struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Title string `json:"title"`
	Type  string `json:"type"`
	Crop  string `json:"crop"`
}

// Calendar event types.
const (
	EventIrrigation    = "irrigation"
	EventFertilization = "fertilization"
)

// Recommendation is one ranked candidate: the catalog record plus its evaluation.
type Recommendation struct {
	Crop
	Evaluation
	ProfitForLand float64         `json:"profit_for_land"`
	Calendar      []CalendarEvent `json:"calendar"`
}

// RecommendResponse is the API payload for a recommendation run.
type RecommendResponse struct {
	Success bool              `json:"success"`
	ID      string            `json:"id,omitempty"`
	Crops   []*Recommendation `json:"crops"`
	// LandSize echoes the land size used for the run.
	LandSize float64 `json:"land_size"`
}
