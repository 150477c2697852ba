// Package calendar builds the irrigation and fertilization schedule for a crop.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

// DateLayout is the wire format of sowing and event dates.
const DateLayout = "2006-01-02"

// First irrigation happens this many days after sowing.
const irrigationStartDay = 5

// irrigationIntervals maps water need to days between irrigations.
var irrigationIntervals = map[string]int{
	domain.WaterHigh:   10,
	domain.WaterMedium: 15,
	domain.WaterLow:    25,
}

// Fertilization day offsets. The late dose only applies to long-season crops.
var (
	baseFertilizationDays = []int{15, 45}
	lateFertilizationDay  = 75
	longSeasonDays        = 120
)

// Generator produces crop calendars. Now supplies the sowing date when the
// request does not carry a usable one.
type Generator struct {
	Now func() time.Time
}

// NewGenerator creates a generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{Now: time.Now}
}

// Generate returns the crop's events sorted by date. It never fails: a
// missing or malformed sowing date falls back to today.
func (g *Generator) Generate(crop *domain.Crop, sowingDate string) []domain.CalendarEvent {
	start := g.sowingDate(sowingDate)
	duration := crop.DurationDays

	var events []domain.CalendarEvent

	interval := IrrigationInterval(crop.WaterNeed)
	for day := irrigationStartDay; day < duration; day += interval {
		events = append(events, newEvent(crop.Name, domain.EventIrrigation, start, day))
	}

	for _, day := range FertilizationDays(duration) {
		events = append(events, newEvent(crop.Name, domain.EventFertilization, start, day))
	}

	// Irrigation entries were appended first, so a stable sort keeps them
	// ahead of fertilization on the same date.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date < events[j].Date
	})

	return events
}

// IrrigationInterval returns the days between irrigations for a water need.
// Unknown needs are treated as medium.
func IrrigationInterval(waterNeed string) int {
	if interval, ok := irrigationIntervals[strings.ToLower(strings.TrimSpace(waterNeed))]; ok {
		return interval
	}
	return irrigationIntervals[domain.WaterMedium]
}

// FertilizationDays returns the fertilization offsets that fall inside the
// growth cycle.
func FertilizationDays(durationDays int) []int {
	candidates := append([]int(nil), baseFertilizationDays...)
	if durationDays > longSeasonDays {
		candidates = append(candidates, lateFertilizationDay)
	}

	days := make([]int, 0, len(candidates))
	for _, day := range candidates {
		if day < durationDays {
			days = append(days, day)
		}
	}
	return days
}

// parseLayout accepts zero-padded and unpadded month and day.
const parseLayout = "2006-1-2"

// ParseDate parses a YYYY-MM-DD date. Month and day may omit the leading zero.
func ParseDate(value string) (time.Time, bool) {
	t, err := time.Parse(parseLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (g *Generator) sowingDate(value string) time.Time {
	if t, ok := ParseDate(value); ok {
		return t
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	n := now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func newEvent(cropName, eventType string, start time.Time, day int) domain.CalendarEvent {
	title := "Irrigation"
	if eventType == domain.EventFertilization {
		title = "Fertilization"
	}

	return domain.CalendarEvent{
		Date:  start.AddDate(0, 0, day).Format(DateLayout),
		Title: fmt.Sprintf("%s for %s", title, cropName),
		Type:  eventType,
		Crop:  cropName,
	}
}
