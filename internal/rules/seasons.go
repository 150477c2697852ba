package rules

import (
	"time"

	"github.com/opensource-finance/cropadvisor/internal/domain"
)

var allMonths = []time.Month{
	time.January, time.February, time.March, time.April, time.May, time.June,
	time.July, time.August, time.September, time.October, time.November, time.December,
}

// seasonMonths lists the calendar months in which sowing is allowed per season.
var seasonMonths = map[string][]time.Month{
	domain.SeasonKharif:    {time.July, time.August, time.September, time.October},
	domain.SeasonRabi:      {time.October, time.November, time.December, time.January, time.February, time.March},
	domain.SeasonZaid:      {time.March, time.April, time.May, time.June},
	domain.SeasonYearRound: allMonths,
}

// seasonBoundary is the last day of a season relative to the sowing year.
// When the sowing month is at or after RolloverFrom, the season ends in the
// following calendar year.
type seasonBoundary struct {
	Month        time.Month
	Day          int
	RolloverFrom time.Month // 0 means never
}

var seasonEnds = map[string]seasonBoundary{
	domain.SeasonKharif: {Month: time.October, Day: 31},
	domain.SeasonRabi:   {Month: time.March, Day: 31, RolloverFrom: time.October},
	domain.SeasonZaid:   {Month: time.June, Day: 30},
}

// AllowedSowingMonths returns the months a season may be sown in.
// Seasons without a table entry allow every month.
func AllowedSowingMonths(season string) []time.Month {
	if months, ok := seasonMonths[season]; ok {
		return months
	}
	return allMonths
}

// SowingMonthAllowed reports whether month falls in the season's sowing window.
func SowingMonthAllowed(season string, month time.Month) bool {
	for _, m := range AllowedSowingMonths(season) {
		if m == month {
			return true
		}
	}
	return false
}

// SeasonEnd returns the end of the season that a crop sown on sowing belongs to.
// The second result is false for seasons without a fixed end (year-round or unknown).
func SeasonEnd(season string, sowing time.Time) (time.Time, bool) {
	b, ok := seasonEnds[season]
	if !ok {
		return time.Time{}, false
	}

	year := sowing.Year()
	if b.RolloverFrom != 0 && sowing.Month() >= b.RolloverFrom {
		year++
	}
	return time.Date(year, b.Month, b.Day, 0, 0, 0, 0, sowing.Location()), true
}
