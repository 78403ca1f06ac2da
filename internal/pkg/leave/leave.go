// Package leave totals annual leave booked in the calendar.
package leave

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/temporal"
)

const monthKeyLayout = "2006-01"

var halfDay = regexp.MustCompile(`(?i)\bhalf(?:-|\s*)day\b|½|\b0\.5\b`)

// Fetcher lists events across all of the user's calendars.
type Fetcher interface {
	FetchAcrossCalendars(ctx context.Context, timeMin, timeMax string, maxResults int) ([]calendar.Event, error)
}

// Month is one bucket of a report. Days holds the sorted, distinct days of the month.
type Month struct {
	Units float64 `json:"units"`
	Days  []int   `json:"days"`
}

type Report struct {
	Year       int               `json:"year"`
	TotalUnits float64           `json:"total_days"`
	ByMonth    map[string]*Month `json:"by_month"`
}

// MonthKeys returns the bucket keys in chronological order.
func (r Report) MonthKeys() []string {
	keys := make([]string, 0, len(r.ByMonth))
	for k := range r.ByMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Aggregator struct {
	Log      *logrus.Entry
	Fetcher  Fetcher
	Settings config.Settings
}

// IsLeaveEvent reports whether the summary or description mentions any leave term.
func IsLeaveEvent(e calendar.Event, terms []string) bool {
	text := strings.ToLower(e.Summary + " " + e.Description)
	for _, term := range terms {
		if term != "" && strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// UnitsForEvent is 0.5 for half days, the span length for all-day events
// (at least one) and 1 for timed events.
func UnitsForEvent(e calendar.Event) float64 {
	if isHalfDay(e) {
		return 0.5
	}

	if e.Start.IsDate() && e.End.IsDate() {
		start, err := temporal.ParseDate(e.Start.Date)
		if err != nil {
			return 1
		}
		end, err := temporal.ParseDate(e.End.Date)
		if err != nil {
			return 1
		}

		days := int(end.Sub(start).Hours() / 24)
		if days <= 0 {
			return 1
		}
		return float64(days)
	}

	return 1
}

func isHalfDay(e calendar.Event) bool {
	return halfDay.MatchString(e.Summary + " " + e.Description)
}

// BuildReport fetches the whole year across calendars and tallies the leave in it.
func (a *Aggregator) BuildReport(ctx context.Context, year int) (Report, error) {
	yearStart, yearEnd := temporal.YearBounds(year)

	events, err := a.Fetcher.FetchAcrossCalendars(ctx,
		temporal.ToInstantString(yearStart),
		temporal.ToInstantString(yearEnd),
		a.Settings.MaxResults,
	)
	if err != nil {
		return Report{}, fmt.Errorf("error fetching events for %d: %w", year, err)
	}

	return a.Tally(events, year), nil
}

// Tally sums leave units per local calendar day. An event's units are spread
// evenly over the days it covers and only days inside year are counted, so a
// span crossing the year boundary contributes less than its full UnitsForEvent:
// an all-day leave from 30 December to 3 January adds 2 units to that year, not 4.
func (a *Aggregator) Tally(events []calendar.Event, year int) Report {
	report := Report{Year: year, ByMonth: make(map[string]*Month)}
	normalizer := temporal.NewNormalizer(a.Settings)

	for _, e := range events {
		if !IsLeaveEvent(e, a.Settings.LeaveTerms) {
			continue
		}

		days, err := a.coveredDays(normalizer, e)
		if err != nil {
			a.logger().WithError(err).WithField("summary", e.Summary).Warn("skipping leave event without a usable start")
			continue
		}

		perDay := UnitsForEvent(e) / float64(len(days))

		for _, day := range days {
			if day.Year() != year {
				continue
			}

			key := day.Format(monthKeyLayout)
			month, ok := report.ByMonth[key]
			if !ok {
				month = &Month{Days: make([]int, 0)}
				report.ByMonth[key] = month
			}

			month.Units += perDay
			month.Days = addDay(month.Days, day.Day())
			report.TotalUnits += perDay
		}
	}

	return report
}

// coveredDays lists the local days an event counts against: every day of a
// full all-day span, otherwise just the start day.
func (a *Aggregator) coveredDays(normalizer temporal.Normalizer, e calendar.Event) ([]time.Time, error) {
	start, err := normalizer.CivilDate(e.Start)
	if err != nil {
		return nil, err
	}

	units := UnitsForEvent(e)
	if isHalfDay(e) || !e.Start.IsDate() || !e.End.IsDate() || units <= 1 {
		return []time.Time{start}, nil
	}

	days := make([]time.Time, 0, int(units))
	for i := 0; i < int(units); i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days, nil
}

func addDay(days []int, day int) []int {
	i := sort.SearchInts(days, day)
	if i < len(days) && days[i] == day {
		return days
	}
	days = append(days, 0)
	copy(days[i+1:], days[i:])
	days[i] = day
	return days
}

func (a *Aggregator) logger() *logrus.Entry {
	if a.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return a.Log
}
