// Package format renders events and leave reports as reply text.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/leave"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/temporal"
)

const (
	NoEvents = "No events found."

	startLayout = "Mon 02 Jan, 03:04PM"
	rangeSep    = "–"
)

// DefaultDisplayHour is the clock time shown for all-day events.
const DefaultDisplayHour = 9

func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// CompressDays collapses sorted days into ordinal ranges, e.g. 1,2,5 → "1st–2nd, 5th".
func CompressDays(days []int) string {
	if len(days) == 0 {
		return ""
	}

	parts := make([]string, 0)
	start, prev := days[0], days[0]

	flush := func() {
		if start == prev {
			parts = append(parts, Ordinal(start))
			return
		}
		parts = append(parts, Ordinal(start)+rangeSep+Ordinal(prev))
	}

	for _, d := range days[1:] {
		if d == prev {
			continue
		}
		if d == prev+1 {
			prev = d
			continue
		}
		flush()
		start, prev = d, d
	}
	flush()

	return strings.Join(parts, ", ")
}

// Days pluralizes a unit count: 1 → "1 day", 1.5 → "1.5 days", 2 → "2 days".
func Days(units float64) string {
	n := strconv.FormatFloat(units, 'f', -1, 64)
	if units == 1 {
		return n + " day"
	}
	return n + " days"
}

// EventStart renders an event start in loc, e.g. "Mon 02 Jun, 09:30AM" or "Mon 02 Jun, 09AM".
// All-day events are shown at the default display hour.
func EventStart(side *calendar.EventTime, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	var t time.Time
	switch {
	case side.IsTimed():
		parsed, err := temporal.ParseDateTime(side.DateTime, loc)
		if err != nil {
			return side.DateTime
		}
		t = parsed.In(loc)
	case side.IsDate():
		d, err := temporal.ParseDate(side.Date)
		if err != nil {
			return side.Date
		}
		t = time.Date(d.Year(), d.Month(), d.Day(), DefaultDisplayHour, 0, 0, 0, loc)
	default:
		return "?"
	}

	return strings.ReplaceAll(t.Format(startLayout), ":00", "")
}

// EventList renders one bullet per event.
func EventList(events []calendar.Event, loc *time.Location) string {
	if len(events) == 0 {
		return NoEvents
	}

	lines := make([]string, 0, len(events))
	for _, e := range events {
		title := e.Summary
		if title == "" {
			title = "(no title)"
		}
		lines = append(lines, fmt.Sprintf("• %s — %s", title, EventStart(e.Start, loc)))
	}
	return strings.Join(lines, "\n")
}

// LeaveReply summarises a leave report month by month.
func LeaveReply(report leave.Report) string {
	if report.TotalUnits == 0 {
		return fmt.Sprintf("No annual leave found for %d.", report.Year)
	}

	lines := []string{fmt.Sprintf("You've booked %s annual leave in %d:", Days(report.TotalUnits), report.Year)}

	for _, key := range report.MonthKeys() {
		month := report.ByMonth[key]

		name := key
		if t, err := time.Parse("2006-01", key); err == nil {
			name = t.Month().String()
		}

		line := fmt.Sprintf("• %s — %s", name, Days(month.Units))
		if days := CompressDays(month.Days); days != "" {
			line += " (" + days + ")"
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
