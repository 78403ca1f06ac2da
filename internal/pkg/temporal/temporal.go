// Package temporal resolves the start/end pairs of calendar events and computes
// the UTC windows used when listing events.
package temporal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
)

const (
	DateLayout = "2006-01-02"

	// DefaultDuration is the length given to a timed event with no end.
	DefaultDuration = 30 * time.Minute

	wallClockLayout      = "2006-01-02T15:04:05"
	shortWallClockLayout = "2006-01-02T15:04"
)

var ErrUnparsable = errors.New("unparsable date or time")

// Sentinel is the sort key of events with neither a date nor a date-time.
var Sentinel = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

// HasTimeOfDay reports whether s carries a time-of-day component.
func HasTimeOfDay(s string) bool {
	return strings.Contains(s, "T")
}

// ParseDateTime parses an RFC 3339 date-time. A value without an offset is a
// wall-clock time in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	t, _, err := parseDateTime(s, loc)
	return t, err
}

func parseDateTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true, nil
	}

	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range []string{wallClockLayout, shortWallClockLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%w: date-time %q", ErrUnparsable, s)
}

// ParseDate parses a YYYY-MM-DD calendar day; the result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrUnparsable, s)
	}
	return t, nil
}

// ToInstantString renders t in UTC with a literal Z suffix.
func ToInstantString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// MonthBounds returns [first instant of month, first instant of next month) in UTC.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// YearBounds returns [1 Jan year, 1 Jan year+1) in UTC.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// Normalizer fills in missing time zones and ends using the configured default zone.
type Normalizer struct {
	TimeZone string
	Location *time.Location
}

func NewNormalizer(settings config.Settings) Normalizer {
	return Normalizer{TimeZone: settings.TimeZone, Location: settings.Location}
}

// EnsureTimezone attaches the default zone to any timed side lacking one.
func (n Normalizer) EnsureTimezone(e calendar.Event) calendar.Event {
	e = e.Clone()
	for _, side := range []*calendar.EventTime{e.Start, e.End} {
		if side.IsTimed() && side.TimeZone == "" {
			side.TimeZone = n.TimeZone
		}
	}
	return e
}

// FillMissingEnd derives an absent or empty end from the start: 30 minutes
// later for a timed start, the next day for an all-day start. When the start
// cannot be parsed the event is returned unchanged together with the error.
func (n Normalizer) FillMissingEnd(e calendar.Event) (calendar.Event, error) {
	if !e.End.Empty() {
		return e, nil
	}

	switch {
	case e.Start.IsTimed():
		zone := e.Start.TimeZone
		if zone == "" {
			zone = n.TimeZone
		}

		start, zoned, err := parseDateTime(e.Start.DateTime, n.location(zone))
		if err != nil {
			return e, fmt.Errorf("error filling end from start: %w", err)
		}

		end := start.Add(DefaultDuration)
		rendered := end.Format(wallClockLayout)
		if zoned {
			rendered = end.Format(time.RFC3339)
		}

		e = e.Clone()
		e.End = &calendar.EventTime{DateTime: rendered, TimeZone: zone}
		return e, nil

	case e.Start.IsDate():
		day, err := ParseDate(e.Start.Date)
		if err != nil {
			return e, fmt.Errorf("error filling end from start: %w", err)
		}

		e = e.Clone()
		e.End = &calendar.EventTime{Date: day.AddDate(0, 0, 1).Format(DateLayout)}
		return e, nil
	}

	return e, fmt.Errorf("%w: event has no start", ErrUnparsable)
}

// CivilDate returns the calendar day of side as midnight UTC. Date-times are
// converted to the default zone first.
func (n Normalizer) CivilDate(side *calendar.EventTime) (time.Time, error) {
	switch {
	case side.IsTimed():
		t, err := ParseDateTime(side.DateTime, n.location(side.TimeZone))
		if err != nil {
			return time.Time{}, err
		}
		local := t.In(n.location(""))
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
	case side.IsDate():
		return ParseDate(side.Date)
	}
	return time.Time{}, fmt.Errorf("%w: empty event time", ErrUnparsable)
}

// EffectiveStart is the instant an event is ordered by. All-day events start at
// midnight in the default zone; events without a usable start sort last.
func (n Normalizer) EffectiveStart(e calendar.Event) time.Time {
	switch {
	case e.Start.IsTimed():
		if t, err := ParseDateTime(e.Start.DateTime, n.location(e.Start.TimeZone)); err == nil {
			return t
		}
	case e.Start.IsDate():
		if d, err := ParseDate(e.Start.Date); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, n.location(""))
		}
	}
	return Sentinel
}

func (n Normalizer) location(zone string) *time.Location {
	if zone != "" && zone != n.TimeZone {
		if loc, err := time.LoadLocation(zone); err == nil {
			return loc
		}
	}
	if n.Location == nil {
		return time.UTC
	}
	return n.Location
}
