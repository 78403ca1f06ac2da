// Package retrieval pages events out of the calendar store over a time window,
// de-duplicates them and returns them in start order.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/temporal"
)

const readerRole = "reader"

// ErrPaginationLoop is returned when the store hands back a page token it already gave.
var ErrPaginationLoop = errors.New("pagination did not terminate")

type Coordinator struct {
	Log      *logrus.Entry
	Store    calendar.Store
	Settings config.Settings
	Now      func() time.Time
}

// FetchWindow lists the default calendar over [now-daysBack, now+daysForward].
func (c *Coordinator) FetchWindow(ctx context.Context, daysBack, daysForward, maxResults int) ([]calendar.Event, error) {
	now := c.now()
	timeMin := temporal.ToInstantString(now.AddDate(0, 0, -daysBack))
	timeMax := temporal.ToInstantString(now.AddDate(0, 0, daysForward))

	return c.FetchBetween(ctx, timeMin, timeMax, maxResults)
}

// FetchBetween lists the default calendar over an explicit instant window.
func (c *Coordinator) FetchBetween(ctx context.Context, timeMin, timeMax string, maxResults int) ([]calendar.Event, error) {
	items, err := c.fetchCalendar(ctx, c.Settings.CalendarID, timeMin, timeMax, maxResults)
	if err != nil {
		return nil, err
	}

	return c.dedupeAndSort(items), nil
}

// FetchAcrossCalendars lists every readable calendar except holiday and
// birthday ones, tagging each event with its calendar.
func (c *Coordinator) FetchAcrossCalendars(ctx context.Context, timeMin, timeMax string, maxResults int) ([]calendar.Event, error) {
	calendars, err := c.listCalendars(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]calendar.Event, 0)

	for _, cal := range calendars {
		if c.skipCalendar(cal) {
			c.logger().WithField("calendar", cal.Summary).Debug("skipping calendar")
			continue
		}

		events, err := c.fetchCalendar(ctx, cal.ID, timeMin, timeMax, maxResults)
		if err != nil {
			return nil, err
		}

		for _, e := range events {
			e.CalendarID = cal.ID
			e.CalendarSummary = cal.Summary
			items = append(items, e)
		}
	}

	return c.dedupeAndSort(items), nil
}

func (c *Coordinator) fetchCalendar(ctx context.Context, calendarID, timeMin, timeMax string, maxResults int) ([]calendar.Event, error) {
	if maxResults <= 0 {
		maxResults = c.Settings.MaxResults
	}
	if maxResults <= 0 {
		maxResults = config.DefaultMaxResults
	}

	pageSize := int64(maxResults)
	if limit := c.pageSize(); pageSize > limit {
		pageSize = limit
	}

	items := make([]calendar.Event, 0)
	seenTokens := make(map[string]struct{})
	pageToken := ""

	for {
		page, err := c.Store.ListEvents(ctx, calendar.ListQuery{
			CalendarID: calendarID,
			TimeMin:    timeMin,
			TimeMax:    timeMax,
			PageToken:  pageToken,
			MaxResults: pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("error listing events for calendar %s: %w", calendarID, err)
		}

		items = append(items, page.Items...)

		if page.NextPageToken == "" || len(items) >= maxResults {
			return items, nil
		}

		if _, seen := seenTokens[page.NextPageToken]; seen {
			return nil, fmt.Errorf("%w: calendar %s repeated page token", ErrPaginationLoop, calendarID)
		}
		seenTokens[page.NextPageToken] = struct{}{}
		pageToken = page.NextPageToken
	}
}

func (c *Coordinator) listCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	calendars := make([]calendar.Calendar, 0)
	seenTokens := make(map[string]struct{})
	pageToken := ""

	for {
		page, err := c.Store.ListCalendars(ctx, readerRole, pageToken)
		if err != nil {
			return nil, fmt.Errorf("error listing calendars: %w", err)
		}

		calendars = append(calendars, page.Items...)

		if page.NextPageToken == "" {
			return calendars, nil
		}

		if _, seen := seenTokens[page.NextPageToken]; seen {
			return nil, fmt.Errorf("%w: calendar list repeated page token", ErrPaginationLoop)
		}
		seenTokens[page.NextPageToken] = struct{}{}
		pageToken = page.NextPageToken
	}
}

func (c *Coordinator) skipCalendar(cal calendar.Calendar) bool {
	summary := strings.ToLower(cal.Summary)
	for _, term := range c.Settings.SkipCalendars {
		if strings.Contains(summary, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// dedupeAndSort keeps the first occurrence of each (calendar, id) key and
// orders by effective start, breaking ties by calendar then id. Events without
// an id are never merged.
func (c *Coordinator) dedupeAndSort(items []calendar.Event) []calendar.Event {
	type key struct{ calendarID, id string }
	type keyed struct {
		event calendar.Event
		start time.Time
	}

	normalizer := temporal.NewNormalizer(c.Settings)
	seen := make(map[key]struct{}, len(items))
	sorted := make([]keyed, 0, len(items))

	for _, e := range items {
		if e.ID != "" {
			k := key{e.CalendarID, e.ID}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
		}
		sorted = append(sorted, keyed{event: e, start: normalizer.EffectiveStart(e)})
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		if a.event.CalendarID != b.event.CalendarID {
			return a.event.CalendarID < b.event.CalendarID
		}
		return a.event.ID < b.event.ID
	})

	out := make([]calendar.Event, 0, len(sorted))
	for _, k := range sorted {
		out = append(out, k.event)
	}
	return out
}

func (c *Coordinator) pageSize() int64 {
	if c.Settings.PageSize <= 0 || c.Settings.PageSize > config.MaxPageSize {
		return config.MaxPageSize
	}
	return c.Settings.PageSize
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

func (c *Coordinator) logger() *logrus.Entry {
	if c.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Log
}
