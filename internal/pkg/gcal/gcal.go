// Package gcal implements calendar.Store on top of the Google Calendar API.
package gcal

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
)

const orderByStartTime = "startTime"

type Client struct {
	Log     *logrus.Entry
	Service *gcalendar.Service
}

func New(ctx context.Context, log *logrus.Entry, opts ...option.ClientOption) (*Client, error) {
	service, err := gcalendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating calendar service %w", err)
	}

	return &Client{Log: log, Service: service}, nil
}

// ListEvents lists one page of single (expanded) events ordered by start time.
func (client *Client) ListEvents(ctx context.Context, query calendar.ListQuery) (calendar.EventPage, error) {
	call := client.Service.Events.List(query.CalendarID).
		TimeMin(query.TimeMin).
		TimeMax(query.TimeMax).
		SingleEvents(true).
		OrderBy(orderByStartTime)

	if query.MaxResults > 0 {
		call = call.MaxResults(query.MaxResults)
	}
	if query.PageToken != "" {
		call = call.PageToken(query.PageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return calendar.EventPage{}, fmt.Errorf("error listing events %w", err)
	}

	page := calendar.EventPage{
		Items:         make([]calendar.Event, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, fromAPI(item))
	}

	return page, nil
}

func (client *Client) InsertEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	created, err := client.Service.Events.Insert(calendarID, toAPI(event)).Context(ctx).Do()
	if err != nil {
		return calendar.Event{}, fmt.Errorf("error inserting event %q %w", event.Summary, err)
	}

	if client.Log != nil {
		client.Log.WithField("id", created.Id).WithField("calendar", calendarID).Info("event created")
	}

	return fromAPI(created), nil
}

func (client *Client) ListCalendars(ctx context.Context, minAccessRole, pageToken string) (calendar.CalendarPage, error) {
	call := client.Service.CalendarList.List()

	if minAccessRole != "" {
		call = call.MinAccessRole(minAccessRole)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return calendar.CalendarPage{}, fmt.Errorf("error listing calendars %w", err)
	}

	page := calendar.CalendarPage{
		Items:         make([]calendar.Calendar, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, calendar.Calendar{
			ID:         item.Id,
			Summary:    item.Summary,
			AccessRole: item.AccessRole,
		})
	}

	return page, nil
}

func fromAPI(item *gcalendar.Event) calendar.Event {
	return calendar.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       timeFromAPI(item.Start),
		End:         timeFromAPI(item.End),
		ColorID:     item.ColorId,
		HTMLLink:    item.HtmlLink,
	}
}

func timeFromAPI(t *gcalendar.EventDateTime) *calendar.EventTime {
	if t == nil {
		return nil
	}
	return &calendar.EventTime{Date: t.Date, DateTime: t.DateTime, TimeZone: t.TimeZone}
}

func toAPI(e calendar.Event) *gcalendar.Event {
	return &gcalendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       timeToAPI(e.Start),
		End:         timeToAPI(e.End),
		ColorId:     e.ColorID,
	}
}

func timeToAPI(t *calendar.EventTime) *gcalendar.EventDateTime {
	if t == nil {
		return nil
	}
	return &gcalendar.EventDateTime{Date: t.Date, DateTime: t.DateTime, TimeZone: t.TimeZone}
}
