package calendar

import "context"

// EventTime is one side of an event. Exactly one of Date or DateTime is set on a
// well-formed side; Date is a calendar day and DateTime an RFC 3339 time.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

func (t *EventTime) IsTimed() bool {
	return t != nil && t.DateTime != ""
}

func (t *EventTime) IsDate() bool {
	return t != nil && t.DateTime == "" && t.Date != ""
}

// Empty reports whether the side carries neither a date nor a date-time.
func (t *EventTime) Empty() bool {
	return t == nil || (t.DateTime == "" && t.Date == "")
}

// Value returns the date-time if present, else the date.
func (t *EventTime) Value() string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func (t *EventTime) clone() *EventTime {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

type Event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
	ColorID     string     `json:"colorId,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`

	// Set only when events are merged from several calendars.
	CalendarID      string `json:"calendarId,omitempty"`
	CalendarSummary string `json:"calendarSummary,omitempty"`
}

// Clone returns a deep copy; start and end are not shared with the receiver.
func (e Event) Clone() Event {
	e.Start = e.Start.clone()
	e.End = e.End.clone()
	return e
}

// Text is the space-joined summary, description and location used for matching.
func (e Event) Text() string {
	return e.Summary + " " + e.Description + " " + e.Location
}

// Slim is the reduced projection returned in list responses.
type Slim struct {
	ID      string     `json:"id,omitempty"`
	Title   string     `json:"title"`
	Start   *EventTime `json:"start,omitempty"`
	End     *EventTime `json:"end,omitempty"`
	Link    string     `json:"link,omitempty"`
	ColorID string     `json:"colorId,omitempty"`
}

func (e Event) Slim() Slim {
	return Slim{
		ID:      e.ID,
		Title:   e.Summary,
		Start:   e.Start.clone(),
		End:     e.End.clone(),
		Link:    e.HTMLLink,
		ColorID: e.ColorID,
	}
}

func SlimAll(events []Event) []Slim {
	out := make([]Slim, 0, len(events))
	for _, e := range events {
		out = append(out, e.Slim())
	}
	return out
}

type Calendar struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	AccessRole string `json:"accessRole,omitempty"`
}

type ListQuery struct {
	CalendarID string
	TimeMin    string
	TimeMax    string
	PageToken  string
	MaxResults int64
}

type EventPage struct {
	Items         []Event
	NextPageToken string
}

type CalendarPage struct {
	Items         []Calendar
	NextPageToken string
}

// Store is the remote calendar backend. ListEvents must expand recurring events
// into instances and order them by start time.
type Store interface {
	ListEvents(ctx context.Context, query ListQuery) (EventPage, error)
	InsertEvent(ctx context.Context, calendarID string, event Event) (Event, error)
	ListCalendars(ctx context.Context, minAccessRole, pageToken string) (CalendarPage, error)
}
