// Package assistant carries out calendar commands: adding events, searching
// windows of the calendar and totalling annual leave.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/canon"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/format"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/intent"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/leave"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/match"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/retrieval"
)

// ErrInvalidRequest marks commands that cannot be carried out as sent.
var ErrInvalidRequest = errors.New("invalid request")

type Retriever interface {
	FetchWindow(ctx context.Context, daysBack, daysForward, maxResults int) ([]calendar.Event, error)
}

type LeaveReporter interface {
	BuildReport(ctx context.Context, year int) (leave.Report, error)
}

type Notifier interface {
	Publish(ctx context.Context, subject, message string) error
}

type EventsResult struct {
	Events []calendar.Slim `json:"events"`
	Reply  string          `json:"reply"`
}

// EventResult holds a single event; Event is nil when nothing matched.
type EventResult struct {
	Event *calendar.Slim `json:"event"`
	Reply string         `json:"reply"`
}

type CreatedResult struct {
	Events []calendar.Event `json:"events"`
	Reply  string           `json:"reply"`
}

type LeaveResult struct {
	leave.Report
	Reply string `json:"reply"`
}

type Service struct {
	Log           *logrus.Entry
	Settings      config.Settings
	Store         calendar.Store
	Retriever     Retriever
	Canonicalizer *canon.Canonicalizer
	Leave         LeaveReporter
	Notifier      Notifier
	Now           func() time.Time
}

// New wires the engine components around store. notifier may be nil.
func New(log *logrus.Entry, settings config.Settings, store calendar.Store, notifier Notifier) *Service {
	coordinator := &retrieval.Coordinator{
		Log:      log,
		Store:    store,
		Settings: settings,
	}

	return &Service{
		Log:           log,
		Settings:      settings,
		Store:         store,
		Retriever:     coordinator,
		Canonicalizer: canon.New(log, settings),
		Leave: &leave.Aggregator{
			Log:      log,
			Fetcher:  coordinator,
			Settings: settings,
		},
		Notifier: notifier,
		Now:      time.Now,
	}
}

// Handle runs cmd and returns a JSON-encodable result.
func (s *Service) Handle(ctx context.Context, cmd intent.Command) (any, error) {
	s.logger().WithField("action", cmd.Action).Info("handling command")

	switch cmd.Action {
	case intent.ActionFind:
		forward, back := cmd.Window(31, 7)
		events, err := s.search(ctx, cmd.SearchTerms(), back, forward)
		if err != nil {
			return nil, err
		}
		if cmd.ReturnOne {
			return first(events, s.Settings), nil
		}
		return list(events, s.Settings), nil

	case intent.ActionFindNext:
		forward, back := cmd.Window(30, 0)
		events, err := s.search(ctx, cmd.SearchTerms(), back, forward)
		if err != nil {
			return nil, err
		}
		return first(events, s.Settings), nil

	case intent.ActionFindYear:
		forward, back := cmd.Window(365, 7)
		events, err := s.search(ctx, cmd.SearchTerms(), back, forward)
		if err != nil {
			return nil, err
		}
		return list(events, s.Settings), nil

	case intent.ActionGet:
		forward, back := cmd.Window(31, 0)
		events, err := s.Retriever.FetchWindow(ctx, back, forward, s.Settings.MaxResults)
		if err != nil {
			return nil, err
		}
		return list(events, s.Settings), nil

	case intent.ActionAdd:
		return s.add(ctx, cmd)

	case intent.ActionSumAnnualLeave:
		return s.sumAnnualLeave(ctx, cmd)
	}

	return nil, fmt.Errorf("%w: invalid action %q", ErrInvalidRequest, cmd.Action)
}

// search fetches the window and keeps the events matching terms. Without any
// non-blank term the whole window is returned.
func (s *Service) search(ctx context.Context, terms []string, back, forward int) ([]calendar.Event, error) {
	events, err := s.Retriever.FetchWindow(ctx, back, forward, s.Settings.MaxResults)
	if err != nil {
		return nil, err
	}

	if !match.HasTerms(terms) {
		return events, nil
	}
	return match.Filter(events, terms), nil
}

func (s *Service) add(ctx context.Context, cmd intent.Command) (CreatedResult, error) {
	if len(cmd.Events) == 0 {
		return CreatedResult{}, fmt.Errorf("%w: no events provided for add", ErrInvalidRequest)
	}

	prepared := s.Canonicalizer.Build(cmd.Events)
	if len(prepared) == 0 {
		return CreatedResult{}, fmt.Errorf("%w: no valid events to add after normalization", ErrInvalidRequest)
	}

	created := make([]calendar.Event, 0, len(prepared))
	for _, e := range prepared {
		inserted, err := s.Store.InsertEvent(ctx, s.Settings.CalendarID, e)
		if err != nil {
			return CreatedResult{}, err
		}
		created = append(created, inserted)
	}

	result := CreatedResult{
		Events: created,
		Reply:  fmt.Sprintf("Added %s:\n%s", pluralEvents(len(created)), format.EventList(created, s.Settings.Location)),
	}

	s.notify(ctx, "Calendar events added", result.Reply)

	return result, nil
}

func (s *Service) sumAnnualLeave(ctx context.Context, cmd intent.Command) (LeaveResult, error) {
	year := s.now().In(s.location()).Year()
	if cmd.Year != nil {
		year = *cmd.Year
	}

	report, err := s.Leave.BuildReport(ctx, year)
	if err != nil {
		return LeaveResult{}, err
	}

	result := LeaveResult{Report: report, Reply: format.LeaveReply(report)}

	if report.TotalUnits > 0 {
		s.notify(ctx, fmt.Sprintf("Annual leave %d", year), result.Reply)
	}

	return result, nil
}

func (s *Service) notify(ctx context.Context, subject, message string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, subject, message); err != nil {
		s.logger().WithError(err).Warn("notification not sent")
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) location() *time.Location {
	if s.Settings.Location == nil {
		return time.UTC
	}
	return s.Settings.Location
}

func list(events []calendar.Event, settings config.Settings) EventsResult {
	return EventsResult{
		Events: calendar.SlimAll(events),
		Reply:  format.EventList(events, settings.Location),
	}
}

func first(events []calendar.Event, settings config.Settings) EventResult {
	if len(events) == 0 {
		return EventResult{Reply: format.NoEvents}
	}
	slim := events[0].Slim()
	return EventResult{
		Event: &slim,
		Reply: format.EventList(events[:1], settings.Location),
	}
}

func pluralEvents(n int) string {
	if n == 1 {
		return "1 event"
	}
	return fmt.Sprintf("%d events", n)
}

func (s *Service) logger() *logrus.Entry {
	if s.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return s.Log
}
