// Package canon turns raw event payloads into complete calendar events ready
// for insertion.
package canon

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/temporal"
)

const untitled = "(no title)"

var ErrInvalidEvent = errors.New("invalid event")

type Canonicalizer struct {
	Log        *logrus.Entry
	Settings   config.Settings
	Normalizer temporal.Normalizer
}

func New(log *logrus.Entry, settings config.Settings) *Canonicalizer {
	return &Canonicalizer{
		Log:        log,
		Settings:   settings,
		Normalizer: temporal.NewNormalizer(settings),
	}
}

// ApplyColor tags the event with the colour of the first keyword rule found in
// its summary. Without a match an existing colour is kept, else the default is used.
func (c *Canonicalizer) ApplyColor(e calendar.Event) calendar.Event {
	summary := strings.ToLower(e.Summary)

	for _, rule := range c.Settings.ColorRules {
		if strings.Contains(summary, rule.Keyword) {
			e.ColorID = rule.Color
			return e
		}
	}

	if e.ColorID == "" {
		e.ColorID = c.Settings.DefaultColor
	}
	return e
}

// Canonicalize colours the event, then fills time zones, then fills the end.
// An end that cannot be derived is logged and left unset.
func (c *Canonicalizer) Canonicalize(e calendar.Event) calendar.Event {
	e = c.ApplyColor(e.Clone())
	e = c.Normalizer.EnsureTimezone(e)

	filled, err := c.Normalizer.FillMissingEnd(e)
	if err != nil {
		c.logger().WithError(err).WithField("summary", e.Summary).Warn("could not fill event end")
		return e
	}
	return filled
}

// Validate requires a summary and a parsable start and end of the same shape.
func (c *Canonicalizer) Validate(e calendar.Event) error {
	if strings.TrimSpace(e.Summary) == "" {
		return fmt.Errorf("%w: summary is empty", ErrInvalidEvent)
	}

	if e.Start.Empty() {
		return fmt.Errorf("%w: start is missing", ErrInvalidEvent)
	}
	if e.End.Empty() {
		return fmt.Errorf("%w: end is missing", ErrInvalidEvent)
	}

	for _, side := range []*calendar.EventTime{e.Start, e.End} {
		if _, err := c.Normalizer.CivilDate(side); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}

	if e.Start.IsDate() != e.End.IsDate() {
		return fmt.Errorf("%w: start and end mix a date with a date-time", ErrInvalidEvent)
	}

	return nil
}

// BuildFromMinimal builds a skeleton from the loose fields, patches the
// provided values over it, then canonicalizes and validates the result.
func (c *Canonicalizer) BuildFromMinimal(in MinimalInput) (calendar.Event, error) {
	start := strings.TrimSpace(in.Start)
	end := strings.TrimSpace(in.End)

	e := calendar.Event{
		Summary: untitled,
		ColorID: c.Settings.DefaultColor,
	}
	if temporal.HasTimeOfDay(start) || temporal.HasTimeOfDay(end) {
		e.Start = &calendar.EventTime{TimeZone: c.Settings.TimeZone}
	} else {
		e.Start = &calendar.EventTime{}
	}

	if s := strings.TrimSpace(in.Summary); s != "" {
		e.Summary = s
	}
	if in.Location != "" {
		e.Location = in.Location
	}
	if in.Notes != "" {
		e.Description = in.Notes
	}
	if in.Color != "" {
		e.ColorID = string(in.Color)
	}

	if start != "" {
		e.Start = c.side(start)
	}
	if end != "" {
		e.End = c.side(end)
	}

	e = c.Canonicalize(e)

	if err := c.Validate(e); err != nil {
		return calendar.Event{}, err
	}
	return e, nil
}

// BuildFromNative canonicalizes a store-shaped payload and validates it.
func (c *Canonicalizer) BuildFromNative(in NativeInput) (calendar.Event, error) {
	e := c.Canonicalize(in.Event)

	if err := c.Validate(e); err != nil {
		return calendar.Event{}, err
	}
	return e, nil
}

// Build decodes and builds every raw payload. Payloads that fail are logged
// and skipped; the rest of the batch is still returned.
func (c *Canonicalizer) Build(raws []json.RawMessage) []calendar.Event {
	events := make([]calendar.Event, 0, len(raws))

	for i, raw := range raws {
		input, err := DecodeInput(raw)
		if err != nil {
			c.logger().WithError(err).WithField("index", i).Warn("dropping event")
			continue
		}

		var e calendar.Event
		switch in := input.(type) {
		case MinimalInput:
			e, err = c.BuildFromMinimal(in)
		case NativeInput:
			e, err = c.BuildFromNative(in)
		}
		if err != nil {
			c.logger().WithError(err).WithField("index", i).Warn("dropping event")
			continue
		}

		events = append(events, e)
	}

	return events
}

func (c *Canonicalizer) side(s string) *calendar.EventTime {
	if temporal.HasTimeOfDay(s) {
		return &calendar.EventTime{DateTime: s, TimeZone: c.Settings.TimeZone}
	}
	return &calendar.EventTime{Date: s}
}

func (c *Canonicalizer) logger() *logrus.Entry {
	if c.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Log
}
