package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ActionAdd            = "add"
	ActionFind           = "find"
	ActionFindNext       = "find_next"
	ActionFindYear       = "find_year"
	ActionGet            = "get"
	ActionSumAnnualLeave = "sum_annual_leave"

	// MaxWindowDays bounds days and days_back.
	MaxWindowDays = 365 * 3
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Command is a structured calendar request, either sent directly by a caller
// or extracted from chat messages.
type Command struct {
	Action    string            `json:"action,omitempty"`
	Events    []json.RawMessage `json:"events,omitempty"`
	Terms     []string          `json:"terms,omitempty"`
	Term      string            `json:"term,omitempty"`
	Days      *int              `json:"days,omitempty"`
	DaysBack  *int              `json:"days_back,omitempty"`
	Year      *int              `json:"year,omitempty"`
	ReturnOne bool              `json:"return_one,omitempty"`
}

// UnmarshalJSON tolerates the loose shapes the language model produces: a
// single "event" instead of "events", an object instead of a list, a bare
// string for terms and numbers sent as strings. Unusable numbers are ignored.
func (c *Command) UnmarshalJSON(data []byte) error {
	raw := struct {
		Action    string          `json:"action"`
		Event     json.RawMessage `json:"event"`
		Events    json.RawMessage `json:"events"`
		Terms     json.RawMessage `json:"terms"`
		Term      string          `json:"term"`
		Days      json.RawMessage `json:"days"`
		DaysBack  json.RawMessage `json:"days_back"`
		Year      json.RawMessage `json:"year"`
		ReturnOne bool            `json:"return_one"`
	}{}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	events, err := rawList(raw.Events)
	if err != nil {
		return fmt.Errorf("error decoding events: %w", err)
	}
	if len(events) == 0 {
		events, err = rawList(raw.Event)
		if err != nil {
			return fmt.Errorf("error decoding event: %w", err)
		}
	}

	terms, err := stringList(raw.Terms)
	if err != nil {
		return fmt.Errorf("error decoding terms: %w", err)
	}

	*c = Command{
		Action:    strings.TrimSpace(raw.Action),
		Events:    events,
		Terms:     terms,
		Term:      raw.Term,
		Days:      flexInt(raw.Days),
		DaysBack:  flexInt(raw.DaysBack),
		Year:      flexInt(raw.Year),
		ReturnOne: raw.ReturnOne,
	}
	return nil
}

// SearchTerms returns Terms, falling back to the single Term.
func (c Command) SearchTerms() []string {
	if len(c.Terms) > 0 {
		return c.Terms
	}
	if c.Term != "" {
		return []string{c.Term}
	}
	return nil
}

// Window returns the forward and backward day counts, defaulted and clamped to [0, MaxWindowDays].
func (c Command) Window(forwardDefault, backDefault int) (int, int) {
	return clampDays(c.Days, forwardDefault), clampDays(c.DaysBack, backDefault)
}

// Merge overlays every field set in other onto c.
func (c Command) Merge(other Command) Command {
	if other.Action != "" {
		c.Action = other.Action
	}
	if len(other.Events) > 0 {
		c.Events = other.Events
	}
	if len(other.Terms) > 0 {
		c.Terms = other.Terms
	}
	if other.Term != "" {
		c.Term = other.Term
	}
	if other.Days != nil {
		c.Days = other.Days
	}
	if other.DaysBack != nil {
		c.DaysBack = other.DaysBack
	}
	if other.Year != nil {
		c.Year = other.Year
	}
	if other.ReturnOne {
		c.ReturnOne = true
	}
	return c
}

func clampDays(v *int, def int) int {
	n := def
	if v != nil {
		n = *v
	}
	if n < 0 {
		return 0
	}
	if n > MaxWindowDays {
		return MaxWindowDays
	}
	return n
}

func rawList(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '{' {
		return []json.RawMessage{raw}, nil
	}

	items := make([]json.RawMessage, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	out := items[:0]
	for _, item := range items {
		if !bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			out = append(out, item)
		}
	}
	return out, nil
}

func stringList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	}

	items := make([]*string, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func flexInt(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	n := int(f)
	return &n
}
