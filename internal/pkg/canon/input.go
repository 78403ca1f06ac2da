package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/calendar"
)

// Input is a raw event payload: either a MinimalInput or a NativeInput.
type Input interface {
	isInput()
}

// MinimalInput is the loose shape produced by the language model. Start and End
// are either full date-times or bare YYYY-MM-DD dates.
type MinimalInput struct {
	Summary  string     `json:"summary"`
	Start    string     `json:"start"`
	End      string     `json:"end"`
	Location string     `json:"location"`
	Notes    string     `json:"notes"`
	Color    FlexString `json:"color"`
}

// NativeInput already uses the store's structured start/end objects.
type NativeInput struct {
	Event calendar.Event
}

func (MinimalInput) isInput() {}
func (NativeInput) isInput()  {}

// FlexString accepts a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("error decoding %s as string or number: %w", data, err)
	}
	*f = FlexString(n.String())
	return nil
}

// DecodeInput classifies a raw payload. Structured start or end objects mean
// the native shape; anything else is decoded as the minimal shape.
func DecodeInput(raw json.RawMessage) (Input, error) {
	probe := struct {
		Start json.RawMessage `json:"start"`
		End   json.RawMessage `json:"end"`
	}{}

	err := json.Unmarshal(raw, &probe)
	if err != nil {
		return nil, fmt.Errorf("error decoding event payload: %w", err)
	}

	if isObject(probe.Start) || isObject(probe.End) {
		native := NativeInput{}
		if err := json.Unmarshal(raw, &native.Event); err != nil {
			return nil, fmt.Errorf("error decoding native event payload: %w", err)
		}
		return native, nil
	}

	minimal := MinimalInput{}
	if err := json.Unmarshal(raw, &minimal); err != nil {
		return nil, fmt.Errorf("error decoding minimal event payload: %w", err)
	}
	return minimal, nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
