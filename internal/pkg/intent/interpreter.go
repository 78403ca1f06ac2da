// Package intent extracts structured calendar commands from chat messages with
// a language model.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
)

const (
	DefaultModel = "gpt-4o-mini"
	temperature  = 0.2
)

// ErrExtraction marks model output that could not be turned into a Command.
var ErrExtraction = errors.New("failed to extract events from message")

// ChatClient is the subset of the OpenAI client the interpreter needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Interpreter struct {
	Log      *logrus.Entry
	Client   ChatClient
	Model    string
	Settings config.Settings
	Now      func() time.Time
}

func NewInterpreter(log *logrus.Entry, apiKey, model string, settings config.Settings) *Interpreter {
	if model == "" {
		model = DefaultModel
	}
	return &Interpreter{
		Log:      log,
		Client:   openai.NewClient(apiKey),
		Model:    model,
		Settings: settings,
		Now:      time.Now,
	}
}

// Interpret asks the model for a command and overlays it on base. When the
// model sets no action, events imply an add.
func (i *Interpreter) Interpret(ctx context.Context, base Command, messages []Message) (Command, error) {
	base = Nudge(base, messages)

	if len(messages) == 0 {
		return base, nil
	}

	chat := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chat = append(chat, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: i.SystemPrompt()})
	for _, m := range messages {
		chat = append(chat, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := i.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       i.Model,
		Messages:    chat,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Command{}, fmt.Errorf("error creating chat completion %w", err)
	}

	if len(resp.Choices) == 0 {
		return Command{}, fmt.Errorf("%w: model returned no choices", ErrExtraction)
	}

	parsed, err := parseCommand(resp.Choices[0].Message.Content)
	if err != nil {
		return Command{}, err
	}

	i.logger().WithField("action", parsed.Action).WithField("events", len(parsed.Events)).Info("model parsed command")

	cmd := base.Merge(parsed)
	if cmd.Action == "" && len(cmd.Events) > 0 {
		cmd.Action = ActionAdd
	}
	return cmd, nil
}

func parseCommand(content string) (Command, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	cmd := Command{}
	if err := json.Unmarshal([]byte(content), &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return cmd, nil
}

var (
	totalWords = []string{"add up", "total", "sum", "how much", "how many"}
	leaveWords = []string{"annual leave", "holidays", "holiday", "vacation"}
)

// Nudge sets sum_annual_leave on a command without an action when the user
// asks to total their leave.
func Nudge(cmd Command, messages []Message) Command {
	if cmd.Action != "" {
		return cmd
	}

	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == openai.ChatMessageRoleUser {
			parts = append(parts, m.Content)
		}
	}
	text := strings.ToLower(strings.Join(parts, " "))

	if containsAny(text, totalWords) && containsAny(text, leaveWords) {
		cmd.Action = ActionSumAnnualLeave
	}
	return cmd
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// SystemPrompt is the fixed extraction instruction, dated today in the default zone.
func (i *Interpreter) SystemPrompt() string {
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	loc := i.Settings.Location
	if loc == nil {
		loc = time.UTC
	}
	today := now().In(loc).Format("Monday 02 January 2006")

	return fmt.Sprintf("You are a helpful calendar assistant. Today is %s in %s timezone.\n\n", today, i.Settings.TimeZone) +
		"Your job is to extract all valid calendar events from the user's message.\n\n" +
		"Return a JSON object with:\n" +
		"{\n" +
		`  "action": "add" | "find" | "find_next" | "find_year" | "get" | "sum_annual_leave",` + "\n" +
		`  "events": [` + "\n" +
		`    {"summary": string, "start": ISO8601 string or "YYYY-MM-DD", "end": ISO8601 string or "YYYY-MM-DD", "location": string, "notes": string, "color": string}` + "\n" +
		"  ],\n" +
		`  "terms": [string],` + "\n" +
		`  "days": number,         // optional: forward window for get/find` + "\n" +
		`  "days_back": number,    // optional: look-back window` + "\n" +
		`  "year": number          // optional: year for sum_annual_leave` + "\n" +
		"}\n\n" +
		"Rules:\n" +
		"- If the user wants to add events, use action `add` and build `events` (one object per event).\n" +
		"- If the request is a general time window without search terms (e.g., \"what's on this month\", " +
		"\"show everything next week\"), use action `get` and set `days` and/or `days_back`.\n" +
		"- If the request is a search with keywords (e.g., \"next dentist appointment\"), use `find` / " +
		"`find_next` / `find_year` and populate `terms`.\n" +
		"- If an end time is omitted, leave `end` empty; the system will default to 30 minutes after `start`.\n" +
		"- If no time is provided, create an all-day event: set `start` to YYYY-MM-DD and leave `end` empty " +
		"(the system will set it to the next day).\n" +
		"- Only include events with valid dates/times. Do not guess.\n" +
		"- If the user asks to total/count/\"add up\" holidays or annual leave, set action `sum_annual_leave` " +
		"and include an optional `year` (YYYY). If no year is stated, omit it."
}

func (i *Interpreter) logger() *logrus.Entry {
	if i.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return i.Log
}
