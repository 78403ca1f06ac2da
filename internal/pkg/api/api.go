// Package api adapts API Gateway proxy requests to assistant commands.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/assistant"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/intent"
)

type CommandHandler interface {
	Handle(ctx context.Context, cmd intent.Command) (any, error)
}

type Interpreter interface {
	Interpret(ctx context.Context, base intent.Command, messages []intent.Message) (intent.Command, error)
}

// Payload is the request body: a command, chat messages to extract one from, or both.
type Payload struct {
	intent.Command
	Messages []intent.Message `json:"messages"`
	Text     string           `json:"text"`
	Ping     string           `json:"ping"`
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	cmd := intent.Command{}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}

	rest := struct {
		Messages []intent.Message `json:"messages"`
		Text     string           `json:"text"`
		Content  string           `json:"content"`
		Ping     string           `json:"ping"`
	}{}
	if err := json.Unmarshal(data, &rest); err != nil {
		return err
	}

	text := rest.Text
	if text == "" {
		text = rest.Content
	}

	*p = Payload{Command: cmd, Messages: rest.Messages, Text: text, Ping: rest.Ping}
	return nil
}

// ChatMessages returns Messages, or Text wrapped as a single user message.
func (p Payload) ChatMessages() []intent.Message {
	if len(p.Messages) > 0 {
		return p.Messages
	}
	if text := strings.TrimSpace(p.Text); text != "" {
		return []intent.Message{{Role: "user", Content: text}}
	}
	return nil
}

type Handler struct {
	Log         *logrus.Entry
	Service     CommandHandler
	Interpreter Interpreter
	Now         func() time.Time
}

// Handle serves one API Gateway proxy request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, map[string]any{"ok": true}), nil
	}

	payload := ParseBody(req.Body)

	if payload.Ping == "health" || payload.Ping == "warmup" {
		return respond(http.StatusOK, map[string]any{"ok": true, "ts": h.now().Unix()}), nil
	}

	cmd := payload.Command
	if messages := payload.ChatMessages(); len(messages) > 0 {
		interpreted, err := h.Interpreter.Interpret(ctx, cmd, messages)
		if err != nil {
			return h.failure(err), nil
		}
		cmd = interpreted
	}

	result, err := h.Service.Handle(ctx, cmd)
	if err != nil {
		return h.failure(err), nil
	}

	return respond(http.StatusOK, result), nil
}

// ParseBody decodes a JSON body. A body that is not a JSON object is taken as
// a plain-text user message.
func ParseBody(body string) Payload {
	payload := Payload{}

	body = strings.TrimSpace(body)
	if body == "" {
		return payload
	}

	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return Payload{Text: body}
	}
	return payload
}

func (h *Handler) failure(err error) events.APIGatewayProxyResponse {
	if errors.Is(err, assistant.ErrInvalidRequest) || errors.Is(err, intent.ErrExtraction) {
		h.logger().WithError(err).Warn("rejected request")
		return respond(http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	return Failure(h.logger(), err)
}

// Failure logs err under a fresh error id and returns it as a 500 response.
func Failure(log *logrus.Entry, err error) events.APIGatewayProxyResponse {
	errorID := uuid.New().String()
	if log != nil {
		log.WithError(err).WithField("error_id", errorID).Error("request failed")
	}

	return respond(http.StatusInternalServerError, map[string]any{
		"error":    err.Error(),
		"error_id": errorID,
	})
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"error encoding response"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "*",
			"Access-Control-Allow-Methods": "OPTIONS,POST",
		},
		Body: string(data),
	}
}

func (h *Handler) logger() *logrus.Entry {
	if h.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return h.Log
}
