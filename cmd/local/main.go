// Command local runs one assistant request against the real calendar from a
// workstation, reading settings from a .env file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/api"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/assistant"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/gcal"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/intent"
)

func main() {
	tokenFile := flag.String("token", "token.json", "path to the stored OAuth user token")
	body := flag.String("body", "", "raw JSON request body; overrides the positional text")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger()).WithField("component", "calendar-assistant-local")

	if err := run(log, *tokenFile, *body, strings.Join(flag.Args(), " ")); err != nil {
		log.WithError(err).Error()
		os.Exit(1)
	}
}

func run(log *logrus.Entry, tokenFile, body, text string) error {
	err := godotenv.Load()
	if err != nil {
		log.WithError(err).Warn("no .env file loaded")
	}

	envVars, err := config.ParseEnvironment()
	if err != nil {
		return err
	}

	if lvl, err := logrus.ParseLevel(envVars.LogLevel); err == nil {
		log.Logger.SetLevel(lvl)
	}

	settings, err := config.FromEnvironment(envVars)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return fmt.Errorf("error reading token file %s: %w", tokenFile, err)
	}

	user := gcal.AuthorizedUser{}

	err = json.Unmarshal(data, &user)
	if err != nil {
		return fmt.Errorf("error unmarshalling token file %w", err)
	}

	ctx := context.Background()

	store, err := gcal.New(ctx, log, option.WithTokenSource(user.TokenSource(ctx)))
	if err != nil {
		return err
	}

	handler := &api.Handler{
		Log:         log,
		Service:     assistant.New(log, settings, store, nil),
		Interpreter: intent.NewInterpreter(log, envVars.OpenAIAPIKey, envVars.OpenAIModel, settings),
	}

	if body == "" {
		encoded, err := json.Marshal(map[string]string{"text": text})
		if err != nil {
			return fmt.Errorf("error encoding request %w", err)
		}
		body = string(encoded)
	}

	resp, err := handler.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: body})
	if err != nil {
		return err
	}

	fmt.Printf("%d %s\n", resp.StatusCode, resp.Body)
	return nil
}
