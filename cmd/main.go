package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	cfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/api"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/assistant"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/config"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/gcal"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/intent"
	"github.com/adiazny/calendar-assistant-lambda/internal/pkg/notify"
)

const timeout = 30

func setup() (envVars *config.Environment, err error) {
	_, err = maxprocs.Set()
	if err != nil {
		return nil, fmt.Errorf("error setting GOMAXPROCS %w", err)
	}

	return config.ParseEnvironment()
}

func newLogger(level string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}

	return logrus.NewEntry(logger).WithField("component", "calendar-assistant")
}

func HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	envVars, err := setup()
	if err != nil {
		return api.Failure(newLogger("info"), err), nil
	}

	log := newLogger(envVars.LogLevel)
	log.Info("starting up")

	defer log.Info("shutting down")

	handler, err := buildHandler(ctx, log, envVars)
	if err != nil {
		return api.Failure(log, err), nil
	}

	return handler.Handle(ctx, req)
}

func buildHandler(ctx context.Context, log *logrus.Entry, envVars *config.Environment) (*api.Handler, error) {
	settings, err := config.FromEnvironment(envVars)
	if err != nil {
		return nil, err
	}

	awsConfig, err := cfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config %w", err)
	}

	loader := &gcal.TokenLoader{
		S3:     s3.NewFromConfig(awsConfig),
		Bucket: envVars.S3Bucket,
		Key:    envVars.S3TokenKey,
	}

	tokenSource, err := loader.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Timeout = time.Duration(time.Second * timeout)

	store, err := gcal.New(ctx, log, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	var notifier assistant.Notifier
	if envVars.TopicARN != "" {
		notifier = &notify.Client{
			Log:    log,
			Config: notify.Config{SNSTopicARN: envVars.TopicARN},
			SNS:    sns.NewFromConfig(awsConfig),
		}
	}

	return &api.Handler{
		Log:         log,
		Service:     assistant.New(log, settings, store, notifier),
		Interpreter: intent.NewInterpreter(log, envVars.OpenAIAPIKey, envVars.OpenAIModel, settings),
	}, nil
}

func main() {
	lambda.Start(HandleRequest)
}
