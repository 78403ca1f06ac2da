// Package notify publishes assistant outcomes to an SNS topic.
package notify

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
)

const subjectLimit = 100

// Publisher is the SNS call used to publish messages.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	SNSTopicARN string
}

type Client struct {
	Log    *logrus.Entry
	Config Config
	SNS    Publisher
}

// Publish sends message to the configured topic.
func (client *Client) Publish(ctx context.Context, subject, message string) error {
	subject = truncate(subject, subjectLimit)

	input := &sns.PublishInput{
		Message:  &message,
		TopicArn: &client.Config.SNSTopicARN,
	}
	if subject != "" {
		input.Subject = &subject
	}

	_, err := client.SNS.Publish(ctx, input)
	if err != nil {
		if client.Log != nil {
			client.Log.WithError(err).Error()
		}
		return fmt.Errorf("error publishing to AWS SNS topic %s: %w", client.Config.SNSTopicARN, err)
	}

	return nil
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
