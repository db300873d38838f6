package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the part of the SES client used for job alerts.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// LoadConfig resolves credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

type EmailSender struct {
	client SESAPI
	from   string
}

func NewEmailSender(cfg awssdk.Config, from string) *EmailSender {
	return NewEmailSenderWithClient(ses.NewFromConfig(cfg), from)
}

func NewEmailSenderWithClient(client SESAPI, from string) *EmailSender {
	return &EmailSender{client: client, from: from}
}

// Send delivers a text and HTML email and returns the SES message id.
func (s *EmailSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(textBody), Charset: awssdk.String("UTF-8")},
				Html: &types.Content{Data: awssdk.String(htmlBody), Charset: awssdk.String("UTF-8")},
			},
		},
		Source: awssdk.String(s.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
