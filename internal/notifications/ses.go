package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/voltlot/voltlot-backend/pkg/config"
)

const sesServiceName = "ses"

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESBackend delivers through Amazon SES.
type SESBackend struct {
	client           sesAPI
	source           string
	configurationSet string
}

// NewSESBackend sends from the verified identity when configured, else from
// the default sender.
func NewSESBackend(client sesAPI, cfg config.EmailConfig) (*SESBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("ses client required")
	}
	source := strings.TrimSpace(cfg.SESVerifiedFrom)
	if source == "" {
		source = cfg.DefaultFrom
	}
	return &SESBackend{
		client:           client,
		source:           source,
		configurationSet: strings.TrimSpace(cfg.SESConfigurationSet),
	}, nil
}

func (b *SESBackend) Name() string { return sesServiceName }

func (b *SESBackend) Send(ctx context.Context, msg Message) (Info, error) {
	info := Info{"service": sesServiceName}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(b.source),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if b.configurationSet != "" {
		input.ConfigurationSetName = aws.String(b.configurationSet)
	}

	out, err := b.client.SendEmail(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			info["code"] = apiErr.ErrorCode()
			return info, &sesError{apiErr: apiErr}
		}
		return info, err
	}
	if out != nil && out.MessageId != nil && *out.MessageId != "" {
		info["message_id"] = *out.MessageId
	}
	return info, nil
}

// sesError reports only the provider's message text.
type sesError struct {
	apiErr smithy.APIError
}

func (e *sesError) Error() string {
	if msg := e.apiErr.ErrorMessage(); msg != "" {
		return msg
	}
	return e.apiErr.ErrorCode()
}

func (e *sesError) Unwrap() error { return e.apiErr }
