package notify

import (
	"context"
	"fmt"

	"poultrymarket/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
)

// Email is a single outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// EmailSender is the subset of the SES v2 client used by the mailer.
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NewMailer builds the mailer selected by cfg.Provider.
func NewMailer(ctx context.Context, cfg config.EmailConfig, logger zerolog.Logger) (Mailer, error) {
	if cfg.Provider != "ses" {
		return NewLogMailer(logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewSESMailer(sesv2.NewFromConfig(awsCfg), cfg.From, logger), nil
}

type sesMailer struct {
	client EmailSender
	from   string
	logger zerolog.Logger
}

// NewSESMailer sends mail through Amazon SES.
func NewSESMailer(client EmailSender, from string, logger zerolog.Logger) Mailer {
	return &sesMailer{
		client: client,
		from:   from,
		logger: logger.With().Str("component", "ses-mailer").Logger(),
	}
}

func (m *sesMailer) Send(ctx context.Context, email Email) error {
	body := &types.Body{
		Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(email.TextBody)},
	}
	if email.HTMLBody != "" {
		body.Html = &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(email.HTMLBody)}
	}

	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{email.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(email.Subject)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Debug().Str("to", email.To).Str("message_id", aws.ToString(out.MessageId)).Msg("email sent")
	return nil
}

type logMailer struct {
	logger zerolog.Logger
}

// NewLogMailer writes emails to the log instead of sending them.
func NewLogMailer(logger zerolog.Logger) Mailer {
	return &logMailer{logger: logger.With().Str("component", "log-mailer").Logger()}
}

func (m *logMailer) Send(_ context.Context, email Email) error {
	m.logger.Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Str("body", email.TextBody).
		Msg("email")
	return nil
}
