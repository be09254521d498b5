package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SendEmailAPI is the part of the SES v2 client the mailer uses.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer hands the already built MIME message to SES as a raw message.
type SESMailer struct {
	client SendEmailAPI
	logger *zap.SugaredLogger
}

func NewSESMailer(ctx context.Context, region, accessKeyID, secretAccessKey string, logger *zap.SugaredLogger) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}

	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESMailerWithClient(sesv2.NewFromConfig(cfg), logger), nil
}

func NewSESMailerWithClient(client SendEmailAPI, logger *zap.SugaredLogger) *SESMailer {
	return &SESMailer{client: client, logger: logger}
}

func (s *SESMailer) Send(ctx context.Context, envelope Envelope) error {
	if len(envelope.Recipients) == 0 {
		return ErrNoRecipients
	}

	msg, err := envelope.Message()
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(envelope.From),
		Destination: &types.Destination{
			ToAddresses: envelope.Recipients,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: msg},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("SES SendEmail failed: %w", err)
	}

	s.logger.Infow("mail accepted by ses", "ses_message_id", aws.ToString(out.MessageId), "recipients", len(envelope.Recipients))
	return nil
}
