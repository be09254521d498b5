package mailer

import (
	"context"

	"go.uber.org/zap"
)

// SandboxMailer logs mails instead of delivering them.
type SandboxMailer struct {
	logger *zap.SugaredLogger
}

func NewSandboxMailer(logger *zap.SugaredLogger) *SandboxMailer {
	return &SandboxMailer{logger: logger}
}

func (s *SandboxMailer) Send(ctx context.Context, envelope Envelope) error {
	if len(envelope.Recipients) == 0 {
		return ErrNoRecipients
	}

	s.logger.Infow("SANDBOX MODE: mail not delivered",
		"from", envelope.From,
		"recipients", envelope.Recipients,
		"size", len(envelope.Raw),
	)
	return nil
}
