package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"go.uber.org/zap"
)

type SmtpMailer struct {
	mailHost       string
	mailPort       string
	mailUsername   string
	mailPassword   string
	mailEncryption string
	helloName      string
	dialTimeout    time.Duration
	logger         *zap.SugaredLogger
}

func NewSendSMTP(
	mailHost,
	mailPort,
	mailUsername,
	mailPassword,
	mailEncryption string,
	logger *zap.SugaredLogger) *SmtpMailer {
	return &SmtpMailer{
		mailHost:       mailHost,
		mailPort:       mailPort,
		mailUsername:   mailUsername,
		mailPassword:   mailPassword,
		mailEncryption: mailEncryption,
		helloName:      "localhost",
		dialTimeout:    30 * time.Second,
		logger:         logger,
	}
}

// Send delivers the envelope in a single attempt. Failures are reported, never retried.
func (s *SmtpMailer) Send(ctx context.Context, envelope Envelope) error {
	if len(envelope.Recipients) == 0 {
		return ErrNoRecipients
	}

	msg, err := envelope.Message()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.mailHost, s.mailPort)
	s.logger.Infow("sending mail over smtp", "addr", addr, "recipients", len(envelope.Recipients))

	if err := s.sendMailWithTLS(ctx, addr, envelope.From, envelope.Recipients, msg); err != nil {
		s.logger.Errorw("smtp delivery failed", "addr", addr, "username", s.mailUsername, "error", err)
		return err
	}

	return nil
}

func (s *SmtpMailer) sendMailWithTLS(ctx context.Context, addr, from string, recipients []string, msg []byte) error {
	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.mailHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if err = client.Hello(s.helloName); err != nil {
		return fmt.Errorf("failed HELO/EHLO: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok && s.mailEncryption != "none" {
		tlsConfig := &tls.Config{
			ServerName: s.mailHost,
			MinVersion: tls.VersionTLS12,
		}

		if err = client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed STARTTLS: %w", err)
		}
	}

	if s.mailUsername != "" && s.mailPassword != "" {
		auth := smtp.PlainAuth("", s.mailUsername, s.mailPassword, s.mailHost)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed authentication: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed MAIL FROM: %w", err)
	}

	for _, to := range recipients {
		if err = client.Rcpt(to); err != nil {
			return fmt.Errorf("failed RCPT TO %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed DATA: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
