package mailer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-message/textproto"
)

const (
	// Mail delivery modes
	SyncDelivery  = "sync"
	AsyncInMemory = "async_memory"

	// Transports
	TransportSMTP    = "smtp"
	TransportSES     = "ses"
	TransportSandbox = "sandbox"
)

// Envelope is a fully built MIME message plus its SMTP envelope addresses.
type Envelope struct {
	From       string
	Recipients []string
	Raw        []byte
}

// Message returns Raw as it goes on the wire. Bcc recipients stay in the
// envelope but their header is removed so other recipients cannot see them.
func (e Envelope) Message() ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(e.Raw))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}
	if !h.Has("Bcc") {
		return e.Raw, nil
	}
	h.Del("Bcc")

	var buf bytes.Buffer
	buf.Grow(len(e.Raw))
	if err := textproto.WriteHeader(&buf, h); err != nil {
		return nil, fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.Copy(&buf, br); err != nil {
		return nil, fmt.Errorf("failed to copy message body: %w", err)
	}
	return buf.Bytes(), nil
}

type Client interface {
	Send(ctx context.Context, envelope Envelope) error
}

var (
	ErrQueueNotRunning = errors.New("mail queue is not running")
	ErrQueueFull       = errors.New("mail queue is full")
	ErrNoRecipients    = errors.New("mail has no recipients")
)

// DeliveryError is returned when the transport rejected a mail.
type DeliveryError struct {
	MailID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver mail %d: %v", e.MailID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// MailJob represents a mail waiting in the queue
type MailJob struct {
	MailID   int64
	Envelope Envelope
}

// Queue interface for mail queue operations
type Queue interface {
	Enqueue(job MailJob) error
	Start()
	Stop()
}
