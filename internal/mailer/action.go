package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

// StateWriter records mail state transitions, usually within the caller's transaction.
type StateWriter interface {
	SetMailState(ctx context.Context, id int64, state, errMsg string) error
}

// Action sends persisted mails either inline or through the in-memory queue.
type Action struct {
	client Client
	queue  Queue
	mode   string
	logger *zap.SugaredLogger
}

func NewAction(client Client, queue Queue, mode string, logger *zap.SugaredLogger) *Action {
	if mode != AsyncInMemory {
		mode = SyncDelivery
	}
	return &Action{client: client, queue: queue, mode: mode, logger: logger}
}

func (a *Action) Mode() string {
	return a.mode
}

// Send delivers the mails in order and stops at the first failure.
// In sync mode a rejected mail is marked failed and a *DeliveryError is returned.
func (a *Action) Send(ctx context.Context, states StateWriter, mails ...*models.ElectronicMail) error {
	for _, mail := range mails {
		envelope := Envelope{
			From:       mail.From,
			Recipients: mail.Recipients,
			Raw:        mail.Raw,
		}

		if a.mode == AsyncInMemory {
			if err := a.enqueue(ctx, states, mail, envelope); err != nil {
				return err
			}
			continue
		}

		if err := a.deliver(ctx, states, mail, envelope); err != nil {
			return err
		}
	}

	return nil
}

func (a *Action) deliver(ctx context.Context, states StateWriter, mail *models.ElectronicMail, envelope Envelope) error {
	if err := a.client.Send(ctx, envelope); err != nil {
		mail.State = models.MailStateFailed
		mail.Error = err.Error()

		deliveryErr := &DeliveryError{MailID: mail.ID, Err: err}
		if stateErr := states.SetMailState(ctx, mail.ID, mail.State, mail.Error); stateErr != nil {
			return errors.Join(deliveryErr, fmt.Errorf("failed to mark mail %d failed: %w", mail.ID, stateErr))
		}
		return deliveryErr
	}

	mail.State = models.MailStateSent
	mail.Error = ""
	if err := states.SetMailState(ctx, mail.ID, mail.State, ""); err != nil {
		return fmt.Errorf("failed to mark mail %d sent: %w", mail.ID, err)
	}

	a.logger.Infow("mail sent", "mail_id", mail.ID, "message_id", mail.MessageID)
	return nil
}

func (a *Action) enqueue(ctx context.Context, states StateWriter, mail *models.ElectronicMail, envelope Envelope) error {
	if a.queue == nil {
		return ErrQueueNotRunning
	}

	mail.State = models.MailStateOutbox
	if err := states.SetMailState(ctx, mail.ID, mail.State, ""); err != nil {
		return fmt.Errorf("failed to mark mail %d outbox: %w", mail.ID, err)
	}

	return a.queue.Enqueue(MailJob{MailID: mail.ID, Envelope: envelope})
}
