package store

import (
	"context"
	"database/sql"
	"errors"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

// Session is the transactional context of one unit of work: its own
// transaction, the acting user and the language the unit renders in.
// A Session must not be shared between goroutines.
type Session struct {
	tx       *sql.Tx
	closed   bool
	User     *models.User
	Language string
}

// SetLanguage changes the language later template reads are translated to.
func (s *Session) SetLanguage(language string) {
	s.Language = language
}

func (s *Session) Actor() *models.User {
	return s.User
}

func (s *Session) Template(ctx context.Context, id int64) (*models.Template, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return getTemplate(ctx, s.tx, "t.id = ?", id, s.Language)
}

func (s *Session) Record(ctx context.Context, model string, id int64) (*models.Record, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return getRecord(ctx, s.tx, model, id)
}

func (s *Session) CreateMail(ctx context.Context, mail *models.ElectronicMail) error {
	if s.closed {
		return ErrSessionClosed
	}
	return createMail(ctx, s.tx, mail)
}

func (s *Session) SetMailState(ctx context.Context, id int64, state, errMsg string) error {
	if s.closed {
		return ErrSessionClosed
	}
	return setMailState(ctx, s.tx, id, state, errMsg)
}

func (s *Session) AddEvent(ctx context.Context, event *models.HistoryEvent) error {
	if s.closed {
		return ErrSessionClosed
	}
	return createEvent(ctx, s.tx, event)
}

func (s *Session) Commit() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return s.tx.Commit()
}

// Rollback is a no-op once the session has been committed.
func (s *Session) Rollback() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
