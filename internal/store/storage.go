package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record already exists")
	ErrDuplicateEmail     = errors.New("record with email already exists")
	ErrDuplicateUsername  = errors.New("record with username already exists")
	ErrAccountNotVerified = errors.New("account is not verified")
	ErrSessionClosed      = errors.New("session already closed")
	QueryTimeoutDuration  = time.Second * 5
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage struct {
	Users interface {
		Create(context.Context, *sql.Tx, *models.User) error
		CreateUserTx(context.Context, *models.User) error
		GetByID(context.Context, int64) (*models.User, error)
		GetByEmail(context.Context, string) (*models.User, error)
	}
	Roles interface {
		GetByName(context.Context, string) (*models.Role, error)
	}
	Templates interface {
		Create(context.Context, *models.Template) error
		GetByAction(ctx context.Context, actionID int64, language string) (*models.Template, error)
		Get(ctx context.Context, id int64, language string) (*models.Template, error)
	}
	Records interface {
		Get(ctx context.Context, model string, id int64) (*models.Record, error)
	}
	Mails interface {
		SetState(ctx context.Context, id int64, state, errMsg string) error
		StateCounts(ctx context.Context, since time.Time) ([]models.MailStateCount, error)
	}
	Attachments interface {
		Create(context.Context, *models.OriginAttachment) error
		ListByResource(ctx context.Context, resource string) ([]models.OriginAttachment, error)
		GetByIDs(ctx context.Context, resource string, ids []int64) ([]models.OriginAttachment, error)
	}

	db *sql.DB
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Users:       &UserStore{db},
		Roles:       &RoleStore{db: db},
		Templates:   &TemplateStore{db},
		Records:     &RecordStore{db},
		Mails:       &MailStore{db},
		Attachments: &AttachmentStore{db},
		db:          db,
	}
}

// Begin opens a transaction owned by a single unit of work.
func (s Storage) Begin(ctx context.Context, actor *models.User, language string) (*Session, error) {
	if s.db == nil {
		return nil, errors.New("storage has no database")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Session{tx: tx, User: actor, Language: language}, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if err := tx.Rollback(); err != nil {
			return err
		}
		return err
	}

	return tx.Commit()
}

func normalizeEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	username := parts[0]
	domain := parts[1]

	// Drop the "+tag" suffix of the local part
	if plusIndex := strings.Index(username, "+"); plusIndex != -1 {
		username = username[:plusIndex]
	}

	return strings.ToLower(username + "@" + domain)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
