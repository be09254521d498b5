// Package wizard drives the mail wizard: default field resolution, attachment
// collection, recipient validation and bounded per-record dispatch.
package wizard

import (
	"context"
	"errors"

	"godsendjoseph.dev/mail-wizard/internal/compose"
	"godsendjoseph.dev/mail-wizard/internal/mailer"
	"godsendjoseph.dev/mail-wizard/internal/models"
)

const (
	DefaultMaxDBConnections  = 50
	DefaultMaxAttachmentSize = 26214400
)

var (
	ErrTemplateDeleted = errors.New("the template linked to this wizard has been deleted")
	ErrNotOwner        = errors.New("wizard session belongs to another user")
)

type Evaluator interface {
	Evaluate(text string, record *models.Record) (string, error)
}

type TemplateSource interface {
	GetByAction(ctx context.Context, actionID int64, language string) (*models.Template, error)
	Get(ctx context.Context, id int64, language string) (*models.Template, error)
}

type RecordSource interface {
	Get(ctx context.Context, model string, id int64) (*models.Record, error)
}

type AttachmentSource interface {
	ListByResource(ctx context.Context, resource string) ([]models.OriginAttachment, error)
	GetByIDs(ctx context.Context, resource string, ids []int64) ([]models.OriginAttachment, error)
}

type BlobSource interface {
	DownloadFile(ctx context.Context, key string) ([]byte, error)
}

type MessageBuilder interface {
	Build(ctx context.Context, in compose.Input) (*compose.Message, error)
	Evaluate(values models.MailValues, record *models.Record) (models.MailValues, error)
}

type Sender interface {
	Send(ctx context.Context, states mailer.StateWriter, mails ...*models.ElectronicMail) error
}

type Notifier interface {
	NotifyWarning(title string, message string, context map[string]string) error
}

// Session is the transactional context handed to one send unit.
type Session interface {
	Actor() *models.User
	SetLanguage(language string)
	Template(ctx context.Context, id int64) (*models.Template, error)
	Record(ctx context.Context, model string, id int64) (*models.Record, error)
	CreateMail(ctx context.Context, mail *models.ElectronicMail) error
	SetMailState(ctx context.Context, id int64, state, errMsg string) error
	AddEvent(ctx context.Context, event *models.HistoryEvent) error
	Commit() error
	Rollback() error
}

// SessionFactory opens a new Session for every unit of work.
type SessionFactory func(ctx context.Context, actor *models.User, language string) (Session, error)

type StateStore interface {
	Get(ctx context.Context, id string) (*models.WizardState, error)
	Set(ctx context.Context, state *models.WizardState) error
	Delete(ctx context.Context, id string) error
}
