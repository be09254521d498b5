package wizard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

// Update carries the fields a user may change while the wizard is open.
// Nil fields are left untouched.
type Update struct {
	Values              *models.MailValues
	UseTemplateFields   *bool
	OriginAttachmentIDs []int64
}

// Service runs the wizard flow: open, edit, attach, then send or cancel.
type Service struct {
	resolver    *Resolver
	collector   *Collector
	dispatcher  *Dispatcher
	states      StateStore
	attachments AttachmentSource
	logger      *zap.SugaredLogger
}

func NewService(
	resolver *Resolver,
	collector *Collector,
	dispatcher *Dispatcher,
	states StateStore,
	attachments AttachmentSource,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		resolver:    resolver,
		collector:   collector,
		dispatcher:  dispatcher,
		states:      states,
		attachments: attachments,
		logger:      logger,
	}
}

func (s *Service) Open(ctx context.Context, actionID int64, recordIDs []int64, actor *models.User) (*models.WizardState, error) {
	defaults, err := s.resolver.Defaults(ctx, actionID, recordIDs, actor)
	if err != nil {
		return nil, err
	}

	state := &models.WizardState{
		ID:                uuid.New().String(),
		ActionID:          actionID,
		TemplateID:        defaults.TemplateID,
		Model:             defaults.Model,
		RecordIDs:         recordIDs,
		UserID:            actor.ID,
		Language:          defaults.Language,
		Values:            defaults.Values,
		UseTemplateFields: defaults.UseTemplateFields,
		Total:             defaults.Total,
		Origin:            defaults.Origin,
	}

	if err := s.states.Set(ctx, state); err != nil {
		return nil, err
	}

	s.logger.Infow("wizard opened", "wizard_id", state.ID, "action_id", actionID, "records", state.Total)
	return state, nil
}

func (s *Service) Get(ctx context.Context, id string, actor *models.User) (*models.WizardState, error) {
	state, err := s.states.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.UserID != actor.ID {
		return nil, ErrNotOwner
	}
	return state, nil
}

func (s *Service) Update(ctx context.Context, id string, actor *models.User, update Update) (*models.WizardState, error) {
	state, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if update.Values != nil {
		if !update.Values.SameAddresses(state.Values) {
			state.RecipientsEdited = true
		}
		state.Values = *update.Values
	}
	if update.UseTemplateFields != nil {
		state.UseTemplateFields = *update.UseTemplateFields
	}
	if update.OriginAttachmentIDs != nil {
		state.OriginAttachmentIDs = update.OriginAttachmentIDs
	}

	if err := s.states.Set(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// AddAttachment uploads a file to the wizard. Oversized files are not kept and
// the returned Outcome says so.
func (s *Service) AddAttachment(ctx context.Context, id string, actor *models.User, name string, data []byte) (*models.WizardState, Outcome, error) {
	state, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, Outcome{}, err
	}

	var att models.Attachment
	outcome := s.collector.SetData(&att, name, data)
	if outcome.Dropped {
		s.logger.Infow("attachment dropped", "wizard_id", id, "size", outcome.Size, "limit", outcome.Limit)
		return state, outcome, nil
	}

	state.Attachments = append(state.Attachments, att)
	if err := s.states.Set(ctx, state); err != nil {
		return nil, Outcome{}, err
	}
	return state, outcome, nil
}

// DropAttachment reports an upload of size bytes that the transport refused
// to read. The wizard state is left as it was.
func (s *Service) DropAttachment(ctx context.Context, id string, actor *models.User, size int64) (*models.WizardState, Outcome, error) {
	state, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, Outcome{}, err
	}

	outcome := s.collector.Oversized(size)
	s.logger.Infow("attachment dropped", "wizard_id", id, "size", outcome.Size, "limit", outcome.Limit)
	return state, outcome, nil
}

func (s *Service) OriginAttachments(ctx context.Context, id string, actor *models.User) ([]models.OriginAttachment, error) {
	state, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if state.Origin == "" {
		return []models.OriginAttachment{}, nil
	}
	return s.attachments.ListByResource(ctx, state.Origin)
}

// Send dispatches the wizard and closes it. A validation failure leaves the
// wizard open so the values can be corrected.
func (s *Service) Send(ctx context.Context, id string, actor *models.User) (*DispatchReport, error) {
	state, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if state.Total == 0 {
		if err := s.states.Delete(ctx, id); err != nil {
			return nil, err
		}
		return &DispatchReport{}, nil
	}

	attachments, err := s.collector.Collect(ctx, state.Attachments, state.OriginAttachmentIDs, state.Origin)
	if err != nil {
		return nil, err
	}

	// the batch outlives the request that started it
	ctx = context.WithoutCancel(ctx)

	report, err := s.dispatcher.Dispatch(ctx, Job{
		TemplateID:         state.TemplateID,
		Model:              state.Model,
		RecordIDs:          state.RecordIDs,
		Actor:              actor,
		Language:           state.Language,
		Values:             state.Values,
		UseTemplateFields:  state.UseTemplateFields,
		OverrideRecipients: state.RecipientsEdited,
		Attachments:        attachments,
	})
	if err != nil {
		return nil, err
	}

	if err := s.states.Delete(ctx, id); err != nil {
		s.logger.Errorw("failed to delete wizard state", "wizard_id", id, "error", err)
	}

	return report, nil
}

func (s *Service) Cancel(ctx context.Context, id string, actor *models.User) error {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return err
	}
	return s.states.Delete(ctx, id)
}
