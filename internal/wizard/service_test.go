package wizard

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/compose"
	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/report"
	"godsendjoseph.dev/mail-wizard/internal/tags"
)

type serviceFixture struct {
	db      *fakeDB
	states  *memoryStates
	sender  *fakeSender
	service *Service
}

func newServiceFixture(records int) *serviceFixture {
	tmpl := invoiceTemplate()
	db := &fakeDB{
		templates: &fakeTemplates{byID: map[int64]*models.Template{tmpl.ID: tmpl}},
		records:   customers(records),
	}
	evaluator := tags.New()
	builder := compose.NewBuilder(evaluator, report.NewTextRenderer(), time.UTC)
	sender := &fakeSender{}
	logger := zap.NewNop().Sugar()

	attachments := &fakeAttachments{items: []models.OriginAttachment{
		{ID: 7, Resource: "customers,1", Name: "contract.pdf", StorageKey: "k7"},
	}}
	blobs := fakeBlobs{"k7": []byte("%PDF")}

	states := &memoryStates{}
	service := NewService(
		NewResolver(db.templates, db.records, evaluator),
		NewCollector(16, attachments, blobs),
		NewDispatcher(DispatcherConfig{MaxDBConnections: 2}, db.factory, db.templates, db.records, builder, sender, evaluator, nil, logger),
		states,
		attachments,
		logger,
	)
	return &serviceFixture{db: db, states: states, sender: sender, service: service}
}

func TestServiceSingleRecordFlow(t *testing.T) {
	f := newServiceFixture(1)
	ctx := context.Background()
	actor := &models.User{ID: 5, Language: "en"}

	state, err := f.service.Open(ctx, 99, []int64{1}, actor)
	require.NoError(t, err)
	assert.Equal(t, "customers,1", state.Origin)
	assert.Equal(t, "Invoice for Ada", state.Values.Subject)

	origin, err := f.service.OriginAttachments(ctx, state.ID, actor)
	require.NoError(t, err)
	require.Len(t, origin, 1)

	values := state.Values
	values.Subject = "Edited subject"
	edited, err := f.service.Update(ctx, state.ID, actor, Update{Values: &values, OriginAttachmentIDs: []int64{7}})
	require.NoError(t, err)
	assert.False(t, edited.RecipientsEdited)

	_, outcome, err := f.service.AddAttachment(ctx, state.ID, actor, "huge.bin", bytes.Repeat([]byte("x"), 16))
	require.NoError(t, err)
	assert.True(t, outcome.Dropped)

	updated, outcome, err := f.service.AddAttachment(ctx, state.ID, actor, "note.txt", []byte("hi"))
	require.NoError(t, err)
	assert.False(t, outcome.Dropped)
	assert.Len(t, updated.Attachments, 1)

	report, err := f.service.Send(ctx, state.ID, actor)
	require.NoError(t, err)
	assert.Empty(t, report.Failed())

	mails := f.db.committedMails()
	require.Len(t, mails, 1)
	assert.Equal(t, "Edited subject", mails[0].Subject)
	assert.Contains(t, string(mails[0].Raw), `filename=note.txt`)
	assert.Contains(t, string(mails[0].Raw), `filename=contract.pdf`)

	_, err = f.service.Get(ctx, state.ID, actor)
	assert.ErrorIs(t, err, errStateMissing)
}

func TestServiceRejectsOtherUsers(t *testing.T) {
	f := newServiceFixture(2)
	ctx := context.Background()

	state, err := f.service.Open(ctx, 99, []int64{1, 2}, &models.User{ID: 1})
	require.NoError(t, err)
	assert.True(t, state.UseTemplateFields)

	_, err = f.service.Get(ctx, state.ID, &models.User{ID: 2})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, f.service.Cancel(ctx, state.ID, &models.User{ID: 2}), ErrNotOwner)

	require.NoError(t, f.service.Cancel(ctx, state.ID, &models.User{ID: 1}))
	_, err = f.service.Get(ctx, state.ID, &models.User{ID: 1})
	assert.ErrorIs(t, err, errStateMissing)
}

func TestServiceKeepsWizardOpenOnValidationError(t *testing.T) {
	f := newServiceFixture(2)
	ctx := context.Background()
	actor := &models.User{ID: 1}

	state, err := f.service.Open(ctx, 99, []int64{1, 2}, actor)
	require.NoError(t, err)

	values := state.Values
	values.To = "not an address"
	edited, err := f.service.Update(ctx, state.ID, actor, Update{Values: &values})
	require.NoError(t, err)
	assert.True(t, edited.RecipientsEdited)

	_, err = f.service.Send(ctx, state.ID, actor)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = f.service.Get(ctx, state.ID, actor)
	assert.NoError(t, err)
}

func TestServiceSendWithoutRecords(t *testing.T) {
	f := newServiceFixture(0)
	ctx := context.Background()
	actor := &models.User{ID: 1}

	state, err := f.service.Open(ctx, 99, nil, actor)
	require.NoError(t, err)

	report, err := f.service.Send(ctx, state.ID, actor)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Zero(t, f.sender.calls.Load())
}

func TestServiceSendFinishesAfterRequestIsCancelled(t *testing.T) {
	f := newServiceFixture(4)
	actor := &models.User{ID: 1}

	state, err := f.service.Open(context.Background(), 99, recordIDs(4), actor)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sender.delay = 5 * time.Millisecond
	f.sender.onSend = cancel

	report, err := f.service.Send(ctx, state.ID, actor)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2}, report.Groups)
	assert.Empty(t, report.Failed())
	assert.Equal(t, int64(4), f.sender.calls.Load())
	assert.Len(t, f.db.committedMails(), 4)

	_, err = f.service.Get(context.Background(), state.ID, actor)
	assert.ErrorIs(t, err, errStateMissing)
}

func TestServiceDropAttachmentKeepsState(t *testing.T) {
	f := newServiceFixture(1)
	ctx := context.Background()
	actor := &models.User{ID: 1}

	state, err := f.service.Open(ctx, 99, []int64{1}, actor)
	require.NoError(t, err)
	_, _, err = f.service.AddAttachment(ctx, state.ID, actor, "note.txt", []byte("hi"))
	require.NoError(t, err)

	kept, outcome, err := f.service.DropAttachment(ctx, state.ID, actor, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Dropped: true, Size: 1 << 20, Limit: 16}, outcome)
	require.Len(t, kept.Attachments, 1)

	_, _, err = f.service.DropAttachment(ctx, state.ID, &models.User{ID: 2}, 1<<20)
	assert.ErrorIs(t, err, ErrNotOwner)
}
