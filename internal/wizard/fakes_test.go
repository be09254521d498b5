package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"godsendjoseph.dev/mail-wizard/internal/mailer"
	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/storage"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

type fakeTemplates struct {
	byID map[int64]*models.Template
	// subjects holds translated subjects per language
	subjects map[string]string
}

func (f *fakeTemplates) lookup(id int64, language string) (*models.Template, error) {
	tmpl, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *tmpl
	if subject, ok := f.subjects[language]; ok {
		out.Subject = subject
	}
	return &out, nil
}

func (f *fakeTemplates) GetByAction(ctx context.Context, actionID int64, language string) (*models.Template, error) {
	for id, tmpl := range f.byID {
		if tmpl.ActionID == actionID && tmpl.Active {
			return f.lookup(id, language)
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeTemplates) Get(ctx context.Context, id int64, language string) (*models.Template, error) {
	return f.lookup(id, language)
}

type fakeRecords struct {
	byID map[int64]*models.Record
}

func (f *fakeRecords) Get(ctx context.Context, model string, id int64) (*models.Record, error) {
	rec, ok := f.byID[id]
	if !ok || rec.Model != model {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func customers(n int) *fakeRecords {
	recs := &fakeRecords{byID: map[int64]*models.Record{}}
	names := []string{"Ada", "Grace", "Linus", "Ken", "Rob", "Barbara"}
	for i := 1; i <= n; i++ {
		name := names[(i-1)%len(names)]
		recs.byID[int64(i)] = &models.Record{
			Model: "customers",
			ID:    int64(i),
			Values: map[string]any{
				"name":  name,
				"email": "customer" + string(rune('a'+i-1)) + "@example.com",
				"lang":  "es",
			},
		}
	}
	return recs
}

func invoiceTemplate() *models.Template {
	return &models.Template{
		ID:        10,
		Name:      "Invoice",
		Model:     "customers",
		From:      "shop@example.com",
		To:        `${record["email"]}`,
		Subject:   `Invoice for ${record["name"]}`,
		Plain:     `Hello ${record["name"]}`,
		HTML:      `<p>Hello ${record["name"]}</p>`,
		MailboxID: 1,
		ActionID:  99,
		Active:    true,
	}
}

type fakeSession struct {
	db       *fakeDB
	actor    *models.User
	language string
	mails    []*models.ElectronicMail
	events   []*models.HistoryEvent
	states   map[int64]string
}

func (s *fakeSession) Actor() *models.User         { return s.actor }
func (s *fakeSession) SetLanguage(language string) { s.language = language }
func (s *fakeSession) Template(ctx context.Context, id int64) (*models.Template, error) {
	return s.db.templates.Get(ctx, id, s.language)
}
func (s *fakeSession) Record(ctx context.Context, model string, id int64) (*models.Record, error) {
	return s.db.records.Get(ctx, model, id)
}
func (s *fakeSession) CreateMail(ctx context.Context, mail *models.ElectronicMail) error {
	mail.ID = s.db.nextID.Add(1)
	s.mails = append(s.mails, mail)
	return nil
}
func (s *fakeSession) SetMailState(ctx context.Context, id int64, state, errMsg string) error {
	s.states[id] = state
	return nil
}
func (s *fakeSession) AddEvent(ctx context.Context, event *models.HistoryEvent) error {
	s.events = append(s.events, event)
	return nil
}
func (s *fakeSession) Commit() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.committed = append(s.db.committed, s)
	return nil
}
func (s *fakeSession) Rollback() error { return nil }

type fakeDB struct {
	templates *fakeTemplates
	records   *fakeRecords
	nextID    atomic.Int64
	opened    atomic.Int64
	mu        sync.Mutex
	committed []*fakeSession
}

func (db *fakeDB) factory(ctx context.Context, actor *models.User, language string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.opened.Add(1)
	return &fakeSession{db: db, actor: actor, language: language, states: map[int64]string{}}, nil
}

func (db *fakeDB) committedMails() []*models.ElectronicMail {
	db.mu.Lock()
	defer db.mu.Unlock()
	var mails []*models.ElectronicMail
	for _, s := range db.committed {
		mails = append(mails, s.mails...)
	}
	return mails
}

// fakeSender tracks how many sends run at the same time.
type fakeSender struct {
	delay   time.Duration
	failFor map[int64]bool
	panicOn map[int64]bool
	onSend  func()
	active  atomic.Int64
	peak    atomic.Int64
	calls   atomic.Int64
}

func (f *fakeSender) Send(ctx context.Context, states mailer.StateWriter, mails ...*models.ElectronicMail) error {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.onSend != nil {
		f.onSend()
	}
	time.Sleep(f.delay)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, mail := range mails {
		if f.panicOn[mail.RecordID] {
			panic("transport exploded")
		}
		if f.failFor[mail.RecordID] {
			mail.State = models.MailStateFailed
			_ = states.SetMailState(ctx, mail.ID, mail.State, "rejected")
			return &mailer.DeliveryError{MailID: mail.ID, Err: errors.New("550 rejected")}
		}
		mail.State = models.MailStateSent
		if err := states.SetMailState(ctx, mail.ID, mail.State, ""); err != nil {
			return err
		}
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	warnings []string
}

func (f *fakeNotifier) NotifyWarning(title string, message string, context map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, message)
	return nil
}

type fakeAttachments struct {
	items []models.OriginAttachment
}

func (f *fakeAttachments) ListByResource(ctx context.Context, resource string) ([]models.OriginAttachment, error) {
	var out []models.OriginAttachment
	for _, att := range f.items {
		if att.Resource == resource {
			out = append(out, att)
		}
	}
	return out, nil
}

func (f *fakeAttachments) GetByIDs(ctx context.Context, resource string, ids []int64) ([]models.OriginAttachment, error) {
	wanted := map[int64]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.OriginAttachment
	for _, att := range f.items {
		if att.Resource == resource && wanted[att.ID] {
			out = append(out, att)
		}
	}
	return out, nil
}

type fakeBlobs map[string][]byte

func (f fakeBlobs) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	data, ok := f[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

type memoryStates struct {
	mu    sync.Mutex
	items map[string]models.WizardState
}

var errStateMissing = errors.New("missing")

func (m *memoryStates) Get(ctx context.Context, id string) (*models.WizardState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.items[id]
	if !ok {
		return nil, errStateMissing
	}
	return &state, nil
}

func (m *memoryStates) Set(ctx context.Context, state *models.WizardState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string]models.WizardState{}
	}
	m.items[state.ID] = *state
	return nil
}

func (m *memoryStates) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}
