package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/compose"
	"godsendjoseph.dev/mail-wizard/internal/mailer"
	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

// Job is one wizard submission.
type Job struct {
	TemplateID        int64
	Model             string
	RecordIDs         []int64
	Actor             *models.User
	Language          string
	Values            models.MailValues
	UseTemplateFields bool
	// OverrideRecipients is set when the user edited From, Sender, To, Cc or Bcc.
	OverrideRecipients bool
	Attachments        []models.Attachment
}

type UnitResult struct {
	RecordID int64
	MailID   int64
	State    string
	Err      error
}

// DispatchReport holds the group sizes in execution order and one result per record,
// in the order the records were submitted.
type DispatchReport struct {
	Groups  []int
	Results []UnitResult
}

func (r *DispatchReport) Failed() []UnitResult {
	var failed []UnitResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

type DispatcherConfig struct {
	MaxDBConnections int
}

type Dispatcher struct {
	sessions  SessionFactory
	templates TemplateSource
	records   RecordSource
	builder   MessageBuilder
	sender    Sender
	evaluator Evaluator
	notifier  Notifier
	groupSize int
	logger    *zap.SugaredLogger
}

func NewDispatcher(
	cfg DispatcherConfig,
	sessions SessionFactory,
	templates TemplateSource,
	records RecordSource,
	builder MessageBuilder,
	sender Sender,
	evaluator Evaluator,
	notifier Notifier,
	logger *zap.SugaredLogger,
) *Dispatcher {
	groupSize := cfg.MaxDBConnections
	if groupSize <= 0 {
		groupSize = DefaultMaxDBConnections
	}
	return &Dispatcher{
		sessions:  sessions,
		templates: templates,
		records:   records,
		builder:   builder,
		sender:    sender,
		evaluator: evaluator,
		notifier:  notifier,
		groupSize: groupSize,
		logger:    logger,
	}
}

// Dispatch validates overridden recipients first and then sends one mail per record.
// Records run in groups of at most groupSize concurrent units; a group is joined
// before the next one starts. A failing unit never stops the others, and once
// dispatch starts it runs to completion even if the caller's context is cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (*DispatchReport, error) {
	ctx = context.WithoutCancel(ctx)

	if err := d.checkTemplate(ctx, job.TemplateID); err != nil {
		return nil, err
	}

	if err := d.validate(ctx, job); err != nil {
		return nil, err
	}

	report := &DispatchReport{Results: make([]UnitResult, len(job.RecordIDs))}

	for start := 0; start < len(job.RecordIDs); start += d.groupSize {
		end := min(start+d.groupSize, len(job.RecordIDs))

		report.Groups = append(report.Groups, end-start)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				report.Results[slot] = d.runUnit(ctx, job, job.RecordIDs[slot])
			}(i)
		}
		wg.Wait()
	}

	d.summarize(job, report)

	return report, nil
}

func (d *Dispatcher) checkTemplate(ctx context.Context, templateID int64) error {
	tmpl, err := d.templates.Get(ctx, templateID, "")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTemplateDeleted
		}
		return err
	}
	if !tmpl.Active {
		return ErrTemplateDeleted
	}
	return nil
}

// validate evaluates the user supplied address headers for every record before
// any unit starts. Template addresses are not checked here; a bad one fails its unit.
func (d *Dispatcher) validate(ctx context.Context, job Job) error {
	if !job.OverrideRecipients {
		return nil
	}

	headers := models.MailValues{
		From:   job.Values.From,
		Sender: job.Values.Sender,
		To:     job.Values.To,
		Cc:     job.Values.Cc,
		Bcc:    job.Values.Bcc,
	}

	var problems []FieldProblem
	for _, id := range job.RecordIDs {
		record, err := d.records.Get(ctx, job.Model, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// reported by the unit itself
				continue
			}
			return fmt.Errorf("failed to load record %d: %w", id, err)
		}

		evaluated, err := d.builder.Evaluate(headers, record)
		if err != nil {
			problems = append(problems, FieldProblem{RecordID: id, Field: "headers", Message: err.Error()})
			continue
		}
		problems = append(problems, checkAddresses(id, evaluated)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (d *Dispatcher) runUnit(ctx context.Context, job Job, recordID int64) (result UnitResult) {
	result.RecordID = recordID

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("send unit for record %d panicked: %v", recordID, r)
			result.State = ""
		}
	}()

	mail, err := d.sendOne(ctx, job, recordID)
	if mail != nil {
		result.MailID = mail.ID
		result.State = mail.State
	}
	result.Err = err

	return result
}

func (d *Dispatcher) sendOne(ctx context.Context, job Job, recordID int64) (*models.ElectronicMail, error) {
	session, err := d.sessions(ctx, job.Actor, job.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Rollback(); err != nil {
			d.logger.Errorw("failed to roll back send unit", "record_id", recordID, "error", err)
		}
	}()

	record, err := session.Record(ctx, job.Model, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %d: %w", recordID, err)
	}

	tmpl, err := d.sessionTemplate(ctx, session, job.TemplateID)
	if err != nil {
		return nil, err
	}

	fallback := actorLanguage(job.Actor)
	if fallback == "" {
		fallback = job.Language
	}
	language, err := resolveLanguage(d.evaluator, tmpl, record, fallback)
	if err != nil {
		return nil, err
	}
	if language != job.Language {
		session.SetLanguage(language)
		if tmpl, err = d.sessionTemplate(ctx, session, job.TemplateID); err != nil {
			return nil, err
		}
	}

	values := job.Values
	if job.UseTemplateFields {
		values.Subject = tmpl.Subject
		values.Plain = tmpl.Plain
		values.HTML = tmpl.HTML
	}

	msg, err := d.builder.Build(ctx, compose.Input{
		Template:    tmpl,
		Record:      record,
		Values:      values,
		Attachments: job.Attachments,
		User:        session.Actor(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	mail := &models.ElectronicMail{
		MailboxID:  tmpl.MailboxID,
		TemplateID: tmpl.ID,
		Model:      job.Model,
		RecordID:   recordID,
		MessageID:  msg.MessageID,
		Subject:    msg.Subject,
		From:       msg.From,
		Recipients: msg.Recipients,
		Raw:        msg.Raw,
		State:      models.MailStateDraft,
	}
	if err := session.CreateMail(ctx, mail); err != nil {
		return nil, fmt.Errorf("failed to store mail: %w", err)
	}

	sendErr := d.sender.Send(ctx, session, mail)
	var deliveryErr *mailer.DeliveryError
	if sendErr != nil && !errors.As(sendErr, &deliveryErr) {
		// rolled back, so the mail does not exist
		return nil, sendErr
	}

	if sendErr == nil {
		event := &models.HistoryEvent{
			TemplateID: tmpl.ID,
			Model:      job.Model,
			RecordID:   recordID,
			MailID:     mail.ID,
			Subject:    mail.Subject,
		}
		if err := session.AddEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to record history event: %w", err)
		}
	}

	// a rejected mail is kept in state failed
	if err := session.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit send unit: %w", err)
	}

	return mail, sendErr
}

func (d *Dispatcher) sessionTemplate(ctx context.Context, session Session, id int64) (*models.Template, error) {
	tmpl, err := session.Template(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTemplateDeleted
		}
		return nil, err
	}
	return tmpl, nil
}

func (d *Dispatcher) summarize(job Job, report *DispatchReport) {
	failed := report.Failed()

	d.logger.Infow("wizard dispatch finished",
		"template_id", job.TemplateID,
		"records", len(job.RecordIDs),
		"groups", len(report.Groups),
		"failed", len(failed),
	)

	if len(failed) == 0 {
		return
	}

	ids := make([]string, 0, len(failed))
	for _, res := range failed {
		d.logger.Errorw("send unit failed",
			"template_id", job.TemplateID,
			"record_id", res.RecordID,
			"mail_id", res.MailID,
			"error", res.Err,
		)
		ids = append(ids, strconv.FormatInt(res.RecordID, 10))
	}

	if d.notifier == nil {
		return
	}

	message := fmt.Sprintf("%d of %d mails failed", len(failed), len(report.Results))
	fields := map[string]string{
		"Template": strconv.FormatInt(job.TemplateID, 10),
		"Model":    job.Model,
		"Records":  strings.Join(ids, ", "),
		"Error":    failed[0].Err.Error(),
	}
	if err := d.notifier.NotifyWarning("Mail wizard dispatch failures", message, fields); err != nil {
		d.logger.Errorw("failed to send slack notification", "error", err)
	}
}
