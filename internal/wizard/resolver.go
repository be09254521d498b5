package wizard

import (
	"context"
	"errors"
	"fmt"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

// Defaults are the initial wizard field values for a set of records.
type Defaults struct {
	TemplateID        int64
	Model             string
	Language          string
	Values            models.MailValues
	UseTemplateFields bool
	Total             int
	Origin            string
}

type Resolver struct {
	templates TemplateSource
	records   RecordSource
	evaluator Evaluator
}

func NewResolver(templates TemplateSource, records RecordSource, evaluator Evaluator) *Resolver {
	return &Resolver{templates: templates, records: records, evaluator: evaluator}
}

// Defaults resolves the wizard fields for the given records. With more than one
// record the raw template text is returned and the template is used as-is on send;
// with a single record the fields are evaluated against it so they can be edited.
func (r *Resolver) Defaults(ctx context.Context, actionID int64, recordIDs []int64, actor *models.User) (*Defaults, error) {
	if len(recordIDs) == 0 {
		return &Defaults{}, nil
	}

	tmpl, err := r.template(ctx, actionID, "")
	if err != nil {
		return nil, err
	}

	record, err := r.records.Get(ctx, tmpl.Model, recordIDs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load record %d: %w", recordIDs[0], err)
	}

	language, err := resolveLanguage(r.evaluator, tmpl, record, actorLanguage(actor))
	if err != nil {
		return nil, err
	}

	if language != "" {
		if tmpl, err = r.template(ctx, actionID, language); err != nil {
			return nil, err
		}
	}

	defaults := &Defaults{
		TemplateID: tmpl.ID,
		Model:      tmpl.Model,
		Language:   language,
		Total:      len(recordIDs),
	}

	raw := templateValues(tmpl)
	if defaults.Total > 1 {
		defaults.Values = raw
		defaults.UseTemplateFields = true
		return defaults, nil
	}

	evaluated, err := evaluateValues(r.evaluator, raw, record)
	if err != nil {
		return nil, err
	}
	defaults.Values = evaluated
	defaults.Origin = record.Resource()

	return defaults, nil
}

func (r *Resolver) template(ctx context.Context, actionID int64, language string) (*models.Template, error) {
	tmpl, err := r.templates.GetByAction(ctx, actionID, language)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTemplateDeleted
		}
		return nil, err
	}
	if !tmpl.Active {
		return nil, ErrTemplateDeleted
	}
	return tmpl, nil
}

// resolveLanguage evaluates the template's language expression against record,
// falling back to the given language when it is unset or evaluates empty.
func resolveLanguage(evaluator Evaluator, tmpl *models.Template, record *models.Record, fallback string) (string, error) {
	if tmpl.Language == "" {
		return fallback, nil
	}
	language, err := evaluator.Evaluate(tmpl.Language, record)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate template language: %w", err)
	}
	if language == "" {
		return fallback, nil
	}
	return language, nil
}

func actorLanguage(actor *models.User) string {
	if actor == nil {
		return ""
	}
	return actor.Language
}

// templateValues copies the template text; optional headers stay empty unless set.
func templateValues(tmpl *models.Template) models.MailValues {
	values := models.MailValues{
		From:      tmpl.From,
		To:        tmpl.To,
		Subject:   tmpl.Subject,
		Plain:     tmpl.Plain,
		HTML:      tmpl.HTML,
		MessageID: tmpl.MessageID,
	}
	if tmpl.Sender != "" {
		values.Sender = tmpl.Sender
	}
	if tmpl.InReplyTo != "" {
		values.InReplyTo = tmpl.InReplyTo
	}
	if tmpl.Cc != "" {
		values.Cc = tmpl.Cc
	}
	if tmpl.Bcc != "" {
		values.Bcc = tmpl.Bcc
	}
	return values
}

func evaluateValues(evaluator Evaluator, v models.MailValues, record *models.Record) (models.MailValues, error) {
	fields := []*string{
		&v.From, &v.Sender, &v.To, &v.Cc, &v.Bcc,
		&v.Subject, &v.Plain, &v.HTML, &v.MessageID, &v.InReplyTo,
	}
	for _, field := range fields {
		if *field == "" {
			continue
		}
		evaluated, err := evaluator.Evaluate(*field, record)
		if err != nil {
			return models.MailValues{}, err
		}
		*field = evaluated
	}
	return v, nil
}
