package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type TemplateStore struct {
	db *sql.DB
}

const templateColumns = `
	t.id, t.name, t.model, t.from_, t.sender, t.to_, t.cc, t.bcc, t.subject, t.plain, t.html,
	t.message_id, t.in_reply_to, t.language, t.signature, t.mailbox_id, t.action_id, t.active`

func (storage *TemplateStore) Create(ctx context.Context, tmpl *models.Template) error {
	return withTx(ctx, storage.db, func(tx *sql.Tx) error {
		query := `
		INSERT INTO templates (name, model, from_, sender, to_, cc, bcc, subject, plain, html,
			message_id, in_reply_to, language, signature, mailbox_id, action_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		var actionID sql.NullInt64
		if tmpl.ActionID != 0 {
			actionID = sql.NullInt64{Int64: tmpl.ActionID, Valid: true}
		}

		result, err := tx.ExecContext(ctx, query,
			tmpl.Name, tmpl.Model, tmpl.From, tmpl.Sender, tmpl.To, tmpl.Cc, tmpl.Bcc,
			tmpl.Subject, tmpl.Plain, tmpl.HTML, tmpl.MessageID, tmpl.InReplyTo,
			tmpl.Language, tmpl.Signature, tmpl.MailboxID, actionID, tmpl.Active,
		)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		tmpl.ID = id

		for i, rep := range tmpl.Reports {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO reports (name, extension, body, file_name) VALUES (?, ?, ?, ?)`,
				rep.Name, rep.Extension, rep.Body, rep.FileName,
			)
			if err != nil {
				return err
			}
			reportID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			tmpl.Reports[i].ID = reportID

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO template_reports (template_id, report_id, sequence) VALUES (?, ?, ?)`,
				id, reportID, i,
			); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByAction returns the active template linked to a wizard action.
func (storage *TemplateStore) GetByAction(ctx context.Context, actionID int64, language string) (*models.Template, error) {
	return getTemplate(ctx, storage.db, "t.action_id = ? AND t.active = true", actionID, language)
}

func (storage *TemplateStore) Get(ctx context.Context, id int64, language string) (*models.Template, error) {
	return getTemplate(ctx, storage.db, "t.id = ?", id, language)
}

func getTemplate(ctx context.Context, q querier, where string, arg any, language string) (*models.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM templates t WHERE %s LIMIT 1`, templateColumns, where)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tmpl := &models.Template{}
	var actionID sql.NullInt64
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&tmpl.ID,
		&tmpl.Name,
		&tmpl.Model,
		&tmpl.From,
		&tmpl.Sender,
		&tmpl.To,
		&tmpl.Cc,
		&tmpl.Bcc,
		&tmpl.Subject,
		&tmpl.Plain,
		&tmpl.HTML,
		&tmpl.MessageID,
		&tmpl.InReplyTo,
		&tmpl.Language,
		&tmpl.Signature,
		&tmpl.MailboxID,
		&actionID,
		&tmpl.Active,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	tmpl.ActionID = actionID.Int64

	if language != "" {
		translations, err := templateTranslations(ctx, q, tmpl.ID, language)
		if err != nil {
			return nil, err
		}
		tmpl = tmpl.Translated(translations)
	}

	reports, err := templateReports(ctx, q, tmpl.ID)
	if err != nil {
		return nil, err
	}
	tmpl.Reports = reports

	return tmpl, nil
}

func templateTranslations(ctx context.Context, q querier, templateID int64, language string) ([]models.TemplateTranslation, error) {
	query := `SELECT template_id, lang, field, value FROM template_translations WHERE template_id = ? AND lang = ?`

	rows, err := q.QueryContext(ctx, query, templateID, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []models.TemplateTranslation
	for rows.Next() {
		var tr models.TemplateTranslation
		if err := rows.Scan(&tr.TemplateID, &tr.Language, &tr.Field, &tr.Value); err != nil {
			return nil, err
		}
		translations = append(translations, tr)
	}

	return translations, rows.Err()
}

func templateReports(ctx context.Context, q querier, templateID int64) ([]models.Report, error) {
	query := `
		SELECT r.id, r.name, r.extension, r.body, r.file_name
		FROM reports r
		JOIN template_reports tr ON tr.report_id = r.id
		WHERE tr.template_id = ?
		ORDER BY tr.sequence, r.id`

	rows, err := q.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.Extension, &rep.Body, &rep.FileName); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}
