package store

import (
	"context"
	"database/sql"
	"time"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type MailStore struct {
	db *sql.DB
}

func (storage *MailStore) SetState(ctx context.Context, id int64, state, errMsg string) error {
	return setMailState(ctx, storage.db, id, state, errMsg)
}

// StateCounts groups the mails created since the given time by state.
func (storage *MailStore) StateCounts(ctx context.Context, since time.Time) ([]models.MailStateCount, error) {
	query := `SELECT state, COUNT(*) FROM electronic_mails WHERE created_at >= ? GROUP BY state ORDER BY state`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := storage.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.MailStateCount
	for rows.Next() {
		var c models.MailStateCount
		if err := rows.Scan(&c.State, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

func createMail(ctx context.Context, q querier, mail *models.ElectronicMail) error {
	query := `
	INSERT INTO electronic_mails (mailbox_id, template_id, model, record_id, message_id, subject,
		from_addr, recipients, raw, state, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if mail.State == "" {
		mail.State = models.MailStateDraft
	}

	result, err := q.ExecContext(ctx, query,
		mail.MailboxID,
		mail.TemplateID,
		mail.Model,
		mail.RecordID,
		mail.MessageID,
		mail.Subject,
		mail.From,
		mail.Recipients,
		mail.Raw,
		mail.State,
		mail.Error,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	mail.ID = id

	return q.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM electronic_mails WHERE id = ?`, id,
	).Scan(&mail.CreatedAt, &mail.UpdatedAt)
}

func setMailState(ctx context.Context, q querier, id int64, state, errMsg string) error {
	query := `UPDATE electronic_mails SET state = ?, error = ? WHERE id = ?`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := q.ExecContext(ctx, query, state, errMsg, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func createEvent(ctx context.Context, q querier, event *models.HistoryEvent) error {
	query := `INSERT INTO mail_events (template_id, model, record_id, mail_id, subject) VALUES (?, ?, ?, ?, ?)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := q.ExecContext(ctx, query,
		event.TemplateID, event.Model, event.RecordID, event.MailID, event.Subject,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = id

	return nil
}
