package store

import (
	"context"
	"database/sql"
	"fmt"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

type AttachmentStore struct {
	db *sql.DB
}

func (storage *AttachmentStore) Create(ctx context.Context, att *models.OriginAttachment) error {
	query := `INSERT INTO attachments (resource, name, storage_key, size) VALUES (?, ?, ?, ?)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := storage.db.ExecContext(ctx, query, att.Resource, att.Name, att.StorageKey, att.Size)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	att.ID = id

	return nil
}

func (storage *AttachmentStore) ListByResource(ctx context.Context, resource string) ([]models.OriginAttachment, error) {
	query := `SELECT id, resource, name, storage_key, size FROM attachments WHERE resource = ? ORDER BY id`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return queryAttachments(ctx, storage.db, query, resource)
}

// GetByIDs returns the listed attachments that belong to resource; others are ignored.
func (storage *AttachmentStore) GetByIDs(ctx context.Context, resource string, ids []int64) ([]models.OriginAttachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT id, resource, name, storage_key, size FROM attachments WHERE resource = ? AND id IN (%s) ORDER BY id`,
		placeholders(len(ids)),
	)

	args := make([]any, 0, len(ids)+1)
	args = append(args, resource)
	for _, id := range ids {
		args = append(args, id)
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return queryAttachments(ctx, storage.db, query, args...)
}

func queryAttachments(ctx context.Context, q querier, query string, args ...any) ([]models.OriginAttachment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.OriginAttachment
	for rows.Next() {
		var att models.OriginAttachment
		if err := rows.Scan(&att.ID, &att.Resource, &att.Name, &att.StorageKey, &att.Size); err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}

	return attachments, rows.Err()
}
