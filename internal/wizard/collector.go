package wizard

import (
	"context"
	"errors"
	"fmt"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/storage"
)

// Outcome reports what happened to an uploaded attachment.
type Outcome struct {
	Dropped bool  `json:"dropped"`
	Size    int64 `json:"size"`
	Limit   int64 `json:"limit"`
}

type Collector struct {
	maxSize     int64
	attachments AttachmentSource
	blobs       BlobSource
}

func NewCollector(maxSize int64, attachments AttachmentSource, blobs BlobSource) *Collector {
	if maxSize <= 0 {
		maxSize = DefaultMaxAttachmentSize
	}
	return &Collector{maxSize: maxSize, attachments: attachments, blobs: blobs}
}

// SetData stores the upload on att. Payloads at or above the size limit clear
// both name and data, and the returned Outcome is marked Dropped.
func (c *Collector) SetData(att *models.Attachment, name string, data []byte) Outcome {
	outcome := Outcome{Size: int64(len(data)), Limit: c.maxSize}

	if outcome.Size >= c.maxSize {
		att.Name = ""
		att.Data = nil
		outcome.Dropped = true
		return outcome
	}

	att.Name = name
	att.Data = data
	return outcome
}

// Oversized reports an upload refused before its body could be read.
func (c *Collector) Oversized(size int64) Outcome {
	return Outcome{Dropped: true, Size: size, Limit: c.maxSize}
}

// Collect merges uploads with the selected attachments of the origin record,
// keeping only entries that carry a payload.
func (c *Collector) Collect(ctx context.Context, uploads []models.Attachment, originIDs []int64, origin string) ([]models.Attachment, error) {
	var out []models.Attachment
	for _, att := range uploads {
		if len(att.Data) > 0 {
			out = append(out, att)
		}
	}

	if origin == "" || len(originIDs) == 0 {
		return out, nil
	}

	stored, err := c.attachments.GetByIDs(ctx, origin, originIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load origin attachments: %w", err)
	}

	for _, att := range stored {
		data, err := c.blobs.DownloadFile(ctx, att.StorageKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to download attachment %d: %w", att.ID, err)
		}
		if len(data) == 0 {
			continue
		}
		out = append(out, models.Attachment{Name: att.Name, Data: data})
	}

	return out, nil
}
