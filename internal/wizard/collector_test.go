package wizard

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

func TestSetDataDropsPayloadAtLimit(t *testing.T) {
	c := NewCollector(10, nil, nil)

	att := models.Attachment{Name: "old.txt", Data: []byte("old")}
	outcome := c.SetData(&att, "big.bin", bytes.Repeat([]byte("x"), 10))

	assert.True(t, outcome.Dropped)
	assert.Equal(t, int64(10), outcome.Size)
	assert.Equal(t, int64(10), outcome.Limit)
	assert.Empty(t, att.Name)
	assert.Nil(t, att.Data)
}

func TestSetDataKeepsSmallPayload(t *testing.T) {
	c := NewCollector(10, nil, nil)

	var att models.Attachment
	outcome := c.SetData(&att, "note.txt", []byte("123456789"))

	assert.False(t, outcome.Dropped)
	assert.Equal(t, "note.txt", att.Name)
	assert.Equal(t, []byte("123456789"), att.Data)
}

func TestNewCollectorDefaultLimit(t *testing.T) {
	c := NewCollector(0, nil, nil)
	assert.Equal(t, int64(DefaultMaxAttachmentSize), c.maxSize)
}

func TestCollectMergesUploadsAndOriginAttachments(t *testing.T) {
	attachments := &fakeAttachments{items: []models.OriginAttachment{
		{ID: 1, Resource: "customers,1", Name: "contract.pdf", StorageKey: "k1"},
		{ID: 2, Resource: "customers,1", Name: "empty.txt", StorageKey: "k2"},
		{ID: 3, Resource: "customers,2", Name: "other.pdf", StorageKey: "k3"},
		{ID: 4, Resource: "customers,1", Name: "gone.pdf", StorageKey: "missing"},
	}}
	blobs := fakeBlobs{"k1": []byte("%PDF"), "k2": {}, "k3": []byte("nope")}
	c := NewCollector(100, attachments, blobs)

	uploads := []models.Attachment{
		{Name: "terms.txt", Data: []byte("terms")},
		{},
	}

	out, err := c.Collect(context.Background(), uploads, []int64{1, 2, 3, 4}, "customers,1")
	require.NoError(t, err)

	assert.Equal(t, []models.Attachment{
		{Name: "terms.txt", Data: []byte("terms")},
		{Name: "contract.pdf", Data: []byte("%PDF")},
	}, out)
}

func TestCollectWithoutOrigin(t *testing.T) {
	c := NewCollector(100, &fakeAttachments{}, fakeBlobs{})

	out, err := c.Collect(context.Background(), nil, []int64{1}, "")
	require.NoError(t, err)
	assert.Empty(t, out)
}
