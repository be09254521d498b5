package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client, err := NewLocalClient(t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)

	key := GenerateFileKey("attachments", "Quote.PDF")
	assert.True(t, strings.HasPrefix(key, "attachments/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	res, err := client.UploadFile(ctx, key, strings.NewReader("payload"), "application/pdf", 7)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/"+key, res.URL)

	data, err := client.DownloadFile(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, client.DeleteFile(ctx, key))
	_, err = client.DownloadFile(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalClient_KeysStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	client, err := NewLocalClient(dir, "")
	require.NoError(t, err)

	path, err := client.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))

	_, err = client.path("/")
	assert.Error(t, err)
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", GetContentType("invoice.pdf"))
	assert.Equal(t, "application/octet-stream", GetContentType("blob.unknownext"))
	assert.Equal(t, "application/octet-stream", GetContentType("noext"))
}
