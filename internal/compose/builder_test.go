package compose

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/report"
	"godsendjoseph.dev/mail-wizard/internal/tags"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		loc = time.UTC
	}
	b := NewBuilder(tags.New(), report.NewTextRenderer(), loc)
	b.now = func() time.Time { return time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC) }
	return b
}

func customer() *models.Record {
	return &models.Record{
		Model: "customers",
		ID:    7,
		Values: map[string]any{
			"name":   "Jane Doe",
			"email":  "jane@example.com",
			"number": "INV-1",
		},
	}
}

func readMessage(t *testing.T, raw []byte) *message.Entity {
	t.Helper()
	entity, err := message.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	return entity
}

type part struct {
	contentType string
	disposition string
	filename    string
	body        string
	children    []part
}

func walk(t *testing.T, entity *message.Entity) part {
	t.Helper()
	mediaType, _, err := entity.Header.ContentType()
	require.NoError(t, err)

	p := part{contentType: mediaType}
	p.disposition, _, _ = entity.Header.ContentDisposition()
	if p.disposition == "attachment" {
		ah := mail.AttachmentHeader{Header: entity.Header}
		p.filename, _ = ah.Filename()
	}

	mr := entity.MultipartReader()
	if mr == nil {
		body, err := io.ReadAll(entity.Body)
		require.NoError(t, err)
		p.body = string(body)
		return p
	}

	for {
		child, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		p.children = append(p.children, walk(t, child))
	}
	return p
}

func TestBuildBothBodiesNestsAlternative(t *testing.T) {
	b := newTestBuilder(t)

	msg, err := b.Build(context.Background(), Input{
		Template: &models.Template{ID: 1},
		Record:   customer(),
		Values: models.MailValues{
			From:    "Shop <shop@example.com>",
			To:      `${record["email"]}`,
			Subject: `Hello ${record["name"]}`,
			Plain:   `Dear ${record["name"]}`,
			HTML:    `<p>Dear ${record["name"]}</p>`,
		},
	})
	require.NoError(t, err)

	root := walk(t, readMessage(t, msg.Raw))
	assert.Equal(t, "multipart/mixed", root.contentType)
	require.Len(t, root.children, 1)

	alt := root.children[0]
	assert.Equal(t, "multipart/alternative", alt.contentType)
	require.Len(t, alt.children, 2)
	assert.Equal(t, "text/plain", alt.children[0].contentType)
	assert.Equal(t, "Dear Jane Doe", alt.children[0].body)
	assert.Equal(t, "text/html", alt.children[1].contentType)
	assert.Equal(t, "<html><head></head><body><p>Dear Jane Doe</p></body></html>", alt.children[1].body)

	assert.Equal(t, "shop@example.com", msg.From)
	assert.Equal(t, []string{"jane@example.com"}, msg.Recipients)
	assert.Equal(t, "Hello Jane Doe", msg.Subject)
}

func TestBuildSingleBodyHasOneTopLevelPart(t *testing.T) {
	b := newTestBuilder(t)

	for _, values := range []models.MailValues{
		{From: "shop@example.com", To: "jane@example.com", Plain: "only plain"},
		{From: "shop@example.com", To: "jane@example.com", HTML: "<b>only html</b>"},
	} {
		msg, err := b.Build(context.Background(), Input{
			Template: &models.Template{},
			Record:   customer(),
			Values:   values,
		})
		require.NoError(t, err)

		root := walk(t, readMessage(t, msg.Raw))
		require.Len(t, root.children, 1)
		assert.Empty(t, root.children[0].children)
		assert.True(t, strings.HasPrefix(root.children[0].contentType, "text/"))
	}
}

func TestBuildHeaders(t *testing.T) {
	b := newTestBuilder(t)

	msg, err := b.Build(context.Background(), Input{
		Template: &models.Template{},
		Record:   customer(),
		Values: models.MailValues{
			From:    "shop@example.com",
			To:      "jane@example.com",
			Subject: `Factura número ${record["number"]}`,
			Plain:   "body",
		},
	})
	require.NoError(t, err)

	h := mail.Header{Header: readMessage(t, msg.Raw).Header}

	subject, err := h.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Factura número INV-1", subject)
	assert.Contains(t, string(msg.Raw), "=?utf-8?")

	id, err := h.MessageID()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@example.com"))
	assert.Equal(t, msg.MessageID, id)

	assert.False(t, h.Has("In-Reply-To"))
	assert.False(t, h.Has("Cc"))
	assert.False(t, h.Has("Bcc"))
	assert.False(t, h.Has("Sender"))

	date, err := h.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)))
}

func TestBuildOptionalHeaders(t *testing.T) {
	b := newTestBuilder(t)

	msg, err := b.Build(context.Background(), Input{
		Template: &models.Template{},
		Record:   customer(),
		Values: models.MailValues{
			From:      "shop@example.com",
			Sender:    "robot@example.com",
			To:        "jane@example.com",
			Cc:        "boss@example.com",
			Bcc:       "audit@example.com, boss@example.com",
			MessageID: "<order-${id}@shop.example.com>",
			InReplyTo: "<thread-1@shop.example.com>",
			Plain:     "body",
		},
	})
	require.NoError(t, err)

	h := mail.Header{Header: readMessage(t, msg.Raw).Header}

	id, err := h.MessageID()
	require.NoError(t, err)
	assert.Equal(t, "order-7@shop.example.com", id)

	replyTo, err := h.MsgIDList("In-Reply-To")
	require.NoError(t, err)
	assert.Equal(t, []string{"thread-1@shop.example.com"}, replyTo)

	assert.True(t, h.Has("Sender"))
	assert.True(t, h.Has("Cc"))
	assert.True(t, h.Has("Bcc"))
	assert.Equal(t, []string{"jane@example.com", "boss@example.com", "audit@example.com"}, msg.Recipients)
}

func TestBuildPlainSignatureConvertedForHTML(t *testing.T) {
	b := newTestBuilder(t)

	msg, err := b.Build(context.Background(), Input{
		Template: &models.Template{Signature: true},
		Record:   customer(),
		User:     &models.User{Signature: "Jane\nSales team"},
		Values: models.MailValues{
			From:  "shop@example.com",
			To:    "jane@example.com",
			Plain: "Hello",
			HTML:  "<p>Hello</p>",
		},
	})
	require.NoError(t, err)

	alt := walk(t, readMessage(t, msg.Raw)).children[0]
	assert.Equal(t, "Hello\n--\nJane\nSales team", alt.children[0].body)
	assert.Contains(t, alt.children[1].body, "Jane<br/>Sales team")
}

func TestBuildSignatureSkippedWhenTemplateDisablesIt(t *testing.T) {
	b := newTestBuilder(t)

	msg, err := b.Build(context.Background(), Input{
		Template: &models.Template{Signature: false},
		Record:   customer(),
		User:     &models.User{Signature: "Jane"},
		Values:   models.MailValues{From: "shop@example.com", To: "jane@example.com", Plain: "Hello"},
	})
	require.NoError(t, err)

	root := walk(t, readMessage(t, msg.Raw))
	assert.Equal(t, "Hello", root.children[0].body)
}

func TestBuildAttachesReportsAndUploads(t *testing.T) {
	b := newTestBuilder(t)

	msg, err := b.Build(context.Background(), Input{
		Template: &models.Template{
			Reports: []models.Report{{
				Name:      "invoice",
				Extension: "json",
				Body:      `{"number":"{{.Record.number}}"}`,
				FileName:  `invoice-${record["number"]}`,
			}},
		},
		Record:      customer(),
		Values:      models.MailValues{From: "shop@example.com", To: "jane@example.com", Plain: "see attached"},
		Attachments: []models.Attachment{{Name: "terms.pdf", Data: []byte("%PDF-1.4")}},
	})
	require.NoError(t, err)

	root := walk(t, readMessage(t, msg.Raw))
	require.Len(t, root.children, 3)

	rep := root.children[1]
	assert.Equal(t, "attachment", rep.disposition)
	assert.Equal(t, "invoice-INV-1.json", rep.filename)
	assert.Equal(t, "application/json", rep.contentType)
	assert.Equal(t, `{"number":"INV-1"}`, rep.body)

	upload := root.children[2]
	assert.Equal(t, "terms.pdf", upload.filename)
	assert.Equal(t, "application/pdf", upload.contentType)
	assert.Equal(t, "%PDF-1.4", upload.body)
}

func TestBuildRejectsMalformedAddress(t *testing.T) {
	b := newTestBuilder(t)

	_, err := b.Build(context.Background(), Input{
		Template: &models.Template{},
		Record:   customer(),
		Values:   models.MailValues{From: "shop@example.com", To: "not an address", Plain: "x"},
	})

	var addrErr *AddressError
	require.ErrorAs(t, err, &addrErr)
	assert.Equal(t, "To", addrErr.Field)
}
