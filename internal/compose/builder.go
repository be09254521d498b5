// Package compose assembles the MIME message sent for one record.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/report"
	"godsendjoseph.dev/mail-wizard/internal/storage"
)

const htmlEnvelope = "<html><head></head><body>%s</body></html>"

type Evaluator interface {
	Evaluate(text string, record *models.Record) (string, error)
}

type Input struct {
	Template    *models.Template
	Record      *models.Record
	Values      models.MailValues
	Attachments []models.Attachment
	// User is the sending user, whose signature may be appended.
	User *models.User
}

// Message is a built mail ready to be persisted and delivered.
type Message struct {
	Raw        []byte
	From       string
	Recipients []string
	MessageID  string
	Subject    string
}

type Builder struct {
	evaluator Evaluator
	reports   report.Renderer
	location  *time.Location
	now       func() time.Time
}

func NewBuilder(evaluator Evaluator, reports report.Renderer, location *time.Location) *Builder {
	if location == nil {
		location = time.UTC
	}
	return &Builder{
		evaluator: evaluator,
		reports:   reports,
		location:  location,
		now:       time.Now,
	}
}

// Evaluate returns v with every field evaluated against record.
func (b *Builder) Evaluate(v models.MailValues, record *models.Record) (models.MailValues, error) {
	fields := []*string{
		&v.From, &v.Sender, &v.To, &v.Cc, &v.Bcc,
		&v.Subject, &v.Plain, &v.HTML, &v.MessageID, &v.InReplyTo,
	}
	for _, field := range fields {
		evaluated, err := b.evaluator.Evaluate(*field, record)
		if err != nil {
			return models.MailValues{}, err
		}
		*field = evaluated
	}
	return v, nil
}

func (b *Builder) Build(ctx context.Context, in Input) (*Message, error) {
	if in.Template == nil {
		return nil, fmt.Errorf("compose: template is required")
	}

	values, err := b.Evaluate(in.Values, in.Record)
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.Set("MIME-Version", "1.0")
	h.SetDate(b.now().In(b.location))

	from, err := parseAddress("From", values.From)
	if err != nil {
		return nil, err
	}
	h.SetAddressList("From", listOf(from))

	if values.Sender != "" {
		sender, err := parseAddress("Sender", values.Sender)
		if err != nil {
			return nil, err
		}
		h.SetAddressList("Sender", listOf(sender))
	}

	to, err := parseAddressList("To", values.To)
	if err != nil {
		return nil, err
	}
	h.SetAddressList("To", to)

	cc, err := parseAddressList("Cc", values.Cc)
	if err != nil {
		return nil, err
	}
	if len(cc) > 0 {
		h.SetAddressList("Cc", cc)
	}

	bcc, err := parseAddressList("Bcc", values.Bcc)
	if err != nil {
		return nil, err
	}
	if len(bcc) > 0 {
		h.SetAddressList("Bcc", bcc)
	}

	messageID := trimMsgID(values.MessageID)
	if messageID == "" {
		messageID = generateMessageID(from)
	}
	h.SetMessageID(messageID)

	if inReplyTo := trimMsgID(values.InReplyTo); inReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{inReplyTo})
	}

	h.SetSubject(values.Subject)

	plain, html := values.Plain, values.HTML
	if in.Template.Signature && in.User != nil {
		plain, html = appendSignature(plain, html, in.User)
	}
	if html != "" {
		html = fmt.Sprintf(htmlEnvelope, html)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	if err := writeBodies(mw, plain, html); err != nil {
		return nil, err
	}

	for _, rep := range in.Template.Reports {
		rendered, err := b.reports.Render(ctx, rep, in.Record)
		if err != nil {
			return nil, err
		}

		filename, err := b.reportFilename(rendered, in.Record)
		if err != nil {
			return nil, err
		}
		if err := writeAttachment(mw, filename, rendered.Data); err != nil {
			return nil, err
		}
	}

	for _, att := range in.Attachments {
		if err := writeAttachment(mw, att.Name, att.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}

	return &Message{
		Raw:        buf.Bytes(),
		From:       addressOf(from),
		Recipients: recipients(to, cc, bcc),
		MessageID:  messageID,
		Subject:    values.Subject,
	}, nil
}

func (b *Builder) reportFilename(rendered *report.Rendered, record *models.Record) (string, error) {
	name := rendered.BaseName
	if rendered.FileName != "" {
		evaluated, err := b.evaluator.Evaluate(rendered.FileName, record)
		if err != nil {
			return "", err
		}
		if evaluated != "" {
			name = evaluated
		}
	}
	return name + "." + rendered.Extension, nil
}

func appendSignature(plain, html string, user *models.User) (string, string) {
	if plain != "" && user.Signature != "" {
		plain = plain + "\n--\n" + user.Signature
	}

	if html != "" {
		signature := user.SignatureHTML
		if signature == "" && user.Signature != "" {
			signature = strings.ReplaceAll(user.Signature, "\n", "<br/>")
		}
		if signature != "" {
			html = html + "<br/>--<br/>" + signature
		}
	}

	return plain, html
}

func writeBodies(mw *mail.Writer, plain, html string) error {
	switch {
	case plain != "" && html != "":
		iw, err := mw.CreateInline()
		if err != nil {
			return fmt.Errorf("failed to create alternative part: %w", err)
		}
		if err := writeInline(iw.CreatePart, "text/plain", plain); err != nil {
			return err
		}
		if err := writeInline(iw.CreatePart, "text/html", html); err != nil {
			return err
		}
		if err := iw.Close(); err != nil {
			return fmt.Errorf("failed to close alternative part: %w", err)
		}
	case plain != "":
		return writeInline(mw.CreateSingleInline, "text/plain", plain)
	case html != "":
		return writeInline(mw.CreateSingleInline, "text/html", html)
	}
	return nil
}

func writeInline(create func(mail.InlineHeader) (io.WriteCloser, error), contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	w, err := create(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

func writeAttachment(mw *mail.Writer, filename string, data []byte) error {
	var h mail.AttachmentHeader
	h.SetContentType(storage.GetContentType(filename), nil)
	h.Set("Content-Transfer-Encoding", "base64")
	h.SetFilename(filename)

	w, err := mw.CreateAttachment(h)
	if err != nil {
		return fmt.Errorf("failed to create attachment %q: %w", filename, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write attachment %q: %w", filename, err)
	}
	return w.Close()
}

func generateMessageID(from *mail.Address) string {
	domain := "localhost"
	if from != nil {
		if at := strings.LastIndex(from.Address, "@"); at >= 0 && at < len(from.Address)-1 {
			domain = from.Address[at+1:]
		}
	}
	return uuid.New().String() + "@" + domain
}

func trimMsgID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "<>")
}
