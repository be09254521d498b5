package models

// Template holds the parameterised header and body text of an outgoing mail.
// Text fields may contain ${ expr } tags evaluated against a record.
type Template struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Model     string   `json:"model"`
	From      string   `json:"from"`
	Sender    string   `json:"sender"`
	To        string   `json:"to"`
	Cc        string   `json:"cc"`
	Bcc       string   `json:"bcc"`
	Subject   string   `json:"subject"`
	Plain     string   `json:"plain"`
	HTML      string   `json:"html"`
	MessageID string   `json:"message_id"`
	InReplyTo string   `json:"in_reply_to"`
	Language  string   `json:"language"`
	Signature bool     `json:"signature"`
	MailboxID int64    `json:"mailbox_id"`
	ActionID  int64    `json:"action_id"`
	Active    bool     `json:"active"`
	Reports   []Report `json:"reports"`
}

// Report is a document rendered per record and attached to the mail.
type Report struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Body      string `json:"-"`
	FileName  string `json:"file_name"`
}

type TemplateTranslation struct {
	TemplateID int64  `json:"template_id"`
	Language   string `json:"language"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

// Translated returns a copy of t with the given translations applied.
// Only subject, plain and html are translatable.
func (t Template) Translated(translations []TemplateTranslation) *Template {
	out := t
	for _, tr := range translations {
		switch tr.Field {
		case "subject":
			out.Subject = tr.Value
		case "plain":
			out.Plain = tr.Value
		case "html":
			out.HTML = tr.Value
		}
	}
	return &out
}
