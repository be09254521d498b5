package models

// MailValues are the header and body fields of a mail, before or after tag evaluation.
type MailValues struct {
	From      string `json:"from"`
	Sender    string `json:"sender,omitempty"`
	To        string `json:"to"`
	Cc        string `json:"cc,omitempty"`
	Bcc       string `json:"bcc,omitempty"`
	Subject   string `json:"subject"`
	Plain     string `json:"plain"`
	HTML      string `json:"html"`
	MessageID string `json:"message_id"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}

// Attachment is a user supplied file. An empty Name and nil Data mean it was dropped.
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
}

// WizardState is the transient state of an open mail wizard.
type WizardState struct {
	ID                  string       `json:"id"`
	ActionID            int64        `json:"action_id"`
	TemplateID          int64        `json:"template_id"`
	Model               string       `json:"model"`
	RecordIDs           []int64      `json:"record_ids"`
	UserID              int64        `json:"user_id"`
	Language            string       `json:"language"`
	Values              MailValues   `json:"values"`
	UseTemplateFields   bool         `json:"use_template_fields"`
	RecipientsEdited    bool         `json:"recipients_edited"`
	Total               int          `json:"total"`
	Origin              string       `json:"origin,omitempty"`
	Attachments         []Attachment `json:"attachments"`
	OriginAttachmentIDs []int64      `json:"origin_attachment_ids"`
}

// SameAddresses reports whether both values carry the same address headers.
func (v MailValues) SameAddresses(other MailValues) bool {
	return v.From == other.From &&
		v.Sender == other.Sender &&
		v.To == other.To &&
		v.Cc == other.Cc &&
		v.Bcc == other.Bcc
}
