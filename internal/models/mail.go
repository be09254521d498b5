package models

import "godsendjoseph.dev/mail-wizard/internal/utils"

const (
	MailStateDraft  = "draft"
	MailStateOutbox = "outbox"
	MailStateSent   = "sent"
	MailStateFailed = "failed"
)

type ElectronicMail struct {
	ID         int64             `json:"id"`
	MailboxID  int64             `json:"mailbox_id"`
	TemplateID int64             `json:"template_id"`
	Model      string            `json:"model"`
	RecordID   int64             `json:"record_id"`
	MessageID  string            `json:"message_id"`
	Subject    string            `json:"subject"`
	From       string            `json:"from"`
	Recipients utils.StringSlice `json:"recipients"`
	Raw        []byte            `json:"-"`
	State      string            `json:"state"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  string            `json:"created_at"`
	UpdatedAt  string            `json:"updated_at"`
}

// HistoryEvent links a template, the record it was rendered for and the sent mail.
type HistoryEvent struct {
	ID         int64  `json:"id"`
	TemplateID int64  `json:"template_id"`
	Model      string `json:"model"`
	RecordID   int64  `json:"record_id"`
	MailID     int64  `json:"mail_id"`
	Subject    string `json:"subject"`
	CreatedAt  string `json:"created_at"`
}

// OriginAttachment is a file stored against a record; its payload lives in blob storage.
type OriginAttachment struct {
	ID         int64  `json:"id"`
	Resource   string `json:"resource"`
	Name       string `json:"name"`
	StorageKey string `json:"-"`
	Size       int64  `json:"size"`
}

type MailStateCount struct {
	State string `json:"state"`
	Count int64  `json:"count"`
}
