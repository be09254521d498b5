package wizard

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"godsendjoseph.dev/mail-wizard/internal/compose"
	"godsendjoseph.dev/mail-wizard/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type FieldProblem struct {
	RecordID int64  `json:"record_id"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Message  string `json:"message"`
}

// ValidationError lists every invalid overridden address found before dispatch started.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid recipients"
	}
	p := e.Problems[0]
	msg := fmt.Sprintf("record %d: %s: %s", p.RecordID, p.Field, p.Message)
	if n := len(e.Problems) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// checkAddresses validates evaluated header values for one record.
func checkAddresses(recordID int64, values models.MailValues) []FieldProblem {
	var problems []FieldProblem
	add := func(field, value, message string) {
		problems = append(problems, FieldProblem{RecordID: recordID, Field: field, Value: value, Message: message})
	}

	fields := []struct {
		name  string
		value string
	}{
		{"From", values.From},
		{"Sender", values.Sender},
		{"To", values.To},
		{"Cc", values.Cc},
		{"Bcc", values.Bcc},
	}

	for _, f := range fields {
		addrs, err := compose.ParseAddressList(f.name, f.value)
		if err != nil {
			add(f.name, f.value, "malformed address list")
			continue
		}
		for _, addr := range addrs {
			if err := validate.Var(addr, "required,email"); err != nil {
				add(f.name, addr, "invalid email address")
			}
		}
	}

	return problems
}
