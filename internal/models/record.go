package models

import "fmt"

// Record is an arbitrary business record a mail is generated for.
type Record struct {
	Model  string         `json:"model"`
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

// Resource is the "model,id" reference used to link attachments to a record.
func (r *Record) Resource() string {
	return Resource(r.Model, r.ID)
}

func Resource(model string, id int64) string {
	return fmt.Sprintf("%s,%d", model, id)
}
