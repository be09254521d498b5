// Package report renders the documents a template attaches to each mail.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

// Rendered is one document produced for a record.
type Rendered struct {
	Extension string
	Data      []byte
	// BaseName is used as filename when FileName is empty.
	BaseName string
	// FileName is an optional tag expression evaluated against the record.
	FileName string
}

type Renderer interface {
	Render(ctx context.Context, report models.Report, record *models.Record) (*Rendered, error)
}

// TextRenderer executes the report body as a text/template with the record
// available as .Record, .ID and .Model.
type TextRenderer struct {
	funcs template.FuncMap
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{
		funcs: template.FuncMap{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		},
	}
}

func (r *TextRenderer) Render(ctx context.Context, report models.Report, record *models.Record) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := template.New(report.Name).Funcs(r.funcs).Option("missingkey=zero").Parse(report.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing report %q: %w", report.Name, err)
	}

	data := map[string]any{
		"Record": map[string]any{},
		"ID":     int64(0),
		"Model":  "",
	}
	if record != nil {
		data["Record"] = record.Values
		data["ID"] = record.ID
		data["Model"] = record.Model
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("error executing report %q: %w", report.Name, err)
	}

	extension := strings.TrimPrefix(report.Extension, ".")
	if extension == "" {
		extension = "txt"
	}

	return &Rendered{
		Extension: extension,
		Data:      body.Bytes(),
		BaseName:  report.Name,
		FileName:  report.FileName,
	}, nil
}
