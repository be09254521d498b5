package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/wizard"
)

type OpenWizardPayload struct {
	RecordIDs []int64 `json:"record_ids" validate:"max=10000,dive,gt=0"`
}

type UpdateWizardPayload struct {
	Values              *models.MailValues `json:"values"`
	UseTemplateFields   *bool              `json:"use_template_fields"`
	OriginAttachmentIDs []int64            `json:"origin_attachment_ids" validate:"omitempty,dive,gt=0"`
}

// AttachmentForm is the multipart form of an upload; Name overrides the file name.
type AttachmentForm struct {
	Name string `form:"name" validate:"omitempty,max=255"`
}

type attachmentView struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type wizardView struct {
	ID                  string            `json:"id"`
	ActionID            int64             `json:"action_id"`
	TemplateID          int64             `json:"template_id"`
	Model               string            `json:"model"`
	RecordIDs           []int64           `json:"record_ids"`
	Language            string            `json:"language"`
	Values              models.MailValues `json:"values"`
	UseTemplateFields   bool              `json:"use_template_fields"`
	RecipientsEdited    bool              `json:"recipients_edited"`
	Total               int               `json:"total"`
	Origin              string            `json:"origin,omitempty"`
	Attachments         []attachmentView  `json:"attachments"`
	OriginAttachmentIDs []int64           `json:"origin_attachment_ids"`
}

func newWizardView(state *models.WizardState) wizardView {
	attachments := make([]attachmentView, 0, len(state.Attachments))
	for _, att := range state.Attachments {
		attachments = append(attachments, attachmentView{Name: att.Name, Size: len(att.Data)})
	}

	return wizardView{
		ID:                  state.ID,
		ActionID:            state.ActionID,
		TemplateID:          state.TemplateID,
		Model:               state.Model,
		RecordIDs:           state.RecordIDs,
		Language:            state.Language,
		Values:              state.Values,
		UseTemplateFields:   state.UseTemplateFields,
		RecipientsEdited:    state.RecipientsEdited,
		Total:               state.Total,
		Origin:              state.Origin,
		Attachments:         attachments,
		OriginAttachmentIDs: state.OriginAttachmentIDs,
	}
}

type unitView struct {
	RecordID int64  `json:"record_id"`
	MailID   int64  `json:"mail_id,omitempty"`
	State    string `json:"state,omitempty"`
	Error    string `json:"error,omitempty"`
}

type dispatchView struct {
	Total   int        `json:"total"`
	Failed  int        `json:"failed"`
	Groups  []int      `json:"groups"`
	Results []unitView `json:"results"`
}

func newDispatchView(report *wizard.DispatchReport) dispatchView {
	view := dispatchView{
		Total:   len(report.Results),
		Failed:  len(report.Failed()),
		Groups:  report.Groups,
		Results: make([]unitView, 0, len(report.Results)),
	}
	if view.Groups == nil {
		view.Groups = []int{}
	}

	for _, res := range report.Results {
		unit := unitView{RecordID: res.RecordID, MailID: res.MailID, State: res.State}
		if res.Err != nil {
			unit.Error = res.Err.Error()
		}
		view.Results = append(view.Results, unit)
	}
	return view
}

func (app *application) openWizardHandler(writer http.ResponseWriter, request *http.Request) {
	actionID, err := strconv.ParseInt(chi.URLParam(request, "actionID"), 10, 64)
	if err != nil {
		app.badRequestResponse(writer, request, fmt.Errorf("invalid action id: %w", err))
		return
	}

	var payload OpenWizardPayload
	if err := readJSON(writer, request, &payload); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	state, err := app.wizards.Open(request.Context(), actionID, payload.RecordIDs, getUserFromCtx(request))
	if err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusCreated, "wizard opened", newWizardView(state)); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) getWizardHandler(writer http.ResponseWriter, request *http.Request) {
	state, err := app.wizards.Get(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request))
	if err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "wizard retrieved", newWizardView(state)); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) updateWizardHandler(writer http.ResponseWriter, request *http.Request) {
	var payload UpdateWizardPayload
	if err := readJSON(writer, request, &payload); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	state, err := app.wizards.Update(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request), wizard.Update{
		Values:              payload.Values,
		UseTemplateFields:   payload.UseTemplateFields,
		OriginAttachmentIDs: payload.OriginAttachmentIDs,
	})
	if err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "wizard updated", newWizardView(state)); err != nil {
		app.internalServerError(writer, request, err)
	}
}

// addWizardAttachmentHandler stores an uploaded file on the wizard. A file at or
// above the size limit is not kept; the response still succeeds and carries
// dropped=true.
func (app *application) addWizardAttachmentHandler(writer http.ResponseWriter, request *http.Request) {
	var form AttachmentForm
	files, err := readFormData(writer, request, &form, 2*app.config.wizard.maxAttachmentSize)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			size := max(request.ContentLength, maxBytesErr.Limit+1)
			state, outcome, err := app.wizards.DropAttachment(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request), size)
			app.attachmentOutcomeResponse(writer, request, state, outcome, err)
			return
		}
		app.badRequestResponse(writer, request, err)
		return
	}

	if err := Validate.Struct(form); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	headers := files["file"]
	if len(headers) == 0 {
		app.badRequestResponse(writer, request, errors.New("missing file field"))
		return
	}

	file, err := headers[0].Open()
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}

	name := form.Name
	if name == "" {
		name = headers[0].Filename
	}

	state, outcome, err := app.wizards.AddAttachment(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request), name, data)
	app.attachmentOutcomeResponse(writer, request, state, outcome, err)
}

func (app *application) attachmentOutcomeResponse(writer http.ResponseWriter, request *http.Request, state *models.WizardState, outcome wizard.Outcome, err error) {
	if err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	message := "attachment added"
	if outcome.Dropped {
		message = fmt.Sprintf("attachment dropped: %d bytes is over the %d bytes limit", outcome.Size, outcome.Limit)
	}

	payload := map[string]any{
		"wizard":  newWizardView(state),
		"outcome": outcome,
	}
	if err := writeJSON(writer, http.StatusOK, message, payload); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) wizardOriginAttachmentsHandler(writer http.ResponseWriter, request *http.Request) {
	attachments, err := app.wizards.OriginAttachments(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request))
	if err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "origin attachments retrieved", attachments); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) sendWizardHandler(writer http.ResponseWriter, request *http.Request) {
	report, err := app.wizards.Send(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request))
	if err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	view := newDispatchView(report)

	message := "mails sent"
	if view.Failed > 0 {
		message = fmt.Sprintf("%d of %d mails failed", view.Failed, view.Total)
	}

	if err := writeJSON(writer, http.StatusOK, message, view); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) cancelWizardHandler(writer http.ResponseWriter, request *http.Request) {
	if err := app.wizards.Cancel(request.Context(), chi.URLParam(request, "sessionID"), getUserFromCtx(request)); err != nil {
		app.wizardErrorResponse(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "wizard cancelled", nil); err != nil {
		app.internalServerError(writer, request, err)
	}
}
