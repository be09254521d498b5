package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/storage"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

func (app *application) recordFromRequest(request *http.Request) (*models.Record, error) {
	recordID, err := strconv.ParseInt(chi.URLParam(request, "recordID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid record id: %w", err)
	}

	return app.records.Get(request.Context(), chi.URLParam(request, "model"), recordID)
}

// uploadOriginAttachmentHandler stores a file against a record so wizards opened
// on that record can pick it.
func (app *application) uploadOriginAttachmentHandler(writer http.ResponseWriter, request *http.Request) {
	if app.storageClient == nil {
		app.internalServerError(writer, request, errors.New("storage service not available"))
		return
	}

	var form AttachmentForm
	files, err := readFormData(writer, request, &form, app.config.wizard.maxAttachmentSize)
	if err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	if err := Validate.Struct(form); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	record, err := app.recordFromRequest(request)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUnknownModel):
			app.notFoundResponse(writer, request, err)
		default:
			app.badRequestResponse(writer, request, err)
		}
		return
	}

	headers := files["file"]
	if len(headers) == 0 {
		app.badRequestResponse(writer, request, errors.New("missing file field"))
		return
	}
	fileHeader := headers[0]

	file, err := fileHeader.Open()
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}
	defer file.Close()

	name := form.Name
	if name == "" {
		name = fileHeader.Filename
	}

	ctx := request.Context()
	key := storage.GenerateFileKey("attachments/"+record.Model, name)

	result, err := app.storageClient.UploadFile(ctx, key, file, storage.GetContentType(name), fileHeader.Size)
	if err != nil {
		app.logger.Errorw("failed to upload attachment", "key", key, "error", err)
		app.internalServerError(writer, request, errors.New("failed to upload file"))
		return
	}

	attachment := &models.OriginAttachment{
		Resource:   record.Resource(),
		Name:       name,
		StorageKey: result.Key,
		Size:       fileHeader.Size,
	}

	if err := app.attachments.Create(ctx, attachment); err != nil {
		if delErr := app.deleteFile(ctx, result.Key); delErr != nil {
			app.logger.Errorw("failed to remove orphaned upload", "key", result.Key, "error", delErr)
		}
		app.internalServerError(writer, request, err)
		return
	}

	data := map[string]any{
		"attachment": attachment,
		"url":        result.URL,
	}
	if err := writeJSON(writer, http.StatusCreated, "attachment stored", data); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) listOriginAttachmentsHandler(writer http.ResponseWriter, request *http.Request) {
	record, err := app.recordFromRequest(request)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUnknownModel):
			app.notFoundResponse(writer, request, err)
		default:
			app.badRequestResponse(writer, request, err)
		}
		return
	}

	attachments, err := app.attachments.ListByResource(request.Context(), record.Resource())
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "attachments retrieved", attachments); err != nil {
		app.internalServerError(writer, request, err)
	}
}

func (app *application) deleteFile(ctx context.Context, fileKey string) error {
	if fileKey == "" || app.storageClient == nil {
		return nil
	}

	if err := app.storageClient.DeleteFile(ctx, fileKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
