package main

import (
	"errors"
	"net/http"

	"godsendjoseph.dev/mail-wizard/internal/store"
	"godsendjoseph.dev/mail-wizard/internal/store/cache"
	"godsendjoseph.dev/mail-wizard/internal/wizard"
)

func (app *application) internalServerError(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Errorw("internal server error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	app.slackNotifier.NotifyServerError(err, request)
	writeJSONError(writer, http.StatusInternalServerError, "the server encountered a problem and could not process your request", nil)
}

func (app *application) badRequestResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("bad request error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	writeJSONError(writer, http.StatusBadRequest, err.Error(), validationErrors(err))
}

func (app *application) unprocessableResponse(writer http.ResponseWriter, request *http.Request, err *wizard.ValidationError) {
	app.logger.Warnw("invalid recipients", "method", request.Method, "path", request.URL.Path, "problems", len(err.Problems))
	writeJSONError(writer, http.StatusUnprocessableEntity, err.Error(), err.Problems)
}

func (app *application) methodNotAllowedResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("method not allowed error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	writeJSONError(writer, http.StatusMethodNotAllowed, "method not allowed", nil)
}

func (app *application) notFoundResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("not found error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	if app.isCriticalResource(request.URL.Path) {
		app.slackNotifier.NotifyNotFound(err, request)
	}

	writeJSONError(writer, http.StatusNotFound, err.Error(), nil)
}

func (app *application) conflictResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("conflict error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	writeJSONError(writer, http.StatusConflict, err.Error(), nil)
}

func (app *application) forbiddenResponseError(writer http.ResponseWriter, request *http.Request) {
	app.logger.Warnw("forbidden error", "method", request.Method, "path", request.URL.Path)
	app.slackNotifier.NotifyForbidden(request)
	writeJSONError(writer, http.StatusForbidden, "request is forbidden", nil)
}

func (app *application) unauthorizedErrorResponse(writer http.ResponseWriter, request *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", request.Method, "path", request.URL.Path, "error", err.Error())
	writeJSONError(writer, http.StatusUnauthorized, "unauthorized", nil)
}

func (app *application) rateLimitExceededResponse(writer http.ResponseWriter, request *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit error", "method", request.Method, "path", request.URL.Path, "error", retryAfter)
	app.slackNotifier.NotifyRateLimitExceeded(request, retryAfter)
	writer.Header().Set("Retry-After", retryAfter)
	writeJSONError(writer, http.StatusTooManyRequests, "rate limit exceeded", nil)
}

// wizardErrorResponse maps errors coming out of the wizard flow to responses.
func (app *application) wizardErrorResponse(writer http.ResponseWriter, request *http.Request, err error) {
	var validationErr *wizard.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.unprocessableResponse(writer, request, validationErr)
	case errors.Is(err, cache.ErrWizardNotFound), errors.Is(err, store.ErrNotFound):
		app.notFoundResponse(writer, request, err)
	case errors.Is(err, wizard.ErrTemplateDeleted):
		app.conflictResponse(writer, request, err)
	case errors.Is(err, wizard.ErrNotOwner):
		app.forbiddenResponseError(writer, request)
	default:
		app.internalServerError(writer, request, err)
	}
}

func (app *application) isCriticalResource(path string) bool {
	criticalUrls := []string{
		"/v1/health",
	}

	for _, url := range criticalUrls {
		if url == path {
			return true
		}
	}
	return false
}
