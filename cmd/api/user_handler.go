package main

import (
	"net/http"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

const userCtx contextKey = "user"

func (app *application) getUserHandler(writer http.ResponseWriter, request *http.Request) {
	user := getUserFromCtx(request)

	if err := writeJSON(writer, http.StatusOK, "User retrieved", user); err != nil {
		app.internalServerError(writer, request, err)
		return
	}
}

func getUserFromCtx(request *http.Request) *models.User {
	user, _ := request.Context().Value(userCtx).(*models.User)
	return user
}
