package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

type LoginUserPayload struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

func (app *application) loginUserHandler(writer http.ResponseWriter, request *http.Request) {
	var payload LoginUserPayload

	if err := readJSON(writer, request, &payload); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(writer, request, err)
		return
	}

	user, err := app.users.GetByEmail(request.Context(), payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAccountNotVerified):
			app.unauthorizedErrorResponse(writer, request, err)
		default:
			app.internalServerError(writer, request, err)
		}
		return
	}

	if err := user.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(writer, request, err)
		return
	}

	token, err := app.generateJWTToken(user)
	if err != nil {
		app.internalServerError(writer, request, err)
		return
	}

	if err := writeJSON(writer, http.StatusOK, "token created", token); err != nil {
		app.internalServerError(writer, request, err)
		return
	}
}

func (app *application) generateJWTToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"exp": now.Add(app.config.auth.token.exp).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"iss": app.config.auth.token.issuer,
		"aud": app.config.auth.token.audience,
	}

	token, err := app.authenticator.GenerateToken(claims)
	if err != nil {
		app.logger.Errorw("error generating JWT token", "error", err)
		return "", err
	}
	return token, nil
}
