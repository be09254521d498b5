package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"godsendjoseph.dev/mail-wizard/internal/models"
)

func (app *application) registerRoutes(router *chi.Mux) {
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/health", http.StatusSeeOther)
	})

	router.Route("/v1", func(route chi.Router) {
		route.Get("/health", app.healthCheckHandler)

		route.Route("/auth", func(route chi.Router) {
			route.Post("/login", app.loginUserHandler)
		})

		route.Group(func(route chi.Router) {
			route.Use(app.AuthTokenMiddleware)

			route.Get("/users/profile", app.getUserHandler)

			route.With(app.RequireRole(models.RoleSender)).
				Post("/records/{model}/{recordID}/attachments", app.uploadOriginAttachmentHandler)
			route.Get("/records/{model}/{recordID}/attachments", app.listOriginAttachmentsHandler)

			route.Post("/wizards/{actionID}/sessions", app.openWizardHandler)

			route.Route("/wizard-sessions/{sessionID}", func(route chi.Router) {
				route.Get("/", app.getWizardHandler)
				route.Patch("/", app.updateWizardHandler)
				route.Delete("/", app.cancelWizardHandler)
				route.Post("/attachments", app.addWizardAttachmentHandler)
				route.Get("/origin-attachments", app.wizardOriginAttachmentsHandler)
				route.With(app.RequireRole(models.RoleSender), app.SendLimiterMiddleware).
					Post("/send", app.sendWizardHandler)
			})
		})
	})
}
