package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag/example/basic/docs"
	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/auth"
	"godsendjoseph.dev/mail-wizard/internal/cron"
	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/notification"
	ratelimiter "godsendjoseph.dev/mail-wizard/internal/rateLimiter"
	"godsendjoseph.dev/mail-wizard/internal/storage"
	"godsendjoseph.dev/mail-wizard/internal/wizard"
)

// userSource is what the auth middleware needs to resolve the acting user.
type userSource interface {
	GetByID(context.Context, int64) (*models.User, error)
	GetByEmail(context.Context, string) (*models.User, error)
}

type userCache interface {
	Get(context.Context, int64) (*models.User, error)
	Set(context.Context, *models.User) error
}

type roleSource interface {
	GetByName(context.Context, string) (*models.Role, error)
}

type attachmentStore interface {
	Create(context.Context, *models.OriginAttachment) error
	ListByResource(ctx context.Context, resource string) ([]models.OriginAttachment, error)
}

type recordSource interface {
	Get(ctx context.Context, model string, id int64) (*models.Record, error)
}

type wizardService interface {
	Open(ctx context.Context, actionID int64, recordIDs []int64, actor *models.User) (*models.WizardState, error)
	Get(ctx context.Context, id string, actor *models.User) (*models.WizardState, error)
	Update(ctx context.Context, id string, actor *models.User, update wizard.Update) (*models.WizardState, error)
	AddAttachment(ctx context.Context, id string, actor *models.User, name string, data []byte) (*models.WizardState, wizard.Outcome, error)
	DropAttachment(ctx context.Context, id string, actor *models.User, size int64) (*models.WizardState, wizard.Outcome, error)
	OriginAttachments(ctx context.Context, id string, actor *models.User) ([]models.OriginAttachment, error)
	Send(ctx context.Context, id string, actor *models.User) (*wizard.DispatchReport, error)
	Cancel(ctx context.Context, id string, actor *models.User) error
}

type application struct {
	config        config
	users         userSource
	userCache     userCache
	roles         roleSource
	records       recordSource
	attachments   attachmentStore
	wizards       wizardService
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	sendLimiter   ratelimiter.Limiter
	scheduler     *cron.Scheduler
	slackNotifier *notification.SlackNotifier
	storageClient storage.Client
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	wizard      wizardConfig
	auth        authConfig
	redisCfg    redisConfig
	rateLimiter ratelimiter.Config
	timezone    string
	slack       slackConfig
	r2          r2Config
	uploadsDir  string
}

type redisConfig struct {
	addr    string
	pwd     string
	db      int
	enabled bool
}

type r2Config struct {
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	bucketName      string
	publicURL       string
	enabled         bool
}

type authConfig struct {
	token tokenConfig
}

type tokenConfig struct {
	secret   string
	audience string
	issuer   string
	exp      time.Duration
}

type dbConfig struct {
	addr         string
	user         string
	password     string
	dbName       string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type mailConfig struct {
	transport    string
	deliveryMode string
	workers      int
	queueSize    int
	smtpMail     smtpMailConfig
	ses          sesConfig
}

type smtpMailConfig struct {
	mailHost       string
	mailPort       string
	mailUsername   string
	mailPassword   string
	mailEncryption string
}

type sesConfig struct {
	region          string
	accessKeyID     string
	secretAccessKey string
}

type wizardConfig struct {
	maxDBConnections  int
	maxAttachmentSize int64
	sessionTTL        time.Duration
	summarySchedule   string
	summaryWindow     time.Duration
}

type slackConfig struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	enabled    bool
}

type contextKey string

func (app *application) mount() http.Handler {
	router := chi.NewRouter()

	// middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*", "http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Use(app.RateLimiterMiddleware)

	// sending a large selection can take a while
	router.Use(middleware.Timeout(5 * time.Minute))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.notFoundResponse(w, r, errors.New("route not found"))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		app.methodNotAllowedResponse(w, r, errors.New("method not allowed"))
	})

	if !app.config.r2.enabled && app.config.uploadsDir != "" {
		fileServer := http.FileServer(http.Dir(app.config.uploadsDir))
		router.Handle("/uploads/*", http.StripPrefix("/uploads", fileServer))
	}

	app.registerRoutes(router)

	return router
}

func (app *application) run(mux http.Handler) error {
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"
	docs.SwaggerInfo.Title = "Mail Wizard API"

	server := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 5*time.Minute + 10*time.Second,
		ReadTimeout:  time.Second * 30,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)

		defer cancel()

		app.logger.Infow("signals caught", "signal", s.String())

		shutdown <- server.Shutdown(ctx)
	}()

	app.logger.Infow("Server has started", "addr", app.config.addr, "env", app.config.env)

	err := server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("Server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
