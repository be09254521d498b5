package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/auth"
	"godsendjoseph.dev/mail-wizard/internal/compose"
	"godsendjoseph.dev/mail-wizard/internal/cron"
	"godsendjoseph.dev/mail-wizard/internal/db"
	"godsendjoseph.dev/mail-wizard/internal/env"
	"godsendjoseph.dev/mail-wizard/internal/mailer"
	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/notification"
	ratelimiter "godsendjoseph.dev/mail-wizard/internal/rateLimiter"
	"godsendjoseph.dev/mail-wizard/internal/report"
	"godsendjoseph.dev/mail-wizard/internal/storage"
	"godsendjoseph.dev/mail-wizard/internal/store"
	"godsendjoseph.dev/mail-wizard/internal/store/cache"
	"godsendjoseph.dev/mail-wizard/internal/tags"
	"godsendjoseph.dev/mail-wizard/internal/wizard"
)

const version = "0.1.0"

func main() {
	if err := godotenv.Load(env.GetString("ENV_FILE", "/app/.env")); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded, using the process environment")
	}

	cfg := config{
		addr:   env.GetString("ADDR", ":8080"),
		apiURL: env.GetString("EXTERNAL_URL", "http://localhost:8080"),
		db: dbConfig{
			addr:         fmt.Sprintf("%s:%s", env.GetString("DB_HOST", "127.0.0.1"), env.GetString("DB_PORT", "3306")),
			user:         env.GetString("DB_USER", "root"),
			password:     env.GetString("DB_PASSWORD", "root"),
			dbName:       env.GetString("DB_NAME", "mail_wizard_db"),
			maxOpenConns: env.GetInt("DB_MAX_OPEN_CONNS", 60),
			maxIdleConns: env.GetInt("DB_MAX_IDLE_CONNS", 25),
			maxIdleTime:  env.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
		redisCfg: redisConfig{
			addr:    env.GetString("REDIS_ADDR", "localhost:6379"),
			pwd:     env.GetString("REDIS_PASSWORD", ""),
			db:      env.GetInt("REDIS_DB", 0),
			enabled: env.GetBool("REDIS_ENABLED", false),
		},
		r2: r2Config{
			endpoint:        env.GetString("R2_ENDPOINT", ""),
			accessKeyID:     env.GetString("R2_ACCESS_KEY_ID", ""),
			secretAccessKey: env.GetString("R2_SECRET_ACCESS_KEY", ""),
			bucketName:      env.GetString("R2_BUCKET_NAME", ""),
			publicURL:       env.GetString("R2_PUBLIC_URL", ""),
			enabled:         env.GetBool("R2_ENABLED", false),
		},
		uploadsDir: env.GetString("UPLOADS_DIR", "./uploads"),
		env:        env.GetString("ENV", "development"),
		mail: mailConfig{
			transport:    env.GetString("MAIL_TRANSPORT", mailer.TransportSandbox),
			deliveryMode: env.GetString("MAIL_DELIVERY_MODE", mailer.SyncDelivery),
			workers:      env.GetInt("MAIL_WORKERS", 3),
			queueSize:    env.GetInt("MAIL_QUEUE_SIZE", 100),
			smtpMail: smtpMailConfig{
				mailHost:       env.GetString("MAIL_HOST", "localhost"),
				mailPort:       env.GetString("MAIL_PORT", "587"),
				mailUsername:   env.GetString("MAIL_USERNAME", ""),
				mailPassword:   env.GetString("MAIL_PASSWORD", ""),
				mailEncryption: env.GetString("MAIL_ENCRYPTION", "tls"),
			},
			ses: sesConfig{
				region:          env.GetString("SES_REGION", "us-east-1"),
				accessKeyID:     env.GetString("SES_ACCESS_KEY_ID", ""),
				secretAccessKey: env.GetString("SES_SECRET_ACCESS_KEY", ""),
			},
		},
		wizard: wizardConfig{
			maxDBConnections:  env.GetInt("DB_MAX_CONNECTIONS", wizard.DefaultMaxDBConnections),
			maxAttachmentSize: env.GetInt64("EMAIL_MAX_ATTACHMENT_SIZE", wizard.DefaultMaxAttachmentSize),
			sessionTTL:        env.GetDuration("WIZARD_SESSION_TTL", cache.DefaultWizardExpTime),
			summarySchedule:   env.GetString("SUMMARY_SCHEDULE", "0 7 * * *"),
			summaryWindow:     env.GetDuration("SUMMARY_WINDOW", 24*time.Hour),
		},
		auth: authConfig{
			token: tokenConfig{
				secret:   env.GetString("TOKEN_SECRET", "secret"),
				exp:      env.GetDuration("TOKEN_EXP", 24*time.Hour),
				audience: env.GetString("TOKEN_AUDIENCE", "mail-wizard"),
				issuer:   env.GetString("TOKEN_ISSUER", "mail-wizard"),
			},
		},
		rateLimiter: ratelimiter.Config{
			RequestPerTimeForIP: env.GetInt("RATE_LIMITER_REQUEST_COUNT", 120),
			SendsPerTimeForUser: env.GetInt("RATE_LIMITER_SEND_COUNT", 10),
			TimeFrame:           env.GetDuration("RATE_LIMITER_TIME_FRAME", 5*time.Minute),
			Enabled:             env.GetBool("RATE_LIMITER_ENABLED", true),
		},
		timezone: env.GetString("TIMEZONE", "UTC"),
		slack: slackConfig{
			webhookURL: env.GetString("SLACK_WEBHOOK_URL", ""),
			channel:    env.GetString("SLACK_CHANNEL", "#notifications"),
			username:   env.GetString("SLACK_USERNAME", "Mail Wizard"),
			iconEmoji:  env.GetString("SLACK_ICON_EMOJI", ":email:"),
			enabled:    env.GetBool("SLACK_ENABLED", false),
		},
	}

	// Logger
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	conn, err := db.New(db.Config{
		Addr:         cfg.db.addr,
		User:         cfg.db.user,
		Password:     cfg.db.password,
		DBName:       cfg.db.dbName,
		MaxOpenConns: cfg.db.maxOpenConns,
		MaxIdleConns: cfg.db.maxIdleConns,
		MaxIdleTime:  cfg.db.maxIdleTime,
	}, logger)
	if err != nil {
		logger.Panic(err)
	}
	defer conn.Close()
	logger.Info("connected to database")

	if cfg.wizard.maxDBConnections > cfg.db.maxOpenConns {
		logger.Warnw("wizard groups are larger than the connection pool",
			"DB_MAX_CONNECTIONS", cfg.wizard.maxDBConnections,
			"DB_MAX_OPEN_CONNS", cfg.db.maxOpenConns,
		)
	}

	if err := handleMigrations(conn); err != nil {
		logger.Fatal(err)
	}

	// check for exiting after migrations
	if len(os.Args) > 1 && (os.Args[len(os.Args)-1] == "up" || os.Args[len(os.Args)-1] == "down" || os.Args[len(os.Args)-1] == "force") {
		return
	}

	// Wizard sessions always live in Redis; REDIS_ENABLED only turns on the user cache.
	redisDB := cache.NewRedisClient(cfg.redisCfg.addr, cfg.redisCfg.pwd, cfg.redisCfg.db)
	defer redisDB.Close()
	if err := redisDB.Ping(context.Background()).Err(); err != nil {
		logger.Fatalw("redis is required for wizard sessions", "addr", cfg.redisCfg.addr, "error", err)
	}
	logger.Info("redis connection has been established")

	storageClient, err := newStorageClient(cfg)
	if err != nil {
		logger.Fatalw("failed to initialize storage client", "error", err)
	}

	location, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		logger.Fatalw("invalid TIMEZONE", "timezone", cfg.timezone, "error", err)
	}

	store := store.NewStorage(conn)
	rdb := cache.NewRedisStorage(redisDB, cfg.wizard.sessionTTL)

	slackNotifier := notification.NewSlackNotifier(
		cfg.slack.webhookURL,
		cfg.slack.channel,
		cfg.slack.username,
		cfg.slack.iconEmoji,
		cfg.slack.enabled,
	)

	transport, err := newTransport(cfg, logger)
	if err != nil {
		logger.Fatalw("failed to initialize mail transport", "transport", cfg.mail.transport, "error", err)
	}

	var queue mailer.Queue
	if cfg.mail.deliveryMode == mailer.AsyncInMemory {
		inMemoryMailer := mailer.NewInMemoryMailer(transport, cfg.mail.workers, cfg.mail.queueSize, logger)
		inMemoryMailer.OnResult(func(job mailer.MailJob, err error) {
			state, errMsg := models.MailStateSent, ""
			if err != nil {
				state, errMsg = models.MailStateFailed, err.Error()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := store.Mails.SetState(ctx, job.MailID, state, errMsg); err != nil {
				logger.Errorw("failed to record delivery result", "mail_id", job.MailID, "state", state, "error", err)
			}
		})
		inMemoryMailer.Start()
		defer inMemoryMailer.Stop()
		queue = inMemoryMailer
	}

	action := mailer.NewAction(transport, queue, cfg.mail.deliveryMode, logger)

	evaluator := tags.New()
	builder := compose.NewBuilder(evaluator, report.NewTextRenderer(), location)

	sessions := func(ctx context.Context, actor *models.User, language string) (wizard.Session, error) {
		session, err := store.Begin(ctx, actor, language)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	dispatcher := wizard.NewDispatcher(
		wizard.DispatcherConfig{MaxDBConnections: cfg.wizard.maxDBConnections},
		sessions,
		store.Templates,
		store.Records,
		builder,
		action,
		evaluator,
		slackNotifier,
		logger,
	)

	wizardService := wizard.NewService(
		wizard.NewResolver(store.Templates, store.Records, evaluator),
		wizard.NewCollector(cfg.wizard.maxAttachmentSize, store.Attachments, storageClient),
		dispatcher,
		rdb.Wizards,
		store.Attachments,
		logger,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.audience,
		cfg.auth.token.issuer,
	)

	scheduler := cron.NewScheduler(logger, cfg.timezone)
	jobManager := cron.NewJobManager(logger, store.Mails, slackNotifier)
	scheduler.AddJob("dispatch-summary", cfg.wizard.summarySchedule, jobManager.DispatchSummary(cfg.wizard.summaryWindow))

	go scheduler.Start()
	defer scheduler.Stop()

	app := &application{
		config:        cfg,
		users:         store.Users,
		userCache:     rdb.Users,
		roles:         store.Roles,
		records:       store.Records,
		attachments:   store.Attachments,
		wizards:       wizardService,
		logger:        logger,
		authenticator: jwtAuthenticator,
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.rateLimiter.RequestPerTimeForIP, cfg.rateLimiter.TimeFrame),
		sendLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.rateLimiter.SendsPerTimeForUser, cfg.rateLimiter.TimeFrame),
		scheduler:     scheduler,
		slackNotifier: slackNotifier,
		storageClient: storageClient,
	}

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Errorw("server stopped", "error", err)
	}
}

func newTransport(cfg config, logger *zap.SugaredLogger) (mailer.Client, error) {
	switch cfg.mail.transport {
	case mailer.TransportSMTP:
		return mailer.NewSendSMTP(
			cfg.mail.smtpMail.mailHost,
			cfg.mail.smtpMail.mailPort,
			cfg.mail.smtpMail.mailUsername,
			cfg.mail.smtpMail.mailPassword,
			cfg.mail.smtpMail.mailEncryption,
			logger,
		), nil
	case mailer.TransportSES:
		return mailer.NewSESMailer(
			context.Background(),
			cfg.mail.ses.region,
			cfg.mail.ses.accessKeyID,
			cfg.mail.ses.secretAccessKey,
			logger,
		)
	case mailer.TransportSandbox:
		return mailer.NewSandboxMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", cfg.mail.transport)
	}
}

// newStorageClient returns the R2 client when enabled and a local directory otherwise.
func newStorageClient(cfg config) (storage.Client, error) {
	if cfg.r2.enabled {
		return storage.NewR2Client(
			context.Background(),
			cfg.r2.endpoint,
			cfg.r2.accessKeyID,
			cfg.r2.secretAccessKey,
			cfg.r2.bucketName,
			cfg.r2.publicURL,
		)
	}
	return storage.NewLocalClient(cfg.uploadsDir, cfg.apiURL)
}

func handleMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver instance: %v", err)
	}

	migrationsPath := "file://cmd/migrate/migrations"
	if os.Getenv("DOCKER_ENV") == "true" {
		migrationsPath = "file:///app/cmd/migrate/migrations"
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationsPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %v", err)
	}

	cmd := os.Args[len(os.Args)-1]
	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("could not run up migration: %v", err)
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("could not run down migration: %v", err)
		}
	case "force":
		if len(os.Args) != 3 {
			return fmt.Errorf("force command requires a version number")
		}
		version, err := strconv.ParseInt(os.Args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version number: %v", err)
		}
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("could not force version: %v", err)
		}
	}

	return nil
}
