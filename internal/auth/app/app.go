package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/verdanthq/gatehouse/internal/auth/http"
	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	redisdriver "github.com/verdanthq/gatehouse/internal/auth/store/drivers/redis"
	"github.com/verdanthq/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/verdanthq/gatehouse/pkg/captcha"
	"github.com/verdanthq/gatehouse/pkg/cryptox"
	"github.com/verdanthq/gatehouse/pkg/notify"
	"github.com/verdanthq/gatehouse/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// allowAllCaptcha stands in when no captcha secret is configured, letting
// dev environments run without a provider account.
type allowAllCaptcha struct{}

func (allowAllCaptcha) Verify(ctx context.Context, token string) (bool, float64, error) {
	return true, 1, nil
}

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	challenges store.Challenges
	sessionKey []byte

	// Services
	loginService        *service.LoginService
	passwordService     *service.PasswordService
	auditRecorder       *service.AuditRecorder
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	key, err := LoadSessionKey(app.cfg.SessionKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load session key: %w", err)
	}
	app.sessionKey = key

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initChallengeStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.auditRecorder.Start()
	app.housekeepingService.Start()

	app.logger.Info("gatehouse starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop background services, draining buffered audit events
	app.housekeepingService.Stop()
	app.auditRecorder.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initChallengeStore selects where pending two-factor challenges live.
// Redis gives them native TTL expiry; without it they share the SQLite
// store and housekeeping reaps the expired ones.
func (app *Application) initChallengeStore() error {
	if app.cfg.RedisAddr == "" {
		app.challenges = app.db.Challenges()
		return nil
	}

	client, err := redisdriver.NewClient(app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.challenges = redisdriver.NewChallenges(client)
	app.logger.Info("challenge store backed by redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	hasher := cryptox.Hasher{}
	sender := app.newSender()

	app.auditRecorder = &service.AuditRecorder{
		Store:      app.db,
		Logger:     app.logger,
		BufferSize: app.cfg.AuditBufferSize,
	}

	lockout := &service.LockoutGuard{
		Store:             app.db,
		MaxFailedAttempts: app.cfg.MaxFailedAttempts,
		LockoutDuration:   app.cfg.LockoutDuration,
	}

	sessions := &service.SessionRegistry{
		Store:         app.db,
		SessionTTL:    app.cfg.SessionTTL,
		RememberMeTTL: app.cfg.RememberMeTTL,
	}

	challenges := &service.ChallengeService{
		Challenges:  app.challenges,
		Sender:      sender,
		TTL:         app.cfg.ChallengeTTL,
		MaxAttempts: app.cfg.ChallengeMaxAttempts,
	}

	app.loginService = &service.LoginService{
		Store:          app.db,
		Hasher:         hasher,
		Captcha:        app.newCaptcha(),
		Lockout:        lockout,
		Sessions:       sessions,
		Challenges:     challenges,
		Audit:          app.auditRecorder,
		MaxPasswordAge: app.cfg.MaxPasswordAge,
	}

	app.passwordService = &service.PasswordService{
		Store:          app.db,
		Hasher:         hasher,
		Sender:         sender,
		Audit:          app.auditRecorder,
		MinPasswordAge: app.cfg.MinPasswordAge,
		MaxPasswordAge: app.cfg.MaxPasswordAge,
		ResetTokenTTL:  app.cfg.ResetTokenTTL,
		ResetBaseURL:   app.cfg.ResetBaseURL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.challenges,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) newCaptcha() service.CaptchaVerifier {
	if app.cfg.CaptchaSecretKey == "" {
		app.logger.Warn("no captcha secret configured, accepting all login attempts")
		return allowAllCaptcha{}
	}
	return captcha.New(app.cfg.CaptchaSecretKey, app.cfg.CaptchaThreshold)
}

func (app *Application) newSender() service.NotificationSender {
	if app.cfg.SMTPAddr == "" {
		app.logger.Warn("no SMTP address configured, logging outgoing mail instead")
		return &notify.LogSender{}
	}
	return notify.NewSMTPSender(app.cfg.SMTPAddr, app.cfg.SMTPFrom, app.cfg.SMTPUsername, app.cfg.SMTPPassword)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessionKey,
		app.cfg.Env != "dev",
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.LoginService = app.loginService
	router.PasswordService = app.passwordService
	router.AuditRecorder = app.auditRecorder
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
