// Package pageuser is the backend for a web-based template builder. It
// provides user accounts with session authentication, persistence for
// site-configuration documents, asset uploads, and a generation pipeline
// that turns a saved configuration into a downloadable static-site ZIP
// archive with all referenced images resolved and bundled.
package pageuser

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/BouoniManar/Exportation-Template/export"
)

// App is the central application. It wires together the store, the export
// pipeline, the mailer, middleware, and routes.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Exporter *export.Exporter
	Mailer   Mailer

	loginLimiter *AttemptLimiter
	logger       *slog.Logger
	customRoutes []func(*App)
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		logger: slog.Default(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Start initializes the store, exporter, middleware, and routes, then
// starts the HTTP server. It blocks until the server stops.
func (a *App) Start() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("pageuser: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pageuser: init store: %w", err)
	}
	a.Store = store

	a.Exporter = export.New(a.Config.Export, a.logger)
	a.Mailer = NewMailer(a.Config.SMTP)
	a.loginLimiter = NewAttemptLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Uploaded assets are served statically under the same path the
	// upload handler reports back to clients.
	e.Static("/"+a.Config.UploadDir, a.Config.ProjectRoot+"/"+a.Config.UploadDir)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", a.handleRegister)
	auth.POST("/login", a.handleLogin)
	auth.POST("/logout", handleLogout)
	auth.POST("/forgot-password", a.handleForgotPassword)
	auth.POST("/reset-password", a.handleResetPassword)

	configs := api.Group("/configs", a.requireUser)
	configs.POST("", a.handleSaveConfig)
	configs.GET("", a.handleListConfigs)
	configs.GET("/:id", a.handleGetConfig)
	configs.DELETE("/:id", a.handleDeleteConfig)

	templates := api.Group("/templates", a.requireUser)
	templates.POST("/generate", a.handleGenerate)
	templates.GET("", a.handleListTemplates)
	templates.GET("/:id/download", a.handleDownloadTemplate)
	templates.DELETE("/:id", a.handleDeleteTemplate)

	api.GET("/me", a.handleMe, a.requireUser)
	api.GET("/history", a.handleHistory, a.requireUser)
	api.GET("/dashboard", a.handleDashboard, a.requireUser)

	api.POST("/uploads/:category", a.handleUpload, a.requireUser)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
