package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/moderation-api/internal/config"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/platform/postgres"
	"github.com/phrazzld/moderation-api/internal/service/auth"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
	"github.com/phrazzld/moderation-api/internal/store"
)

// application holds the shared application dependencies and owns their cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore      store.ModeratorTaskStore
	principalStore store.PrincipalStore

	jwtService        auth.JWTService
	eventEmitter      *events.InMemoryEventEmitter
	moderationService moderation.Service
}

// newApplication wires stores, services and event handlers on top of an open
// database connection.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.taskStore = postgres.NewPostgresModeratorTaskStore(db, logger)
	app.principalStore = postgres.NewPostgresPrincipalStore(db, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewAuditLogHandler(logger))

	app.moderationService = moderation.NewModerationService(
		moderation.NewSQLTxRunner(db, app.taskStore, app.principalStore),
		app.eventEmitter,
		domain.SystemClock{},
		moderation.Config{
			LeaseWindow:     cfg.Moderation.LeaseWindow,
			RetentionWindow: cfg.Moderation.RetentionWindow,
			DefaultPageSize: cfg.Moderation.DefaultPageSize,
			MaxPageSize:     cfg.Moderation.MaxPageSize,
		},
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run serves HTTP until ctx is canceled, then releases resources.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
