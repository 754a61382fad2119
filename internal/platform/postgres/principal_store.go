package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/store"
)

// PostgresPrincipalStore implements store.PrincipalStore on the user_rights table.
type PostgresPrincipalStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPrincipalStore creates a new PostgreSQL implementation of the PrincipalStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresPrincipalStore(db store.DBTX, logger *slog.Logger) *PostgresPrincipalStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPrincipalStore{
		db:     db,
		logger: logger.With(slog.String("component", "principal_store")),
	}
}

var _ store.PrincipalStore = (*PostgresPrincipalStore)(nil)

// WithTx implements store.PrincipalStore.WithTx
func (s *PostgresPrincipalStore) WithTx(tx *sql.Tx) store.PrincipalStore {
	return &PostgresPrincipalStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetByID implements store.PrincipalStore.GetByID
func (s *PostgresPrincipalStore) GetByID(ctx context.Context, userID uuid.UUID) (*domain.Principal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id, rights_level, created_at, updated_at
		FROM user_rights
		WHERE user_id = $1
	`

	var principal domain.Principal
	var level string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&principal.UserID,
		&level,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no rights stored for user", slog.String("user_id", userID.String()))
			return nil, store.ErrPrincipalNotFound
		}
		log.Error("failed to get principal",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	parsed, err := domain.ParseRightsLevel(level)
	if err != nil {
		log.Error("stored rights level is invalid",
			slog.String("user_id", userID.String()),
			slog.String("rights_level", level))
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	principal.RightsLevel = parsed
	principal.CreatedAt = principal.CreatedAt.UTC()
	principal.UpdatedAt = principal.UpdatedAt.UTC()

	return &principal, nil
}

// Upsert implements store.PrincipalStore.Upsert
func (s *PostgresPrincipalStore) Upsert(ctx context.Context, principal *domain.Principal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if principal.UserID == uuid.Nil || !principal.RightsLevel.IsValid() {
		return fmt.Errorf("%w: principal needs a user ID and a known rights level", store.ErrInvalidEntity)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO user_rights (user_id, rights_level, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET rights_level = EXCLUDED.rights_level, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, principal.UserID, string(principal.RightsLevel), now); err != nil {
		log.Error("failed to upsert principal",
			slog.String("error", err.Error()),
			slog.String("user_id", principal.UserID.String()))
		return MapError(err)
	}

	log.Info("principal rights stored",
		slog.String("user_id", principal.UserID.String()),
		slog.String("rights_level", string(principal.RightsLevel)))
	return nil
}
