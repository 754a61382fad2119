package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
)

// PrincipalStore persists user rights levels.
type PrincipalStore interface {
	// GetByID returns the stored rights of a user.
	// Returns ErrPrincipalNotFound if no rights are stored for the user.
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.Principal, error)

	// Upsert stores the rights level of a user, replacing any previous value.
	// Returns ErrInvalidEntity for an unknown rights level.
	Upsert(ctx context.Context, principal *domain.Principal) error

	// WithTx returns a PrincipalStore that runs its queries inside tx.
	WithTx(tx *sql.Tx) PrincipalStore
}
