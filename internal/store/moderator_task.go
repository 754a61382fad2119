package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
)

// TaskListQuery selects tasks for listings. The zero value lists unresolved
// tasks of every type and language.
type TaskListQuery struct {
	IncludeResolved bool
	Lang            domain.LanguageFilter
	// IncludeTypes, when non-empty, restricts the listing to these types.
	IncludeTypes []domain.TaskType
	// ExcludeTypes removes these types after IncludeTypes is applied.
	ExcludeTypes []domain.TaskType
	// AssignedTo restricts the listing to tasks held by this user under a
	// lease that is live: assign_time > LeaseCutoff.
	AssignedTo  *uuid.UUID
	LeaseCutoff time.Time
	Limit       int
	Offset      int
}

// NextTaskQuery describes the eligibility filter of an automatic assignment.
type NextTaskQuery struct {
	// LeaseCutoff is the latest assign_time that no longer protects a task.
	LeaseCutoff time.Time
	// KnownLangs limits tasks that carry a language to these languages.
	// A nil slice disables the language filter; an empty non-nil slice
	// leaves only tasks without a language.
	KnownLangs []string
}

// PendingTaskMatch identifies unresolved tasks about one subject, used by
// producers to replace pending work.
type PendingTaskMatch struct {
	// Exactly one of SubjectBarcode and SubjectOsmUID must be set.
	SubjectBarcode *string
	SubjectOsmUID  *string
	Types          []domain.TaskType
	// MatchLang restricts the match to tasks whose lang equals Lang, with a
	// nil Lang matching tasks without a language. When false, every language matches.
	MatchLang bool
	Lang      *string
}

// ModeratorTaskStore defines the interface for moderator task persistence.
//
// Every method may be called on a transactional instance obtained from
// WithTx; the moderation service always does so, so that the retention
// sweep, the eligibility scan and the write of one operation commit together.
type ModeratorTaskStore interface {
	// Create inserts a new task and sets its ID.
	// Returns ErrInvalidEntity if the task fails domain validation.
	Create(ctx context.Context, task *domain.ModeratorTask) error

	// GetByID retrieves a task by its ID.
	// Returns ErrModeratorTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.ModeratorTask, error)

	// GetByIDForUpdate retrieves a task and locks its row until the enclosing
	// transaction ends. Outside a transaction it behaves like GetByID.
	// Returns ErrModeratorTaskNotFound if the task does not exist.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.ModeratorTask, error)

	// Update writes the mutable fields of a task: assignee, assign time,
	// resolution time, resolver and resolver action.
	// Returns ErrModeratorTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.ModeratorTask) error

	// NextAssignable locks and returns the first unresolved task that is
	// unassigned or whose assignment predates query.LeaseCutoff, passing the
	// language filter, ordered by priority rank, then creation time, then ID.
	// Rows locked by another transaction are skipped.
	// Returns ErrModeratorTaskNotFound if no task is eligible.
	NextAssignable(ctx context.Context, query NextTaskQuery) (*domain.ModeratorTask, error)

	// LockSubject takes a lock on key held until the enclosing transaction
	// ends, serializing producers that replace pending tasks of one subject.
	LockSubject(ctx context.Context, key string) error

	// DeleteUnresolved removes the unresolved tasks selected by match and
	// returns how many rows were deleted.
	DeleteUnresolved(ctx context.Context, match PendingTaskMatch) (int64, error)

	// List returns the tasks selected by query ordered by creation time, then ID.
	// Returns an empty slice when nothing matches.
	List(ctx context.Context, query TaskListQuery) ([]*domain.ModeratorTask, error)

	// CountByLanguage counts tasks, unresolved only unless includeResolved is set.
	CountByLanguage(ctx context.Context, includeResolved bool) (*domain.LanguageCounts, error)

	// DeleteResolvedBefore removes tasks resolved strictly before cutoff and
	// returns how many rows were deleted.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a ModeratorTaskStore that runs its queries inside tx.
	WithTx(tx *sql.Tx) ModeratorTaskStore
}
