package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
)

// SubjectChange is a producer's notification that something about a subject
// needs moderator attention.
type SubjectChange struct {
	TaskType       domain.TaskType
	SubjectBarcode *string
	SubjectOsmUID  *string
	SourceUserID   uuid.UUID
	TextFromUser   *string
	// Langs names the languages affected by the change. It is ignored for
	// task types that do not carry a language.
	Langs []string
}

// AssignRequest asks for a task to be assigned.
type AssignRequest struct {
	CallerID uuid.UUID
	// TaskID selects a specific task. When nil, the engine picks the next
	// eligible task.
	TaskID *int64
	// AssigneeID defaults to the caller.
	AssigneeID *uuid.UUID
	// KnownLangs restricts an automatic pick to tasks without a language or
	// in one of these languages. Nil disables the filter.
	KnownLangs []string
}

// CustomAction describes a moderator action recorded directly as resolved work.
type CustomAction struct {
	Note           string
	SubjectBarcode *string
	SubjectOsmUID  *string
}

// ListQuery selects tasks for ListAll.
type ListQuery struct {
	IncludeResolved bool
	Lang            domain.LanguageFilter
	IncludeTypes    []domain.TaskType
	ExcludeTypes    []domain.TaskType
	Page            int
	PageSize        int
}

// Service is the moderator task queue.
type Service interface {
	// SubmitSubjectChange records work for moderators on behalf of a producer.
	//
	// For task types that deduplicate by subject, pending tasks of the other
	// types in the same dedup group are removed, and for each affected
	// language the pending task of exactly (subject, type, language) is
	// replaced by a fresh one. Pending tasks for languages the change does not
	// name are left alone. Other task types are always inserted.
	//
	// Returns:
	//   - the created tasks, one per affected language
	//   - ErrInvalidParams for an unknown type, a malformed subject or language,
	//     missing text, or a CustomModerationAction (use RecordCustomAction)
	SubmitSubjectChange(ctx context.Context, change SubjectChange) ([]*domain.ModeratorTask, error)

	// Assign gives a task to the assignee, which defaults to the caller.
	//
	// With a TaskID the task is assigned whatever its status, overriding any
	// live lease. Without one, the first unresolved task that is unassigned or
	// whose lease has lapsed is picked, ordered by priority rank, then
	// creation time, then ID.
	//
	// Returns:
	//   - ErrTaskNotFound if TaskID does not exist
	//   - ErrNoUnresolvedTasks if nothing is eligible for an automatic pick
	//   - ErrAssigneeNotModerator if the assignee lacks moderator rights
	//   - ErrDenied if the caller may not assign to the requested assignee
	Assign(ctx context.Context, req AssignRequest) (*domain.ModeratorTask, error)

	// Resolve marks a task resolved by the caller with an optional note.
	// Resolving a resolved task overwrites the previous resolution.
	// Returns ErrTaskNotFound if the task does not exist.
	Resolve(ctx context.Context, callerID uuid.UUID, taskID int64, performedAction *string) (*domain.ModeratorTask, error)

	// Reject returns a task to the pool by clearing its assignment. The caller
	// is recorded as resolver for audit; the resolution time is untouched.
	// Returns ErrTaskNotFound if the task does not exist.
	Reject(ctx context.Context, callerID uuid.UUID, taskID int64) (*domain.ModeratorTask, error)

	// Unresolve reopens a task, clearing the resolution time, resolver and
	// resolver action. Returns ErrTaskNotFound if the task does not exist.
	Unresolve(ctx context.Context, callerID uuid.UUID, taskID int64) (*domain.ModeratorTask, error)

	// RecordCustomAction creates a CustomModerationAction task that is already
	// resolved by the caller, with the note as resolver action.
	RecordCustomAction(ctx context.Context, callerID uuid.UUID, action CustomAction) (*domain.ModeratorTask, error)

	// ListAll returns a page of tasks ordered by creation time, then ID.
	// Requires full moderator rights.
	ListAll(ctx context.Context, callerID uuid.UUID, query ListQuery) ([]*domain.ModeratorTask, error)

	// ListAssignedTo returns a page of the tasks held by assigneeID under a
	// live lease. Listing another user's tasks requires full moderator rights.
	ListAssignedTo(
		ctx context.Context,
		callerID, assigneeID uuid.UUID,
		includeResolved bool,
		page, pageSize int,
	) ([]*domain.ModeratorTask, error)

	// CountByLanguage counts tasks in total and per language. Tasks without a
	// language count toward the total only.
	CountByLanguage(ctx context.Context, callerID uuid.UUID, includeResolved bool) (*domain.LanguageCounts, error)

	// GetOne returns a single task. Returns ErrTaskNotFound if it does not exist.
	GetOne(ctx context.Context, callerID uuid.UUID, taskID int64) (*domain.ModeratorTask, error)

	// Sweep deletes the tasks whose resolution predates now by more than the
	// retention window and returns how many were removed. Every other
	// operation sweeps on its own; Sweep exists for callers that want to
	// purge without touching the queue.
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// Common error types for Service
var (
	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = errors.New("moderator task not found")

	// ErrNoUnresolvedTasks indicates that no task is eligible for automatic assignment.
	ErrNoUnresolvedTasks = errors.New("no unresolved moderator tasks")

	// ErrAssigneeNotModerator indicates that the requested assignee lacks moderator rights.
	ErrAssigneeNotModerator = errors.New("assignee is not a moderator")

	// ErrInvalidParams indicates malformed input. The wrapped error, if any,
	// names the offending value.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrDenied indicates that the caller's rights do not allow the operation.
	ErrDenied = errors.New("permission denied")
)

// ServiceError wraps unexpected errors from the moderation service with the
// operation that failed.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "assign", "resolve")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for the named operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// invalidParams tags err as caller input that could not be accepted.
func invalidParams(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidParams, err)
}
