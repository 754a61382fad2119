package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/domain/lease"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/store"
)

// Default paging limits.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Config tunes the service. Zero values select the defaults.
type Config struct {
	LeaseWindow     time.Duration
	RetentionWindow time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// Verify interface compliance at compile time
var _ Service = (*moderationServiceImpl)(nil)

// moderationServiceImpl implements the Service interface.
type moderationServiceImpl struct {
	runner          TxRunner
	emitter         events.EventEmitter
	clock           domain.Clock
	params          *lease.Params
	defaultPageSize int
	maxPageSize     int
	logger          *slog.Logger
}

// NewModerationService creates a new Service implementation.
func NewModerationService(
	runner TxRunner,
	emitter events.EventEmitter,
	clock domain.Clock,
	cfg Config,
	logger *slog.Logger,
) Service {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	defaultPageSize := cfg.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}

	return &moderationServiceImpl{
		runner:  runner,
		emitter: emitter,
		clock:   clock,
		params: lease.NewParams(lease.ParamsConfig{
			LeaseWindow:     cfg.LeaseWindow,
			RetentionWindow: cfg.RetentionWindow,
		}),
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger.With(slog.String("component", "moderation_service")),
	}
}

// unitOfWork is the state of one service operation inside its transaction.
type unitOfWork struct {
	repos   Repositories
	now     time.Time
	pending []*events.ModerationEvent
}

// record queues an event to be emitted once the transaction commits.
func (u *unitOfWork) record(eventType events.EventType, task *domain.ModeratorTask, actor uuid.UUID) error {
	var taskID int64
	var payload any
	if task != nil {
		taskID = task.ID
		payload = events.TaskPayload{
			TaskType:       string(task.TaskType),
			SubjectBarcode: task.SubjectBarcode,
			SubjectOsmUID:  task.SubjectOsmUID,
			Lang:           task.Lang,
			Assignee:       task.Assignee,
			ResolverAction: task.ResolverAction,
		}
	}
	event, err := events.NewModerationEvent(eventType, taskID, actor, payload, u.now)
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	u.pending = append(u.pending, event)
	return nil
}

// run executes fn in a transaction that starts with a retention sweep, maps
// the error for the caller and emits the queued events after commit.
func (s *moderationServiceImpl) run(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, uow *unitOfWork) error,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock.Now().UTC()

	var uow *unitOfWork
	err := s.runner.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		uow = &unitOfWork{repos: repos, now: now}
		if err := s.sweep(ctx, uow); err != nil {
			return err
		}
		return fn(ctx, uow)
	})
	if err != nil {
		return s.mapError(log, operation, err)
	}

	s.emit(ctx, uow.pending)
	return nil
}

// mapError passes the service sentinels through and wraps anything else.
func (s *moderationServiceImpl) mapError(log *slog.Logger, operation string, err error) error {
	switch {
	case errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrNoUnresolvedTasks),
		errors.Is(err, ErrAssigneeNotModerator),
		errors.Is(err, ErrInvalidParams),
		errors.Is(err, ErrDenied):
		return err
	case errors.Is(err, domain.ErrValidation):
		return invalidParams(err)
	}

	log.Error("moderation operation failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()))
	return NewServiceError(operation, "unexpected failure", err)
}

// emit publishes committed events. Handler failures are logged only: the
// change they describe has already been committed.
func (s *moderationServiceImpl) emit(ctx context.Context, pending []*events.ModerationEvent) {
	for _, event := range pending {
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Warn("event handler failed",
				slog.String("event_type", string(event.Type)),
				slog.String("error", err.Error()))
		}
	}
}

// principal looks up the rights of userID. Users without stored rights are
// normal users.
func (s *moderationServiceImpl) principal(
	ctx context.Context,
	uow *unitOfWork,
	userID uuid.UUID,
) (*domain.Principal, error) {
	p, err := uow.repos.Principals.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrPrincipalNotFound) {
			return domain.NormalPrincipal(userID), nil
		}
		return nil, fmt.Errorf("failed to look up rights of user %s: %w", userID, err)
	}
	return p, nil
}

// requireModerator checks that the caller is at least a moderator, or a full
// moderator when full is set.
func (s *moderationServiceImpl) requireModerator(
	ctx context.Context,
	uow *unitOfWork,
	callerID uuid.UUID,
	full bool,
) error {
	if callerID == uuid.Nil {
		return ErrDenied
	}

	p, err := s.principal(ctx, uow, callerID)
	if err != nil {
		return err
	}

	allowed := p.IsAtLeastModerator()
	if full {
		allowed = p.IsFullModerator()
	}
	if !allowed {
		logger.FromContextOrDefault(ctx, s.logger).Warn("moderation access denied",
			slog.String("user_id", callerID.String()),
			slog.String("rights_level", string(p.RightsLevel)),
			slog.Bool("requires_full", full))
		return ErrDenied
	}
	return nil
}

// loadForUpdate locks a task for the rest of the transaction.
func (s *moderationServiceImpl) loadForUpdate(
	ctx context.Context,
	uow *unitOfWork,
	taskID int64,
) (*domain.ModeratorTask, error) {
	task, err := uow.repos.Tasks.GetByIDForUpdate(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrModeratorTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task %d: %w", taskID, err)
	}
	return task, nil
}

// present returns task as seen at the operation's time.
func (s *moderationServiceImpl) present(uow *unitOfWork, task *domain.ModeratorTask) *domain.ModeratorTask {
	return lease.Present(task, uow.now, s.params.LeaseWindow)
}
