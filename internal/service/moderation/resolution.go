package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
)

// Resolve implements Service.Resolve.
func (s *moderationServiceImpl) Resolve(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
	performedAction *string,
) (*domain.ModeratorTask, error) {
	resolve := func(task *domain.ModeratorTask, uow *unitOfWork) {
		task.Resolve(callerID, performedAction, uow.now)
	}
	return s.transition(ctx, "resolve", events.TaskResolved, callerID, taskID, resolve)
}

// Reject implements Service.Reject.
func (s *moderationServiceImpl) Reject(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
) (*domain.ModeratorTask, error) {
	reject := func(task *domain.ModeratorTask, _ *unitOfWork) {
		task.ClearAssignment()
		// A resolved task keeps its resolver; the rejection is still in the event.
		if !task.IsResolved() {
			resolver := callerID
			task.Resolver = &resolver
		}
	}
	return s.transition(ctx, "reject", events.TaskRejected, callerID, taskID, reject)
}

// Unresolve implements Service.Unresolve.
func (s *moderationServiceImpl) Unresolve(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
) (*domain.ModeratorTask, error) {
	unresolve := func(task *domain.ModeratorTask, _ *unitOfWork) {
		task.Unresolve()
	}
	return s.transition(ctx, "unresolve", events.TaskUnresolved, callerID, taskID, unresolve)
}

// transition locks a task, applies mutate and stores the result.
func (s *moderationServiceImpl) transition(
	ctx context.Context,
	operation string,
	eventType events.EventType,
	callerID uuid.UUID,
	taskID int64,
	mutate func(task *domain.ModeratorTask, uow *unitOfWork),
) (*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result *domain.ModeratorTask
	err := s.run(ctx, operation, func(ctx context.Context, uow *unitOfWork) error {
		if err := s.requireModerator(ctx, uow, callerID, false); err != nil {
			return err
		}

		task, err := s.loadForUpdate(ctx, uow, taskID)
		if err != nil {
			return err
		}

		mutate(task, uow)
		if err := uow.repos.Tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to store task: %w", err)
		}
		if err := uow.record(eventType, task, callerID); err != nil {
			return err
		}

		result = s.present(uow, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("moderator task updated",
		slog.String("operation", operation),
		slog.Int64("task_id", taskID),
		slog.String("caller_id", callerID.String()))
	return result, nil
}

// RecordCustomAction implements Service.RecordCustomAction.
func (s *moderationServiceImpl) RecordCustomAction(
	ctx context.Context,
	callerID uuid.UUID,
	action CustomAction,
) (*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	note := strings.TrimSpace(action.Note)
	if note == "" {
		return nil, fmt.Errorf("%w: a custom action needs a note", ErrInvalidParams)
	}

	var recorded *domain.ModeratorTask
	err := s.run(ctx, "record_custom_action", func(ctx context.Context, uow *unitOfWork) error {
		if err := s.requireModerator(ctx, uow, callerID, false); err != nil {
			return err
		}

		task, err := domain.NewModeratorTask(domain.NewTaskParams{
			TaskType:       domain.TaskTypeCustomModerationAction,
			SubjectBarcode: action.SubjectBarcode,
			SubjectOsmUID:  action.SubjectOsmUID,
			SourceUserID:   callerID,
		}, uow.now)
		if err != nil {
			return invalidParams(err)
		}
		task.Resolve(callerID, &note, uow.now)

		if err := uow.repos.Tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create custom action: %w", err)
		}
		if err := uow.record(events.TaskCreated, task, callerID); err != nil {
			return err
		}

		recorded = s.present(uow, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("custom moderation action recorded",
		slog.Int64("task_id", recorded.ID),
		slog.String("caller_id", callerID.String()))
	return recorded, nil
}
