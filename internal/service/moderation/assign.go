package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/domain/lease"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/store"
)

// Assign implements Service.Assign.
func (s *moderationServiceImpl) Assign(ctx context.Context, req AssignRequest) (*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	knownLangs, err := domain.NormalizeLangs(req.KnownLangs)
	if err != nil {
		return nil, invalidParams(err)
	}

	assigneeID := assigneeOrCaller(req)
	forOther := assigneeID != req.CallerID

	var assigned *domain.ModeratorTask
	err = s.run(ctx, "assign", func(ctx context.Context, uow *unitOfWork) error {
		if err := s.requireModerator(ctx, uow, req.CallerID, forOther); err != nil {
			return err
		}
		if forOther {
			assignee, err := s.principal(ctx, uow, assigneeID)
			if err != nil {
				return err
			}
			if !assignee.IsAtLeastModerator() {
				log.Warn("assignee is not a moderator",
					slog.String("caller_id", req.CallerID.String()),
					slog.String("assignee_id", assigneeID.String()))
				return ErrAssigneeNotModerator
			}
		}

		task, err := s.pickTask(ctx, uow, req.TaskID, knownLangs)
		if err != nil {
			return err
		}

		task.Assign(assigneeID, uow.now)
		if err := uow.repos.Tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to store assignment: %w", err)
		}
		if err := uow.record(events.TaskAssigned, task, req.CallerID); err != nil {
			return err
		}

		assigned = s.present(uow, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("moderator task assigned",
		slog.Int64("task_id", assigned.ID),
		slog.String("assignee_id", assigneeID.String()),
		slog.Bool("explicit", req.TaskID != nil))
	return assigned, nil
}

// pickTask locks the task to assign: the requested one whatever its state,
// or the first eligible unresolved task.
func (s *moderationServiceImpl) pickTask(
	ctx context.Context,
	uow *unitOfWork,
	taskID *int64,
	knownLangs []string,
) (*domain.ModeratorTask, error) {
	if taskID != nil {
		return s.loadForUpdate(ctx, uow, *taskID)
	}

	task, err := uow.repos.Tasks.NextAssignable(ctx, store.NextTaskQuery{
		LeaseCutoff: lease.Cutoff(uow.now, s.params.LeaseWindow),
		KnownLangs:  knownLangs,
	})
	if err != nil {
		if errors.Is(err, store.ErrModeratorTaskNotFound) {
			return nil, ErrNoUnresolvedTasks
		}
		return nil, fmt.Errorf("failed to find assignable task: %w", err)
	}
	return task, nil
}

// assigneeOrCaller is the user an assignment request is made for.
func assigneeOrCaller(req AssignRequest) uuid.UUID {
	if req.AssigneeID != nil {
		return *req.AssigneeID
	}
	return req.CallerID
}
