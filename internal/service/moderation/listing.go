package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/domain/lease"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/store"
)

// ListAll implements Service.ListAll.
func (s *moderationServiceImpl) ListAll(
	ctx context.Context,
	callerID uuid.UUID,
	query ListQuery,
) ([]*domain.ModeratorTask, error) {
	limit, offset, err := s.paging(query.Page, query.PageSize)
	if err != nil {
		return nil, err
	}
	if err := validateTypes(query.IncludeTypes); err != nil {
		return nil, err
	}
	if err := validateTypes(query.ExcludeTypes); err != nil {
		return nil, err
	}

	return s.list(ctx, "list_all", callerID, true, store.TaskListQuery{
		IncludeResolved: query.IncludeResolved,
		Lang:            query.Lang,
		IncludeTypes:    query.IncludeTypes,
		ExcludeTypes:    query.ExcludeTypes,
		Limit:           limit,
		Offset:          offset,
	})
}

// ListAssignedTo implements Service.ListAssignedTo.
func (s *moderationServiceImpl) ListAssignedTo(
	ctx context.Context,
	callerID, assigneeID uuid.UUID,
	includeResolved bool,
	page, pageSize int,
) ([]*domain.ModeratorTask, error) {
	limit, offset, err := s.paging(page, pageSize)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, "list_assigned_to", callerID, assigneeID != callerID, store.TaskListQuery{
		IncludeResolved: includeResolved,
		AssignedTo:      &assigneeID,
		Limit:           limit,
		Offset:          offset,
	})
}

func (s *moderationServiceImpl) list(
	ctx context.Context,
	operation string,
	callerID uuid.UUID,
	requireFull bool,
	query store.TaskListQuery,
) ([]*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var tasks []*domain.ModeratorTask
	err := s.run(ctx, operation, func(ctx context.Context, uow *unitOfWork) error {
		if err := s.requireModerator(ctx, uow, callerID, requireFull); err != nil {
			return err
		}

		query.LeaseCutoff = lease.Cutoff(uow.now, s.params.LeaseWindow)
		stored, err := uow.repos.Tasks.List(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		tasks = lease.PresentAll(stored, uow.now, s.params.LeaseWindow)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("listed moderator tasks",
		slog.String("operation", operation),
		slog.Int("count", len(tasks)))
	return tasks, nil
}

// CountByLanguage implements Service.CountByLanguage.
func (s *moderationServiceImpl) CountByLanguage(
	ctx context.Context,
	callerID uuid.UUID,
	includeResolved bool,
) (*domain.LanguageCounts, error) {
	var counts *domain.LanguageCounts
	err := s.run(ctx, "count_by_language", func(ctx context.Context, uow *unitOfWork) error {
		if err := s.requireModerator(ctx, uow, callerID, false); err != nil {
			return err
		}

		var err error
		counts, err = uow.repos.Tasks.CountByLanguage(ctx, includeResolved)
		if err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// GetOne implements Service.GetOne.
func (s *moderationServiceImpl) GetOne(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
) (*domain.ModeratorTask, error) {
	var task *domain.ModeratorTask
	err := s.run(ctx, "get_one", func(ctx context.Context, uow *unitOfWork) error {
		if err := s.requireModerator(ctx, uow, callerID, false); err != nil {
			return err
		}

		stored, err := uow.repos.Tasks.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, store.ErrModeratorTaskNotFound) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to get task %d: %w", taskID, err)
		}
		task = s.present(uow, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// paging converts a page request to a limit and offset.
func (s *moderationServiceImpl) paging(page, pageSize int) (limit, offset int, err error) {
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	if page < 0 {
		return 0, 0, fmt.Errorf("%w: page must not be negative", ErrInvalidParams)
	}
	if pageSize < 1 || pageSize > s.maxPageSize {
		return 0, 0, fmt.Errorf("%w: page size must be between 1 and %d", ErrInvalidParams, s.maxPageSize)
	}
	if page > math.MaxInt/pageSize {
		return 0, 0, fmt.Errorf("%w: page is out of range", ErrInvalidParams)
	}
	return pageSize, page * pageSize, nil
}

func validateTypes(types []domain.TaskType) error {
	for _, t := range types {
		if !t.IsValid() {
			return invalidParams(fmt.Errorf("%w: %q", domain.ErrInvalidTaskType, t))
		}
	}
	return nil
}
