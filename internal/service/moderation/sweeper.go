package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain/lease"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
)

// Sweep implements Service.Sweep.
func (s *moderationServiceImpl) Sweep(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted int64
	var pending []*events.ModerationEvent
	err := s.runner.WithinTx(ctx, func(ctx context.Context, repos Repositories) error {
		uow := &unitOfWork{repos: repos, now: now.UTC()}
		n, err := s.sweepAt(ctx, uow)
		deleted, pending = n, uow.pending
		return err
	})
	if err != nil {
		return 0, s.mapError(log, "sweep", err)
	}

	s.emit(ctx, pending)
	return deleted, nil
}

// sweep removes expired resolved tasks as the first step of an operation.
func (s *moderationServiceImpl) sweep(ctx context.Context, uow *unitOfWork) error {
	_, err := s.sweepAt(ctx, uow)
	return err
}

func (s *moderationServiceImpl) sweepAt(ctx context.Context, uow *unitOfWork) (int64, error) {
	cutoff := lease.RetentionCutoff(uow.now, s.params.RetentionWindow)

	deleted, err := uow.repos.Tasks.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep resolved tasks: %w", err)
	}
	if deleted == 0 {
		return 0, nil
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("swept resolved moderator tasks",
		slog.Int64("deleted", deleted),
		slog.Time("cutoff", cutoff))

	event, err := events.NewModerationEvent(events.TasksSwept, 0, uuid.Nil,
		events.SweepPayload{Deleted: deleted, Cutoff: cutoff}, uow.now)
	if err != nil {
		return 0, fmt.Errorf("failed to build %s event: %w", events.TasksSwept, err)
	}
	uow.pending = append(uow.pending, event)

	return deleted, nil
}
