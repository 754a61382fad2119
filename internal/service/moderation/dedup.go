package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/store"
)

// SubmitSubjectChange implements Service.SubmitSubjectChange.
func (s *moderationServiceImpl) SubmitSubjectChange(
	ctx context.Context,
	change SubjectChange,
) ([]*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	desc, ok := change.TaskType.Descriptor()
	if !ok {
		log.Warn("subject change with unknown task type", slog.String("task_type", string(change.TaskType)))
		return nil, invalidParams(domain.ErrInvalidTaskType)
	}
	if change.TaskType == domain.TaskTypeCustomModerationAction {
		return nil, fmt.Errorf("%w: custom moderation actions are recorded by moderators", ErrInvalidParams)
	}

	slots, err := languageSlots(desc, change.Langs)
	if err != nil {
		log.Warn("subject change with invalid language",
			slog.String("task_type", string(change.TaskType)),
			slog.String("error", err.Error()))
		return nil, invalidParams(err)
	}

	var created []*domain.ModeratorTask
	err = s.run(ctx, "submit_subject_change", func(ctx context.Context, uow *unitOfWork) error {
		created = nil

		// Build every task first so that an invalid change deletes nothing.
		tasks := make([]*domain.ModeratorTask, 0, len(slots))
		for _, lang := range slots {
			task, err := domain.NewModeratorTask(domain.NewTaskParams{
				TaskType:       change.TaskType,
				SubjectBarcode: change.SubjectBarcode,
				SubjectOsmUID:  change.SubjectOsmUID,
				SourceUserID:   change.SourceUserID,
				TextFromUser:   change.TextFromUser,
				Lang:           lang,
			}, uow.now)
			if err != nil {
				return invalidParams(err)
			}
			tasks = append(tasks, task)
		}

		if desc.Dedup == domain.DedupBySubject {
			// Concurrent changes to one subject would otherwise both find
			// nothing to delete and both insert.
			if err := uow.repos.Tasks.LockSubject(ctx, subjectLockKey(desc, tasks[0])); err != nil {
				return fmt.Errorf("failed to lock subject: %w", err)
			}
			if err := s.replaceGroupSiblings(ctx, uow, tasks[0]); err != nil {
				return err
			}
		}

		for _, task := range tasks {
			if desc.Dedup == domain.DedupBySubject {
				match := pendingMatch(task, []domain.TaskType{task.TaskType}, true)
				if _, err := uow.repos.Tasks.DeleteUnresolved(ctx, match); err != nil {
					return fmt.Errorf("failed to replace pending task: %w", err)
				}
			}
			if err := uow.repos.Tasks.Create(ctx, task); err != nil {
				return fmt.Errorf("failed to create task: %w", err)
			}
			if err := uow.record(events.TaskCreated, task, task.SourceUserID); err != nil {
				return err
			}
			created = append(created, s.present(uow, task))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug("subject change recorded",
		slog.String("task_type", string(change.TaskType)),
		slog.Int("tasks_created", len(created)))
	return created, nil
}

// replaceGroupSiblings removes pending tasks about the same subject whose
// type shares the dedup group of task's type, in every language.
func (s *moderationServiceImpl) replaceGroupSiblings(
	ctx context.Context,
	uow *unitOfWork,
	task *domain.ModeratorTask,
) error {
	siblings := domain.DedupGroupMembers(task.TaskType)
	if len(siblings) == 0 {
		return nil
	}

	deleted, err := uow.repos.Tasks.DeleteUnresolved(ctx, pendingMatch(task, siblings, false))
	if err != nil {
		return fmt.Errorf("failed to replace dedup group siblings: %w", err)
	}
	if deleted > 0 {
		logger.FromContextOrDefault(ctx, s.logger).Debug("replaced pending tasks of a sibling type",
			slog.String("task_type", string(task.TaskType)),
			slog.Int64("deleted", deleted))
	}
	return nil
}

// languageSlots returns the language of each task a change produces: one per
// distinct affected language for language-aware types, otherwise a single
// task without a language.
func languageSlots(desc domain.TaskTypeDescriptor, langs []string) ([]*string, error) {
	if !desc.LanguageAware {
		return []*string{nil}, nil
	}

	normalized, err := domain.NormalizeLangs(langs)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return []*string{nil}, nil
	}

	slots := make([]*string, 0, len(normalized))
	for i := range normalized {
		slots = append(slots, &normalized[i])
	}
	return slots, nil
}

// subjectLockKey names the subject of task within its dedup group, so that
// kinds replacing each other share a lock.
func subjectLockKey(desc domain.TaskTypeDescriptor, task *domain.ModeratorTask) string {
	if task.SubjectBarcode != nil {
		return desc.DedupGroup + ":barcode:" + *task.SubjectBarcode
	}
	return desc.DedupGroup + ":osm:" + *task.SubjectOsmUID
}

func pendingMatch(task *domain.ModeratorTask, types []domain.TaskType, matchLang bool) store.PendingTaskMatch {
	return store.PendingTaskMatch{
		SubjectBarcode: task.SubjectBarcode,
		SubjectOsmUID:  task.SubjectOsmUID,
		Types:          types,
		MatchLang:      matchLang,
		Lang:           task.Lang,
	}
}
