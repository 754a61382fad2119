package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
	"github.com/stretchr/testify/mock"
)

// MockModerationService is a testify mock of moderation.Service.
type MockModerationService struct {
	mock.Mock
}

var _ moderation.Service = (*MockModerationService)(nil)

func taskOrNil(v interface{}) *domain.ModeratorTask {
	if v == nil {
		return nil
	}
	return v.(*domain.ModeratorTask)
}

func tasksOrNil(v interface{}) []*domain.ModeratorTask {
	if v == nil {
		return nil
	}
	return v.([]*domain.ModeratorTask)
}

// SubmitSubjectChange implements moderation.Service
func (m *MockModerationService) SubmitSubjectChange(
	ctx context.Context,
	change moderation.SubjectChange,
) ([]*domain.ModeratorTask, error) {
	args := m.Called(ctx, change)
	return tasksOrNil(args.Get(0)), args.Error(1)
}

// Assign implements moderation.Service
func (m *MockModerationService) Assign(
	ctx context.Context,
	req moderation.AssignRequest,
) (*domain.ModeratorTask, error) {
	args := m.Called(ctx, req)
	return taskOrNil(args.Get(0)), args.Error(1)
}

// Resolve implements moderation.Service
func (m *MockModerationService) Resolve(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
	performedAction *string,
) (*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, taskID, performedAction)
	return taskOrNil(args.Get(0)), args.Error(1)
}

// Reject implements moderation.Service
func (m *MockModerationService) Reject(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
) (*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, taskID)
	return taskOrNil(args.Get(0)), args.Error(1)
}

// Unresolve implements moderation.Service
func (m *MockModerationService) Unresolve(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
) (*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, taskID)
	return taskOrNil(args.Get(0)), args.Error(1)
}

// RecordCustomAction implements moderation.Service
func (m *MockModerationService) RecordCustomAction(
	ctx context.Context,
	callerID uuid.UUID,
	action moderation.CustomAction,
) (*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, action)
	return taskOrNil(args.Get(0)), args.Error(1)
}

// ListAll implements moderation.Service
func (m *MockModerationService) ListAll(
	ctx context.Context,
	callerID uuid.UUID,
	query moderation.ListQuery,
) ([]*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, query)
	return tasksOrNil(args.Get(0)), args.Error(1)
}

// ListAssignedTo implements moderation.Service
func (m *MockModerationService) ListAssignedTo(
	ctx context.Context,
	callerID, assigneeID uuid.UUID,
	includeResolved bool,
	page, pageSize int,
) ([]*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, assigneeID, includeResolved, page, pageSize)
	return tasksOrNil(args.Get(0)), args.Error(1)
}

// CountByLanguage implements moderation.Service
func (m *MockModerationService) CountByLanguage(
	ctx context.Context,
	callerID uuid.UUID,
	includeResolved bool,
) (*domain.LanguageCounts, error) {
	args := m.Called(ctx, callerID, includeResolved)
	if v := args.Get(0); v != nil {
		return v.(*domain.LanguageCounts), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetOne implements moderation.Service
func (m *MockModerationService) GetOne(
	ctx context.Context,
	callerID uuid.UUID,
	taskID int64,
) (*domain.ModeratorTask, error) {
	args := m.Called(ctx, callerID, taskID)
	return taskOrNil(args.Get(0)), args.Error(1)
}

// Sweep implements moderation.Service
func (m *MockModerationService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
