package moderation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/events"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

const (
	leaseWindow     = 5 * time.Minute
	retentionWindow = 7 * 24 * time.Hour
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*events.ModerationEvent
}

func (r *eventRecorder) HandleEvent(_ context.Context, event *events.ModerationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	ctx      context.Context
	db       *memDB
	clock    *testClock
	recorder *eventRecorder
	svc      moderation.Service

	moderator      uuid.UUID
	otherModerator uuid.UUID
	admin          uuid.UUID
	user           uuid.UUID
}

func newFixture(t *testing.T, handlers ...events.EventHandler) *fixture {
	t.Helper()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := newMemDB()
	clock := &testClock{now: t0}
	recorder := &eventRecorder{}

	emitter := events.NewInMemoryEventEmitter(discard)
	emitter.RegisterHandler(recorder)
	for _, h := range handlers {
		emitter.RegisterHandler(h)
	}

	svc := moderation.NewModerationService(db, emitter, clock, moderation.Config{
		LeaseWindow:     leaseWindow,
		RetentionWindow: retentionWindow,
	}, discard)

	f := &fixture{
		ctx:            context.Background(),
		db:             db,
		clock:          clock,
		recorder:       recorder,
		svc:            svc,
		moderator:      uuid.New(),
		otherModerator: uuid.New(),
		admin:          uuid.New(),
		user:           uuid.New(),
	}
	db.grant(f.moderator, domain.RightsLevelContentModerator)
	db.grant(f.otherModerator, domain.RightsLevelContentModerator)
	db.grant(f.admin, domain.RightsLevelEverything)
	db.grant(f.user, domain.RightsLevelNormal)
	return f
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

// productChange submits a change of the given product-change kind.
func (f *fixture) productChange(
	t *testing.T,
	kind domain.TaskType,
	barcode string,
	langs ...string,
) []*domain.ModeratorTask {
	t.Helper()
	tasks, err := f.svc.SubmitSubjectChange(f.ctx, moderation.SubjectChange{
		TaskType:       kind,
		SubjectBarcode: strPtr(barcode),
		SourceUserID:   f.user,
		Langs:          langs,
	})
	require.NoError(t, err)
	return tasks
}

func (f *fixture) report(t *testing.T, barcode string) *domain.ModeratorTask {
	t.Helper()
	tasks, err := f.svc.SubmitSubjectChange(f.ctx, moderation.SubjectChange{
		TaskType:       domain.TaskTypeUserReport,
		SubjectBarcode: strPtr(barcode),
		SourceUserID:   f.user,
		TextFromUser:   strPtr("wrong ingredients"),
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func (f *fixture) feedback(t *testing.T) *domain.ModeratorTask {
	t.Helper()
	tasks, err := f.svc.SubmitSubjectChange(f.ctx, moderation.SubjectChange{
		TaskType:     domain.TaskTypeUserFeedback,
		SourceUserID: f.user,
		TextFromUser: strPtr("love the app"),
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func (f *fixture) autoAssign(caller uuid.UUID, knownLangs []string) (*domain.ModeratorTask, error) {
	return f.svc.Assign(f.ctx, moderation.AssignRequest{CallerID: caller, KnownLangs: knownLangs})
}

func (f *fixture) listAll(t *testing.T, query moderation.ListQuery) []*domain.ModeratorTask {
	t.Helper()
	tasks, err := f.svc.ListAll(f.ctx, f.admin, query)
	require.NoError(t, err)
	return tasks
}

func ids(tasks []*domain.ModeratorTask) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func TestNewModerationService_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	emitter := events.NewInMemoryEventEmitter(nil)
	assert.Panics(t, func() {
		moderation.NewModerationService(nil, emitter, nil, moderation.Config{}, nil)
	})
	assert.Panics(t, func() {
		moderation.NewModerationService(newMemDB(), nil, nil, moderation.Config{}, nil)
	})
	assert.NotPanics(t, func() {
		moderation.NewModerationService(newMemDB(), emitter, nil, moderation.Config{}, nil)
	})
}

// Reports outrank feedback, which outranks product changes; within a rank
// the older task is served first.
func TestScenario_PriorityAcrossKinds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	change := f.productChange(t, domain.TaskTypeProductChange, "3017620422003")[0]
	f.clock.Advance(time.Second)
	olderFeedback := f.feedback(t)
	f.clock.Advance(time.Second)
	report := f.report(t, "5449000000996")
	f.clock.Advance(time.Second)
	newerFeedback := f.feedback(t)

	var served []int64
	for i := 0; i < 4; i++ {
		task, err := f.autoAssign(f.moderator, nil)
		require.NoError(t, err)
		served = append(served, task.ID)
	}
	assert.Equal(t, []int64{report.ID, olderFeedback.ID, newerFeedback.ID, change.ID}, served)

	_, err := f.autoAssign(f.moderator, nil)
	assert.ErrorIs(t, err, moderation.ErrNoUnresolvedTasks)
}

func TestScenario_AssignmentFollowsEveryRank(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	shop := func(osmUID string) *domain.ModeratorTask {
		tasks, err := f.svc.SubmitSubjectChange(f.ctx, moderation.SubjectChange{
			TaskType:      domain.TaskTypeShopCreationReview,
			SubjectOsmUID: strPtr(osmUID),
			SourceUserID:  f.user,
		})
		require.NoError(t, err)
		return tasks[0]
	}

	// Created in reverse of the order they are served.
	external := f.productChange(t, domain.TaskTypeProductChangeInExternalSource, "111", "en")[0]
	f.clock.Advance(time.Second)
	change := f.productChange(t, domain.TaskTypeProductChange, "222", "en")[0]
	f.clock.Advance(time.Second)
	olderShop := shop("node:1")
	f.clock.Advance(time.Second)
	feedback := f.feedback(t)
	f.clock.Advance(time.Second)
	newerShop := shop("node:2")
	f.clock.Advance(time.Second)
	report := f.report(t, "333")

	var served []int64
	seen := map[int64]bool{}
	for i := 0; i < 6; i++ {
		task, err := f.autoAssign(f.moderator, nil)
		require.NoError(t, err)
		require.False(t, seen[task.ID], "task %d served twice", task.ID)
		seen[task.ID] = true
		served = append(served, task.ID)
	}
	assert.Equal(t, []int64{
		report.ID, feedback.ID, olderShop.ID, newerShop.ID, change.ID, external.ID,
	}, served)

	_, err := f.autoAssign(f.moderator, nil)
	assert.ErrorIs(t, err, moderation.ErrNoUnresolvedTasks)
}

func TestScenario_StaleClaimIsReclaimed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	created := f.report(t, "5449000000996")
	claimed, err := f.autoAssign(f.moderator, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, claimed.ID)
	writes := f.db.updateCount()

	f.clock.Set(t0.Add(leaseWindow + time.Second))

	mine, err := f.svc.ListAssignedTo(f.ctx, f.moderator, f.moderator, false, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, mine)

	seen, err := f.svc.GetOne(f.ctx, f.moderator, created.ID)
	require.NoError(t, err)
	assert.Nil(t, seen.Assignee)
	assert.Nil(t, seen.AssignTime)

	row, ok := f.db.stored(created.ID)
	require.True(t, ok)
	assert.Equal(t, f.moderator, *row.Assignee, "presentation must not write")
	assert.Equal(t, writes, f.db.updateCount())

	reclaimed, err := f.autoAssign(f.otherModerator, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, reclaimed.ID)
	assert.Equal(t, f.otherModerator, *reclaimed.Assignee)
}

func TestEvents_EmittedAfterCommit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tasks := f.productChange(t, domain.TaskTypeProductChange, "123", "en", "fr")
	require.Len(t, tasks, 2)
	_, err := f.autoAssign(f.moderator, nil)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{events.TaskCreated, events.TaskCreated, events.TaskAssigned}, f.recorder.types())
	assert.Equal(t, f.user, f.recorder.events[0].ActorID)
	assert.Equal(t, f.moderator, f.recorder.events[2].ActorID)

	_, err = f.svc.Resolve(f.ctx, f.moderator, 999, nil)
	require.ErrorIs(t, err, moderation.ErrTaskNotFound)
	assert.Len(t, f.recorder.types(), 3, "failed operations emit nothing")
}

func TestEvents_HandlerFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	failing := events.HandlerFunc(func(context.Context, *events.ModerationEvent) error {
		return errors.New("audit sink down")
	})
	f := newFixture(t, failing)

	task := f.report(t, "123")
	assert.NotZero(t, task.ID)
	assert.Equal(t, 1, f.db.count())
}

func TestServiceError_WrapsUnexpectedFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	task := f.report(t, "123")

	f.db.lookupErr = errors.New("connection refused")
	_, err := f.svc.Resolve(f.ctx, f.moderator, task.ID, nil)

	var serviceErr *moderation.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "resolve", serviceErr.Operation)
	assert.ErrorContains(t, err, "connection refused")
	assert.NotErrorIs(t, err, moderation.ErrTaskNotFound)
}

func TestServiceError_Message(t *testing.T) {
	t.Parallel()

	withCause := moderation.NewServiceError("assign", "unexpected failure", errors.New("boom"))
	assert.Equal(t, "assign operation failed: unexpected failure: boom", withCause.Error())

	bare := moderation.NewServiceError("assign", "unexpected failure", nil)
	assert.Equal(t, "assign operation failed: unexpected failure", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConcurrentAutomaticAssignmentNeverSharesATask(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	const n = 20
	for i := 0; i < n; i++ {
		f.productChange(t, domain.TaskTypeProductChange, "barcode-"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	results := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := f.autoAssign(f.moderator, nil)
			if assert.NoError(t, err) {
				results <- task.ID
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for id := range results {
		assert.False(t, seen[id], "task %d assigned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	_, err := f.autoAssign(f.moderator, nil)
	assert.ErrorIs(t, err, moderation.ErrNoUnresolvedTasks)
}
