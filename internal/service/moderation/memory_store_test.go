package moderation_test

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
	"github.com/phrazzld/moderation-api/internal/store"
)

// memDB is an in-memory TxRunner whose transactions are serialized and
// applied to a copy of the state, committed only when the unit of work
// succeeds.
type memDB struct {
	mu         sync.Mutex
	state      *memState
	updates    int
	createHook func(task *domain.ModeratorTask) error
	lookupErr  error
	// subjectLocks records every LockSubject key, in call order.
	subjectLocks []string
}

type memState struct {
	nextID     int64
	tasks      map[int64]*domain.ModeratorTask
	principals map[uuid.UUID]*domain.Principal
}

func newMemDB() *memDB {
	return &memDB{state: &memState{
		nextID:     1,
		tasks:      map[int64]*domain.ModeratorTask{},
		principals: map[uuid.UUID]*domain.Principal{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:     s.nextID,
		tasks:      make(map[int64]*domain.ModeratorTask, len(s.tasks)),
		principals: make(map[uuid.UUID]*domain.Principal, len(s.principals)),
	}
	for id, t := range s.tasks {
		c.tasks[id] = t.Clone()
	}
	for id, p := range s.principals {
		copied := *p
		c.principals[id] = &copied
	}
	return c
}

var _ moderation.TxRunner = (*memDB)(nil)

func (db *memDB) WithinTx(ctx context.Context, fn func(context.Context, moderation.Repositories) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	working := db.state.clone()
	updatesBefore := db.updates
	repos := moderation.Repositories{
		Tasks:      &memTasks{db: db, state: working},
		Principals: &memPrincipals{db: db, state: working},
	}
	if err := fn(ctx, repos); err != nil {
		db.updates = updatesBefore
		return err
	}
	db.state = working
	return nil
}

// grant stores a rights level outside any transaction.
func (db *memDB) grant(userID uuid.UUID, level domain.RightsLevel) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.principals[userID] = &domain.Principal{UserID: userID, RightsLevel: level}
}

// stored returns the committed row for id, without lease presentation.
func (db *memDB) stored(id int64) (*domain.ModeratorTask, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.state.tasks[id]
	return t.Clone(), ok
}

func (db *memDB) count() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.state.tasks)
}

func (db *memDB) lockedSubjects() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.subjectLocks...)
}

func (db *memDB) updateCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.updates
}

type memTasks struct {
	db    *memDB
	state *memState
}

var _ store.ModeratorTaskStore = (*memTasks)(nil)

func (m *memTasks) Create(_ context.Context, task *domain.ModeratorTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if m.db.createHook != nil {
		if err := m.db.createHook(task); err != nil {
			return err
		}
	}
	task.ID = m.state.nextID
	m.state.nextID++
	m.state.tasks[task.ID] = task.Clone()
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id int64) (*domain.ModeratorTask, error) {
	t, ok := m.state.tasks[id]
	if !ok {
		return nil, store.ErrModeratorTaskNotFound
	}
	return t.Clone(), nil
}

func (m *memTasks) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ModeratorTask, error) {
	return m.GetByID(ctx, id)
}

func (m *memTasks) Update(_ context.Context, task *domain.ModeratorTask) error {
	existing, ok := m.state.tasks[task.ID]
	if !ok {
		return store.ErrModeratorTaskNotFound
	}
	if (task.Assignee == nil) != (task.AssignTime == nil) {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInconsistentAssignment)
	}
	updated := existing.Clone()
	c := task.Clone()
	updated.Assignee, updated.AssignTime = c.Assignee, c.AssignTime
	updated.ResolutionTime, updated.Resolver, updated.ResolverAction = c.ResolutionTime, c.Resolver, c.ResolverAction
	m.state.tasks[task.ID] = updated
	m.db.updates++
	return nil
}

func (m *memTasks) NextAssignable(_ context.Context, query store.NextTaskQuery) (*domain.ModeratorTask, error) {
	var candidates []*domain.ModeratorTask
	for _, t := range m.state.tasks {
		if t.IsResolved() {
			continue
		}
		if t.AssignTime != nil && t.AssignTime.After(query.LeaseCutoff) {
			continue
		}
		if query.KnownLangs != nil && t.Lang != nil && !contains(query.KnownLangs, *t.Lang) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil, store.ErrModeratorTaskNotFound
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := a.TaskType.PriorityRank(), b.TaskType.PriorityRank(); ra != rb {
			return ra < rb
		}
		if !a.CreationTime.Equal(b.CreationTime) {
			return a.CreationTime.Before(b.CreationTime)
		}
		return a.ID < b.ID
	})
	return candidates[0].Clone(), nil
}

func (m *memTasks) LockSubject(_ context.Context, key string) error {
	if key == "" {
		return store.ErrInvalidEntity
	}
	m.db.subjectLocks = append(m.db.subjectLocks, key)
	return nil
}

func (m *memTasks) DeleteUnresolved(_ context.Context, match store.PendingTaskMatch) (int64, error) {
	if (match.SubjectBarcode == nil) == (match.SubjectOsmUID == nil) || len(match.Types) == 0 {
		return 0, store.ErrInvalidEntity
	}

	var deleted int64
	for id, t := range m.state.tasks {
		if t.IsResolved() || !containsType(match.Types, t.TaskType) {
			continue
		}
		if match.SubjectBarcode != nil && !equalPtr(t.SubjectBarcode, match.SubjectBarcode) {
			continue
		}
		if match.SubjectOsmUID != nil && !equalPtr(t.SubjectOsmUID, match.SubjectOsmUID) {
			continue
		}
		if match.MatchLang && !equalPtr(t.Lang, match.Lang) {
			continue
		}
		delete(m.state.tasks, id)
		deleted++
	}
	return deleted, nil
}

func (m *memTasks) List(_ context.Context, query store.TaskListQuery) ([]*domain.ModeratorTask, error) {
	if query.Offset < 0 {
		return nil, store.ErrInvalidEntity
	}

	var matched []*domain.ModeratorTask
	for _, t := range m.state.tasks {
		if !query.IncludeResolved && t.IsResolved() {
			continue
		}
		if !query.Lang.Matches(t.Lang) {
			continue
		}
		if len(query.IncludeTypes) > 0 && !containsType(query.IncludeTypes, t.TaskType) {
			continue
		}
		if containsType(query.ExcludeTypes, t.TaskType) {
			continue
		}
		if query.AssignedTo != nil {
			if t.Assignee == nil || *t.Assignee != *query.AssignedTo || !t.AssignTime.After(query.LeaseCutoff) {
				continue
			}
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreationTime.Equal(b.CreationTime) {
			return a.CreationTime.Before(b.CreationTime)
		}
		return a.ID < b.ID
	})

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	result := []*domain.ModeratorTask{}
	for i := query.Offset; i < len(matched) && len(result) < limit; i++ {
		result = append(result, matched[i].Clone())
	}
	return result, nil
}

func (m *memTasks) CountByLanguage(_ context.Context, includeResolved bool) (*domain.LanguageCounts, error) {
	counts := &domain.LanguageCounts{PerLanguage: map[string]int64{}}
	for _, t := range m.state.tasks {
		if !includeResolved && t.IsResolved() {
			continue
		}
		counts.TotalCount++
		if t.Lang != nil {
			counts.PerLanguage[*t.Lang]++
		}
	}
	return counts, nil
}

func (m *memTasks) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, t := range m.state.tasks {
		if t.ResolutionTime != nil && t.ResolutionTime.Before(cutoff) {
			delete(m.state.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memTasks) WithTx(*sql.Tx) store.ModeratorTaskStore { return m }

type memPrincipals struct {
	db    *memDB
	state *memState
}

var _ store.PrincipalStore = (*memPrincipals)(nil)

func (m *memPrincipals) GetByID(_ context.Context, userID uuid.UUID) (*domain.Principal, error) {
	if m.db.lookupErr != nil {
		return nil, m.db.lookupErr
	}
	p, ok := m.state.principals[userID]
	if !ok {
		return nil, store.ErrPrincipalNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memPrincipals) Upsert(_ context.Context, principal *domain.Principal) error {
	copied := *principal
	m.state.principals[principal.UserID] = &copied
	return nil
}

func (m *memPrincipals) WithTx(*sql.Tx) store.PrincipalStore { return m }

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsType(types []domain.TaskType, t domain.TaskType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
