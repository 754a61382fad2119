package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/store"
)

const moderatorTaskColumns = `id, task_type, subject_barcode, subject_osm_uid, source_user_id,
	text_from_user, lang, creation_time, assignee, assign_time,
	resolution_time, resolver, resolver_action`

// defaultListLimit applies when a listing asks for no limit.
const defaultListLimit = 10

// PostgresModeratorTaskStore implements the store.ModeratorTaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresModeratorTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresModeratorTaskStore creates a new PostgreSQL implementation of the
// ModeratorTaskStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresModeratorTaskStore(db store.DBTX, logger *slog.Logger) *PostgresModeratorTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresModeratorTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "moderator_task_store")),
	}
}

// Ensure PostgresModeratorTaskStore implements store.ModeratorTaskStore interface
var _ store.ModeratorTaskStore = (*PostgresModeratorTaskStore)(nil)

// WithTx implements store.ModeratorTaskStore.WithTx
func (s *PostgresModeratorTaskStore) WithTx(tx *sql.Tx) store.ModeratorTaskStore {
	return &PostgresModeratorTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ModeratorTaskStore.Create
func (s *PostgresModeratorTaskStore) Create(ctx context.Context, task *domain.ModeratorTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("moderator task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_type", string(task.TaskType)))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO moderator_tasks (
			task_type, subject_barcode, subject_osm_uid, source_user_id,
			text_from_user, lang, creation_time, assignee, assign_time,
			resolution_time, resolver, resolver_action
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		string(task.TaskType),
		nullString(task.SubjectBarcode),
		nullString(task.SubjectOsmUID),
		task.SourceUserID,
		nullString(task.TextFromUser),
		nullString(task.Lang),
		task.CreationTime.UTC(),
		nullUUID(task.Assignee),
		nullTime(task.AssignTime),
		nullTime(task.ResolutionTime),
		nullUUID(task.Resolver),
		nullString(task.ResolverAction),
	).Scan(&task.ID)
	if err != nil {
		log.Error("failed to create moderator task",
			slog.String("error", err.Error()),
			slog.String("task_type", string(task.TaskType)))
		return MapError(err)
	}

	log.Info("moderator task created",
		slog.Int64("task_id", task.ID),
		slog.String("task_type", string(task.TaskType)))
	return nil
}

// GetByID implements store.ModeratorTaskStore.GetByID
func (s *PostgresModeratorTaskStore) GetByID(ctx context.Context, id int64) (*domain.ModeratorTask, error) {
	return s.getByID(ctx, id, false)
}

// GetByIDForUpdate implements store.ModeratorTaskStore.GetByIDForUpdate
func (s *PostgresModeratorTaskStore) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ModeratorTask, error) {
	return s.getByID(ctx, id, true)
}

func (s *PostgresModeratorTaskStore) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving moderator task by ID",
		slog.Int64("task_id", id),
		slog.Bool("for_update", forUpdate))

	query := `SELECT ` + moderatorTaskColumns + ` FROM moderator_tasks WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	task, err := scanModeratorTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("moderator task not found", slog.Int64("task_id", id))
			return nil, store.ErrModeratorTaskNotFound
		}
		log.Error("failed to get moderator task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	return task, nil
}

// Update implements store.ModeratorTaskStore.Update
func (s *PostgresModeratorTaskStore) Update(ctx context.Context, task *domain.ModeratorTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if (task.Assignee == nil) != (task.AssignTime == nil) {
		log.Warn("refusing to write half an assignment", slog.Int64("task_id", task.ID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInconsistentAssignment)
	}

	query := `
		UPDATE moderator_tasks
		SET assignee = $1, assign_time = $2, resolution_time = $3, resolver = $4, resolver_action = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		nullUUID(task.Assignee),
		nullTime(task.AssignTime),
		nullTime(task.ResolutionTime),
		nullUUID(task.Resolver),
		nullString(task.ResolverAction),
		task.ID,
	)
	if err != nil {
		log.Error("failed to update moderator task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrModeratorTaskNotFound); err != nil {
		if !errors.Is(err, store.ErrModeratorTaskNotFound) {
			log.Error("failed to get rows affected",
				slog.String("error", err.Error()),
				slog.Int64("task_id", task.ID))
		}
		return err
	}

	log.Debug("moderator task updated", slog.Int64("task_id", task.ID))
	return nil
}

// NextAssignable implements store.ModeratorTaskStore.NextAssignable
func (s *PostgresModeratorTaskStore) NextAssignable(
	ctx context.Context,
	query store.NextTaskQuery,
) (*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	b := &queryBuilder{}
	conditions := []string{
		"resolution_time IS NULL",
		"(assignee IS NULL OR assign_time <= " + b.arg(query.LeaseCutoff.UTC()) + ")",
	}
	if query.KnownLangs != nil {
		if len(query.KnownLangs) == 0 {
			conditions = append(conditions, "lang IS NULL")
		} else {
			conditions = append(conditions, "(lang IS NULL OR lang IN "+b.list(query.KnownLangs)+")")
		}
	}

	b.write(`SELECT `, moderatorTaskColumns, ` FROM moderator_tasks`).
		where(conditions).
		write(` ORDER BY `, priorityOrder(b), `, creation_time, id LIMIT 1 FOR UPDATE SKIP LOCKED`)

	task, err := scanModeratorTask(s.db.QueryRowContext(ctx, b.String(), b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no assignable moderator task",
				slog.Int("known_langs", len(query.KnownLangs)))
			return nil, store.ErrModeratorTaskNotFound
		}
		log.Error("failed to scan for assignable moderator task",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return task, nil
}

// DeleteUnresolved implements store.ModeratorTaskStore.DeleteUnresolved
func (s *PostgresModeratorTaskStore) DeleteUnresolved(
	ctx context.Context,
	match store.PendingTaskMatch,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if (match.SubjectBarcode == nil) == (match.SubjectOsmUID == nil) || len(match.Types) == 0 {
		return 0, fmt.Errorf("%w: pending task match needs exactly one subject and at least one type",
			store.ErrInvalidEntity)
	}

	b := &queryBuilder{}
	conditions := []string{"resolution_time IS NULL"}
	if match.SubjectBarcode != nil {
		conditions = append(conditions, "subject_barcode = "+b.arg(*match.SubjectBarcode))
	} else {
		conditions = append(conditions, "subject_osm_uid = "+b.arg(*match.SubjectOsmUID))
	}
	conditions = append(conditions, "task_type IN "+b.list(taskTypeStrings(match.Types)))
	if match.MatchLang {
		if match.Lang == nil {
			conditions = append(conditions, "lang IS NULL")
		} else {
			conditions = append(conditions, "lang = "+b.arg(*match.Lang))
		}
	}

	b.write(`DELETE FROM moderator_tasks`).where(conditions)

	result, err := s.db.ExecContext(ctx, b.String(), b.args...)
	if err != nil {
		log.Error("failed to delete pending moderator tasks",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		log.Debug("replaced pending moderator tasks", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

// LockSubject implements store.ModeratorTaskStore.LockSubject using a
// transaction-level advisory lock. Hash collisions only serialize unrelated subjects.
func (s *PostgresModeratorTaskStore) LockSubject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: subject lock key must not be empty", store.ErrInvalidEntity)
	}

	if _, err := s.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to lock subject",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return MapError(err)
	}
	return nil
}

// List implements store.ModeratorTaskStore.List
func (s *PostgresModeratorTaskStore) List(
	ctx context.Context,
	query store.TaskListQuery,
) ([]*domain.ModeratorTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit, offset := query.Limit, query.Offset
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: list offset must not be negative", store.ErrInvalidEntity)
	}

	b := &queryBuilder{}
	var conditions []string
	if !query.IncludeResolved {
		conditions = append(conditions, "resolution_time IS NULL")
	}
	switch query.Lang.Kind() {
	case domain.LanguageFilterByLanguage:
		conditions = append(conditions, "lang = "+b.arg(query.Lang.Lang()))
	case domain.LanguageFilterOnlyNoLang:
		conditions = append(conditions, "lang IS NULL")
	}
	if len(query.IncludeTypes) > 0 {
		conditions = append(conditions, "task_type IN "+b.list(taskTypeStrings(query.IncludeTypes)))
	}
	if len(query.ExcludeTypes) > 0 {
		conditions = append(conditions, "task_type NOT IN "+b.list(taskTypeStrings(query.ExcludeTypes)))
	}
	if query.AssignedTo != nil {
		conditions = append(conditions,
			"assignee = "+b.arg(*query.AssignedTo),
			"assign_time > "+b.arg(query.LeaseCutoff.UTC()))
	}

	b.write(`SELECT `, moderatorTaskColumns, ` FROM moderator_tasks`).
		where(conditions).
		write(` ORDER BY creation_time, id LIMIT `, b.arg(limit), ` OFFSET `, b.arg(offset))

	log.Debug("listing moderator tasks",
		slog.Bool("include_resolved", query.IncludeResolved),
		slog.Int("limit", limit),
		slog.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		log.Error("failed to list moderator tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.ModeratorTask{}
	for rows.Next() {
		task, err := scanModeratorTask(rows)
		if err != nil {
			log.Error("failed to scan moderator task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return tasks, nil
}

// CountByLanguage implements store.ModeratorTaskStore.CountByLanguage
func (s *PostgresModeratorTaskStore) CountByLanguage(
	ctx context.Context,
	includeResolved bool,
) (*domain.LanguageCounts, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT lang, COUNT(*) FROM moderator_tasks`
	if !includeResolved {
		query += ` WHERE resolution_time IS NULL`
	}
	query += ` GROUP BY lang`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to count moderator tasks by language", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	counts := &domain.LanguageCounts{PerLanguage: map[string]int64{}}
	for rows.Next() {
		var lang sql.NullString
		var count int64
		if err := rows.Scan(&lang, &count); err != nil {
			log.Error("failed to scan language count", slog.String("error", err.Error()))
			return nil, err
		}
		counts.TotalCount += count
		if lang.Valid {
			counts.PerLanguage[lang.String] = count
		}
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return counts, nil
}

// DeleteResolvedBefore implements store.ModeratorTaskStore.DeleteResolvedBefore
func (s *PostgresModeratorTaskStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM moderator_tasks
		WHERE resolution_time IS NOT NULL AND resolution_time < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		log.Error("failed to delete resolved moderator tasks",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff))
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanModeratorTask(row rowScanner) (*domain.ModeratorTask, error) {
	var (
		task           domain.ModeratorTask
		taskType       string
		barcode        sql.NullString
		osmUID         sql.NullString
		textFromUser   sql.NullString
		lang           sql.NullString
		assignee       uuid.NullUUID
		assignTime     sql.NullTime
		resolutionTime sql.NullTime
		resolver       uuid.NullUUID
		resolverAction sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&taskType,
		&barcode,
		&osmUID,
		&task.SourceUserID,
		&textFromUser,
		&lang,
		&task.CreationTime,
		&assignee,
		&assignTime,
		&resolutionTime,
		&resolver,
		&resolverAction,
	)
	if err != nil {
		return nil, err
	}

	task.TaskType = domain.TaskType(taskType)
	task.CreationTime = task.CreationTime.UTC()
	task.SubjectBarcode = stringPtr(barcode)
	task.SubjectOsmUID = stringPtr(osmUID)
	task.TextFromUser = stringPtr(textFromUser)
	task.Lang = stringPtr(lang)
	task.Assignee = uuidPtr(assignee)
	task.AssignTime = timePtr(assignTime)
	task.ResolutionTime = timePtr(resolutionTime)
	task.Resolver = uuidPtr(resolver)
	task.ResolverAction = stringPtr(resolverAction)

	return &task, nil
}

// priorityOrder renders the registry's ranks as a CASE expression so the
// database can order candidates without a stored priority column.
func priorityOrder(b *queryBuilder) string {
	var sb strings.Builder
	sb.WriteString("CASE task_type")
	for _, t := range domain.AllTaskTypes() {
		sb.WriteString(" WHEN ")
		sb.WriteString(b.arg(string(t)))
		sb.WriteString(" THEN ")
		sb.WriteString(strconv.Itoa(t.PriorityRank()))
	}
	sb.WriteString(" ELSE ")
	sb.WriteString(strconv.Itoa(math.MaxInt32))
	sb.WriteString(" END")
	return sb.String()
}

func taskTypeStrings(types []domain.TaskType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func nullUUID(p *uuid.UUID) uuid.NullUUID {
	if p == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *p, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func uuidPtr(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}
