package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/api/shared"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/platform/logger"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
)

// ModeratorTaskHandler serves the moderator task queue over HTTP.
type ModeratorTaskHandler struct {
	service moderation.Service
	logger  *slog.Logger
}

// NewModeratorTaskHandler creates a new ModeratorTaskHandler
func NewModeratorTaskHandler(service moderation.Service, logger *slog.Logger) *ModeratorTaskHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("moderation service cannot be nil for ModeratorTaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ModeratorTaskHandler")
	}

	return &ModeratorTaskHandler{
		service: service,
		logger:  logger.With(slog.String("component", "moderator_task_handler")),
	}
}

// Routes registers the handler's endpoints on r, which must already require
// authentication.
func (h *ModeratorTaskHandler) Routes(r chi.Router) {
	r.Route("/moderator_tasks", func(r chi.Router) {
		r.Get("/", h.ListAll)
		r.Get("/assigned", h.ListAssigned)
		r.Get("/count_by_language", h.CountByLanguage)
		r.Post("/assign", h.Assign)
		r.Post("/custom_actions", h.RecordCustomAction)
		r.Post("/subject_changes", h.SubmitSubjectChange)
		r.Post("/reports", h.SubmitReport)
		r.Post("/feedback", h.SubmitFeedback)

		r.Get("/{id}", h.GetOne)
		r.Post("/{id}/resolve", h.Resolve)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/unresolve", h.Unresolve)
	})
}

func (h *ModeratorTaskHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// ListAll handles GET /moderator_tasks
func (h *ModeratorTaskHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	query, err := listQueryFromRequest(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	tasks, err := h.service.ListAll(r.Context(), userID, query)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ModeratorTaskListResponse{Tasks: tasksToResponse(tasks)})
}

func listQueryFromRequest(r *http.Request) (moderation.ListQuery, error) {
	var (
		query moderation.ListQuery
		err   error
	)
	if query.IncludeResolved, err = queryBool(r, "include_resolved"); err != nil {
		return query, err
	}
	if query.Lang, err = queryLanguageFilter(r); err != nil {
		return query, err
	}
	if query.IncludeTypes, err = queryTaskTypes(r, "include_types"); err != nil {
		return query, err
	}
	if query.ExcludeTypes, err = queryTaskTypes(r, "exclude_types"); err != nil {
		return query, err
	}
	if query.Page, query.PageSize, err = queryPaging(r); err != nil {
		return query, err
	}
	return query, nil
}

// ListAssigned handles GET /moderator_tasks/assigned
// The assignee defaults to the caller.
func (h *ModeratorTaskHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	assignee := userID
	if raw := r.URL.Query().Get("assignee"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			HandleAPIError(w, r, queryError("assignee", "must be a UUID"))
			return
		}
		assignee = parsed
	}

	includeResolved, err := queryBool(r, "include_resolved")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	page, pageSize, err := queryPaging(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	tasks, err := h.service.ListAssignedTo(r.Context(), userID, assignee, includeResolved, page, pageSize)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ModeratorTaskListResponse{Tasks: tasksToResponse(tasks)})
}

// CountByLanguage handles GET /moderator_tasks/count_by_language
func (h *ModeratorTaskHandler) CountByLanguage(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	includeResolved, err := queryBool(r, "include_resolved")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	counts, err := h.service.CountByLanguage(r.Context(), userID, includeResolved)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	perLanguage := counts.PerLanguage
	if perLanguage == nil {
		perLanguage = map[string]int64{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, LanguageCountsResponse{
		TotalCount:  counts.TotalCount,
		PerLanguage: perLanguage,
	})
}

// GetOne handles GET /moderator_tasks/{id}
func (h *ModeratorTaskHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	taskID, err := getPathTaskID(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	task, err := h.service.GetOne(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Assign handles POST /moderator_tasks/assign
// An empty queue is answered with 204 No Content.
func (h *ModeratorTaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if !decodeAndValidate(w, r, log, &req, true) {
		return
	}

	task, err := h.service.Assign(r.Context(), moderation.AssignRequest{
		CallerID:   userID,
		TaskID:     req.TaskID,
		AssigneeID: req.Assignee,
		KnownLangs: req.Langs,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	log.Debug("task assigned",
		slog.Int64("task_id", task.ID),
		slog.String("caller_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Resolve handles POST /moderator_tasks/{id}/resolve
func (h *ModeratorTaskHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	taskID, err := getPathTaskID(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	var req ResolveTaskRequest
	if !decodeAndValidate(w, r, log, &req, true) {
		return
	}

	task, err := h.service.Resolve(r.Context(), userID, taskID, req.PerformedAction)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// Reject handles POST /moderator_tasks/{id}/reject
func (h *ModeratorTaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

// Unresolve handles POST /moderator_tasks/{id}/unresolve
func (h *ModeratorTaskHandler) Unresolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Unresolve)
}

type transitionFunc func(ctx context.Context, callerID uuid.UUID, taskID int64) (*domain.ModeratorTask, error)

func (h *ModeratorTaskHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}
	taskID, err := getPathTaskID(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	task, err := fn(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// RecordCustomAction handles POST /moderator_tasks/custom_actions
func (h *ModeratorTaskHandler) RecordCustomAction(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req CustomActionRequest
	if !decodeAndValidate(w, r, log, &req, false) {
		return
	}

	task, err := h.service.RecordCustomAction(r.Context(), userID, moderation.CustomAction{
		Note:           req.Note,
		SubjectBarcode: req.Barcode,
		SubjectOsmUID:  req.OsmUID,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// SubmitSubjectChange handles POST /moderator_tasks/subject_changes
func (h *ModeratorTaskHandler) SubmitSubjectChange(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req SubjectChangeRequest
	if !decodeAndValidate(w, r, log, &req, false) {
		return
	}
	taskType, err := domain.ParseTaskType(req.TaskType)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.submit(w, r, moderation.SubjectChange{
		TaskType:       taskType,
		SubjectBarcode: req.Barcode,
		SubjectOsmUID:  req.OsmUID,
		SourceUserID:   userID,
		Langs:          req.Langs,
	})
}

// SubmitReport handles POST /moderator_tasks/reports
func (h *ModeratorTaskHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req ReportRequest
	if !decodeAndValidate(w, r, log, &req, false) {
		return
	}

	h.submit(w, r, moderation.SubjectChange{
		TaskType:       domain.TaskTypeUserReport,
		SubjectBarcode: req.Barcode,
		SubjectOsmUID:  req.OsmUID,
		SourceUserID:   userID,
		TextFromUser:   &req.Text,
	})
}

// SubmitFeedback handles POST /moderator_tasks/feedback
func (h *ModeratorTaskHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req FeedbackRequest
	if !decodeAndValidate(w, r, log, &req, false) {
		return
	}

	h.submit(w, r, moderation.SubjectChange{
		TaskType:       domain.TaskTypeUserFeedback,
		SubjectBarcode: req.Barcode,
		SourceUserID:   userID,
		TextFromUser:   &req.Text,
	})
}

func (h *ModeratorTaskHandler) submit(w http.ResponseWriter, r *http.Request, change moderation.SubjectChange) {
	tasks, err := h.service.SubmitSubjectChange(r.Context(), change)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.log(r).Debug("subject change recorded",
		slog.String("task_type", change.TaskType.String()),
		slog.Int("created", len(tasks)))
	shared.RespondWithJSON(w, r, http.StatusCreated, ModeratorTaskListResponse{Tasks: tasksToResponse(tasks)})
}
