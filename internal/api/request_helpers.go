package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/api/shared"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/redact"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
)

// queryError marks a malformed query or path parameter.
func queryError(name, problem string) error {
	return fmt.Errorf("%w: %s %s", moderation.ErrInvalidParams, name, problem)
}

// requireUser extracts the authenticated user's ID, writing a 401 when missing.
func requireUser(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, errUnauthenticated)
		return uuid.Nil, false
	}
	return userID, true
}

// getPathTaskID parses the {id} path parameter as a positive task ID.
func getPathTaskID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, queryError("id", "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, queryError("id", "must be a positive integer")
	}
	return id, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, queryError(name, "must be a boolean")
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(name, "must be an integer")
	}
	return v, nil
}

// queryPaging reads page and page_size. Range checks are left to the service.
func queryPaging(r *http.Request) (page, pageSize int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if pageSize, err = queryInt(r, "page_size"); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// queryTaskTypes accepts repeated parameters as well as comma-separated values.
func queryTaskTypes(r *http.Request, name string) ([]domain.TaskType, error) {
	var types []domain.TaskType
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, err := domain.ParseTaskType(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", moderation.ErrInvalidParams, err)
			}
			types = append(types, t)
		}
	}
	return types, nil
}

func queryLanguageFilter(r *http.Request) (domain.LanguageFilter, error) {
	onlyNoLang, err := queryBool(r, "only_with_no_lang")
	if err != nil {
		return domain.LanguageFilter{}, err
	}

	var lang *string
	if q := r.URL.Query(); q.Has("lang") {
		v := q.Get("lang")
		lang = &v
	}

	filter, err := domain.NewLanguageFilter(lang, onlyNoLang)
	if err != nil {
		return domain.LanguageFilter{}, fmt.Errorf("%w: %w", moderation.ErrInvalidParams, err)
	}
	return filter, nil
}

// decodeAndValidate reads the JSON body into v and validates it, writing a 400
// on failure. An empty body is accepted when optional is true.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v interface{}, optional bool) bool {
	if err := shared.DecodeJSON(r, v); err != nil && !(optional && errors.Is(err, io.EOF)) {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}

	if err := shared.ValidateRequest(v); err != nil {
		log.Warn("validation error", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}
