package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/moderation-api/internal/api/shared"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/service/auth"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
	"github.com/phrazzld/moderation-api/internal/store"
)

// errUnauthenticated is reported when a protected handler runs without a user in context.
var errUnauthenticated = errors.New("user ID not found or invalid in request context")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, moderation.ErrDenied):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, moderation.ErrTaskNotFound),
		errors.Is(err, store.ErrModeratorTaskNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, moderation.ErrInvalidParams),
		errors.Is(err, moderation.ErrAssigneeNotModerator),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Nothing to hand out
	case errors.Is(err, moderation.ErrNoUnresolvedTasks):
		return http.StatusNoContent

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, errUnauthenticated):
		return "User ID not found or invalid"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, moderation.ErrDenied):
		return "Permission denied"

	case errors.Is(err, moderation.ErrTaskNotFound),
		errors.Is(err, store.ErrModeratorTaskNotFound):
		return "Moderator task not found"

	case errors.Is(err, moderation.ErrAssigneeNotModerator):
		return "Assignee is not a moderator"

	// Specific validation failures first; each of these also matches ErrInvalidParams.
	case errors.Is(err, domain.ErrInvalidTaskType):
		return "Invalid task type"
	case errors.Is(err, domain.ErrInvalidSubject):
		return "Invalid subject: check barcode and osm_uid for this task type"
	case errors.Is(err, domain.ErrUnexpectedLanguage):
		return "This task type does not carry a language"
	case errors.Is(err, domain.ErrInvalidLanguage):
		return "Invalid language tag"
	case errors.Is(err, domain.ErrEmptyText):
		return "Text is required"
	case errors.Is(err, domain.ErrConflictingLanguageFilter):
		return "lang and only_with_no_lang cannot be combined"
	case errors.Is(err, moderation.ErrInvalidParams),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid parameters"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err: 204 for an empty queue,
// otherwise a JSON error body with a safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	if status == http.StatusNoContent {
		shared.RespondNoContent(w)
		return
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}

// SanitizeValidationError turns validator errors into a short message naming
// the first failing field, and anything else into "Validation error".
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}

	first := validationErrs[0]
	return fmt.Sprintf("Invalid %s: %s", first.Field(), getValidationTagMessage(first.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt":
		return "must be positive"
	default:
		return "validation failed"
	}
}
