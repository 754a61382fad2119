package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/moderation-api/internal/api/shared"
	"github.com/phrazzld/moderation-api/internal/domain"
	"github.com/phrazzld/moderation-api/internal/service/auth"
	"github.com/phrazzld/moderation-api/internal/service/moderation"
	"github.com/phrazzld/moderation-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
		{
			name:           "wrapped authentication error",
			err:            fmt.Errorf("failed to authenticate: %w", auth.ErrInvalidToken),
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "Invalid token",
		},
		{
			name:           "expired token",
			err:            auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "Token expired",
		},
		{
			name:           "denied",
			err:            moderation.ErrDenied,
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "Permission denied",
		},
		{
			name:           "task not found",
			err:            moderation.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Moderator task not found",
		},
		{
			name:           "store task not found",
			err:            store.ErrModeratorTaskNotFound,
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Moderator task not found",
		},
		{
			name:           "assignee not a moderator",
			err:            moderation.ErrAssigneeNotModerator,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Assignee is not a moderator",
		},
		{
			name:           "invalid params",
			err:            moderation.ErrInvalidParams,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid parameters",
		},
		{
			name:           "invalid params naming a language",
			err:            fmt.Errorf("%w: %w", moderation.ErrInvalidParams, domain.ErrInvalidLanguage),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid language tag",
		},
		{
			name:           "invalid subject",
			err:            fmt.Errorf("%w: %w", moderation.ErrInvalidParams, domain.ErrInvalidSubject),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid subject: check barcode and osm_uid for this task type",
		},
		{
			name:           "conflicting language filter",
			err:            domain.ErrConflictingLanguageFilter,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "lang and only_with_no_lang cannot be combined",
		},
		{
			name:           "no unresolved tasks",
			err:            moderation.ErrNoUnresolvedTasks,
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "service error hides the cause",
			err:            moderation.NewServiceError("assign", "unexpected failure", errors.New("pq: relation does not exist")),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, GetSafeErrorMessage(tt.err))
			}
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	err := shared.ValidateRequest(&CustomActionRequest{})
	require.Error(t, err)
	assert.Equal(t, "Invalid Note: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("Key: 'X' Error: secret")))
}
