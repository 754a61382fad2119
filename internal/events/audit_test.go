package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAuditLogHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	actor := uuid.New()
	event, err := NewModerationEvent(TaskResolved, 9, actor, map[string]string{"resolver_action": "fixed"},
		time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "moderation event", line["msg"])
	assert.Equal(t, "moderation_audit", line["component"])
	assert.Equal(t, "task_resolved", line["event_type"])
	assert.Equal(t, actor.String(), line["actor_id"])
	assert.EqualValues(t, 9, line["task_id"])
	assert.Contains(t, line["payload"], "fixed")
}

func TestAuditLogHandler_OmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAuditLogHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	event, err := NewModerationEvent(TaskRejected, 0, uuid.Nil, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, handler.HandleEvent(context.Background(), event))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "task_id")
	assert.NotContains(t, line, "payload")
}
