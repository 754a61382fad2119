package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/moderation-api/internal/platform/logger"
)

// AuditLogHandler writes every moderation event as a structured log line.
type AuditLogHandler struct {
	logger *slog.Logger
}

// NewAuditLogHandler creates an AuditLogHandler. If log is nil, the default
// logger is used.
func NewAuditLogHandler(log *slog.Logger) *AuditLogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuditLogHandler{logger: log.With(slog.String("component", "moderation_audit"))}
}

var _ EventHandler = (*AuditLogHandler)(nil)

// HandleEvent implements EventHandler.
func (h *AuditLogHandler) HandleEvent(ctx context.Context, event *ModerationEvent) error {
	log := logger.FromContextOrDefault(ctx, h.logger)

	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.Type)),
		slog.String("actor_id", event.ActorID.String()),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.TaskID != 0 {
		attrs = append(attrs, slog.Int64("task_id", event.TaskID))
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, slog.String("payload", string(event.Payload)))
	}

	log.Info("moderation event", attrs...)
	return nil
}
