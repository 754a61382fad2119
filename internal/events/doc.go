// Package events carries moderation lifecycle notifications from the
// moderation service to interested components.
//
// The service emits a ModerationEvent after each committed change to the
// queue. Handlers registered on an EventEmitter receive every event; the
// server registers an AuditLogHandler that writes one structured log line
// per event.
package events
