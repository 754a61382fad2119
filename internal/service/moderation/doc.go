// Package moderation implements the moderator task queue: the intake of
// work from producers with per-kind deduplication, priority-ordered
// assignment under time-limited leases, resolution and rejection, retention
// of resolved work, and the listings moderators browse.
//
// Every operation runs in a single database transaction that starts with a
// retention sweep. Tasks returned to callers are presented at the service
// clock's current time, so a lapsed lease is reported as unassigned even
// though storage keeps the stale assignee until the next write.
package moderation
