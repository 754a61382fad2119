// Package lease implements the time arithmetic of moderator claims and
// resolved-task retention. Everything here is a pure function of its inputs;
// callers supply the current time.
package lease

import (
	"time"

	"github.com/phrazzld/moderation-api/internal/domain"
)

// IsLive reports whether an assignment made at assignTime still protects the
// task at now: now - assignTime < window.
func IsLive(assignTime, now time.Time, window time.Duration) bool {
	return now.Sub(assignTime) < window
}

// Cutoff returns the latest assign time whose lease has lapsed at now.
// A stored assignment with assign_time <= Cutoff(now, window) is eligible for
// automatic assignment, which is exactly !IsLive.
func Cutoff(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}

// HasLiveLease reports whether task is held under a live lease at now.
func HasLiveLease(task *domain.ModeratorTask, now time.Time, window time.Duration) bool {
	if task == nil || task.Assignee == nil || task.AssignTime == nil {
		return false
	}
	return IsLive(*task.AssignTime, now, window)
}

// Present returns a copy of task as it should be shown at now: a lapsed
// lease is reported as unassigned. The input is never modified.
func Present(task *domain.ModeratorTask, now time.Time, window time.Duration) *domain.ModeratorTask {
	if task == nil {
		return nil
	}
	presented := task.Clone()
	if presented.Assignee != nil && !HasLiveLease(presented, now, window) {
		presented.ClearAssignment()
	}
	return presented
}

// PresentAll applies Present to every task, preserving order.
func PresentAll(tasks []*domain.ModeratorTask, now time.Time, window time.Duration) []*domain.ModeratorTask {
	presented := make([]*domain.ModeratorTask, 0, len(tasks))
	for _, t := range tasks {
		presented = append(presented, Present(t, now, window))
	}
	return presented
}

// RetentionCutoff returns the resolution time before which resolved tasks
// are past retention at now.
func RetentionCutoff(now time.Time, retention time.Duration) time.Time {
	return now.Add(-retention)
}

// IsPastRetention reports whether a task resolved at resolutionTime has been
// resolved for longer than retention at now.
func IsPastRetention(resolutionTime, now time.Time, retention time.Duration) bool {
	return now.Sub(resolutionTime) > retention
}
