package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ModeratorTask is a unit of moderation work about a product, a shop, or
// nothing in particular. ID is assigned by the store on insert.
type ModeratorTask struct {
	ID             int64      `json:"id"`
	TaskType       TaskType   `json:"task_type"`
	SubjectBarcode *string    `json:"barcode,omitempty"`
	SubjectOsmUID  *string    `json:"osm_uid,omitempty"`
	SourceUserID   uuid.UUID  `json:"source_user_id"`
	TextFromUser   *string    `json:"text_from_user,omitempty"`
	Lang           *string    `json:"lang,omitempty"`
	CreationTime   time.Time  `json:"creation_time"`
	Assignee       *uuid.UUID `json:"assignee,omitempty"`
	AssignTime     *time.Time `json:"assign_time,omitempty"`
	ResolutionTime *time.Time `json:"resolution_time,omitempty"`
	Resolver       *uuid.UUID `json:"resolver,omitempty"`
	ResolverAction *string    `json:"resolver_action,omitempty"`
}

// NewTaskParams carries the producer-supplied fields of a new task.
type NewTaskParams struct {
	TaskType       TaskType
	SubjectBarcode *string
	SubjectOsmUID  *string
	SourceUserID   uuid.UUID
	TextFromUser   *string
	Lang           *string
}

// NewModeratorTask creates an unresolved, unassigned task created at now.
// Empty identifier strings are treated as absent.
// Returns an error if validation fails.
func NewModeratorTask(params NewTaskParams, now time.Time) (*ModeratorTask, error) {
	task := &ModeratorTask{
		TaskType:       params.TaskType,
		SubjectBarcode: trimmedOrNil(params.SubjectBarcode),
		SubjectOsmUID:  trimmedOrNil(params.SubjectOsmUID),
		SourceUserID:   params.SourceUserID,
		TextFromUser:   trimmedOrNil(params.TextFromUser),
		CreationTime:   now.UTC(),
	}

	if params.Lang != nil {
		lang, err := NormalizeLang(*params.Lang)
		if err != nil {
			return nil, err
		}
		task.Lang = &lang
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the task against its kind's descriptor.
func (t *ModeratorTask) Validate() error {
	desc, ok := t.TaskType.Descriptor()
	if !ok {
		return ErrInvalidTaskType
	}

	if t.SourceUserID == uuid.Nil {
		return ErrEmptySourceUser
	}

	if !subjectMatches(desc.Subject, t.SubjectBarcode != nil, t.SubjectOsmUID != nil) {
		return ErrInvalidSubject
	}

	if desc.RequiresText && t.TextFromUser == nil {
		return ErrEmptyText
	}

	if t.Lang != nil && !desc.LanguageAware {
		return ErrUnexpectedLanguage
	}

	if (t.Assignee == nil) != (t.AssignTime == nil) {
		return ErrInconsistentAssignment
	}

	return nil
}

// IsResolved reports whether the task has a resolution time.
func (t *ModeratorTask) IsResolved() bool {
	return t.ResolutionTime != nil
}

// IsAssigned reports whether the stored task has an assignee, regardless of
// whether the lease is still live.
func (t *ModeratorTask) IsAssigned() bool {
	return t.Assignee != nil
}

// Assign records assignee as holding the task from now.
func (t *ModeratorTask) Assign(assignee uuid.UUID, now time.Time) {
	at := now.UTC()
	t.Assignee = &assignee
	t.AssignTime = &at
}

// ClearAssignment drops the assignee and assign time together.
func (t *ModeratorTask) ClearAssignment() {
	t.Assignee = nil
	t.AssignTime = nil
}

// Resolve marks the task resolved by resolver at now.
func (t *ModeratorTask) Resolve(resolver uuid.UUID, action *string, now time.Time) {
	at := now.UTC()
	t.ResolutionTime = &at
	t.Resolver = &resolver
	t.ResolverAction = trimmedOrNil(action)
}

// Unresolve returns the task to the active pool. Assignment fields are kept.
func (t *ModeratorTask) Unresolve() {
	t.ResolutionTime = nil
	t.Resolver = nil
	t.ResolverAction = nil
}

// Clone returns a deep copy of the task.
func (t *ModeratorTask) Clone() *ModeratorTask {
	if t == nil {
		return nil
	}
	c := *t
	c.SubjectBarcode = copyPtr(t.SubjectBarcode)
	c.SubjectOsmUID = copyPtr(t.SubjectOsmUID)
	c.TextFromUser = copyPtr(t.TextFromUser)
	c.Lang = copyPtr(t.Lang)
	c.Assignee = copyPtr(t.Assignee)
	c.AssignTime = copyPtr(t.AssignTime)
	c.ResolutionTime = copyPtr(t.ResolutionTime)
	c.Resolver = copyPtr(t.Resolver)
	c.ResolverAction = copyPtr(t.ResolverAction)
	return &c
}

func subjectMatches(rule SubjectRule, hasBarcode, hasOsmUID bool) bool {
	switch rule {
	case SubjectBarcode:
		return hasBarcode && !hasOsmUID
	case SubjectOsmUID:
		return hasOsmUID && !hasBarcode
	case SubjectExactlyOne:
		return hasBarcode != hasOsmUID
	case SubjectAtMostOne:
		return !(hasBarcode && hasOsmUID)
	default:
		return false
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
