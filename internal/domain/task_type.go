package domain

import (
	"sort"
	"strings"
)

// TaskType identifies the kind of moderation work a task represents.
type TaskType string

// Known task types. The set is closed: adding a kind means adding a
// descriptor below.
const (
	TaskTypeUserReport                    TaskType = "user_report"
	TaskTypeUserFeedback                  TaskType = "user_feedback"
	TaskTypeShopCreationReview            TaskType = "osm_shop_creation"
	TaskTypeProductChange                 TaskType = "product_change"
	TaskTypeProductChangeInExternalSource TaskType = "product_change_in_off"
	TaskTypeCustomModerationAction        TaskType = "custom_moderation_action"
)

// DedupStrategy describes what a producer does with pending tasks
// for the same subject when a new task of the kind is submitted.
type DedupStrategy int

const (
	// DedupNever always inserts a new task.
	DedupNever DedupStrategy = iota
	// DedupBySubject replaces the pending task of the same kind, subject and language.
	DedupBySubject
)

// SubjectRule describes which subject identifiers a task kind requires.
type SubjectRule int

const (
	// SubjectBarcode requires a barcode and forbids an OSM UID.
	SubjectBarcode SubjectRule = iota
	// SubjectOsmUID requires an OSM UID and forbids a barcode.
	SubjectOsmUID
	// SubjectExactlyOne requires exactly one of barcode and OSM UID.
	SubjectExactlyOne
	// SubjectAtMostOne allows either identifier or none, but not both.
	SubjectAtMostOne
)

// TaskTypeDescriptor holds the scheduling properties of a task kind.
type TaskTypeDescriptor struct {
	Type TaskType
	// PriorityRank orders assignment; lower ranks are served first.
	PriorityRank int
	// LanguageAware kinds carry a natural-language tag.
	LanguageAware bool
	Dedup         DedupStrategy
	// DedupGroup names kinds that replace each other for the same subject.
	// Empty for kinds that never dedup.
	DedupGroup string
	Subject    SubjectRule
	// RequiresText kinds must carry user text.
	RequiresText bool
}

var taskTypeDescriptors = map[TaskType]TaskTypeDescriptor{
	TaskTypeUserReport: {
		Type:         TaskTypeUserReport,
		PriorityRank: 0,
		Dedup:        DedupNever,
		Subject:      SubjectExactlyOne,
		RequiresText: true,
	},
	TaskTypeUserFeedback: {
		Type:         TaskTypeUserFeedback,
		PriorityRank: 1,
		Dedup:        DedupNever,
		Subject:      SubjectAtMostOne,
		RequiresText: true,
	},
	TaskTypeShopCreationReview: {
		Type:         TaskTypeShopCreationReview,
		PriorityRank: 2,
		Dedup:        DedupBySubject,
		DedupGroup:   "shop",
		Subject:      SubjectOsmUID,
	},
	TaskTypeProductChange: {
		Type:          TaskTypeProductChange,
		PriorityRank:  3,
		LanguageAware: true,
		Dedup:         DedupBySubject,
		DedupGroup:    "product_change",
		Subject:       SubjectBarcode,
	},
	TaskTypeProductChangeInExternalSource: {
		Type:          TaskTypeProductChangeInExternalSource,
		PriorityRank:  4,
		LanguageAware: true,
		Dedup:         DedupBySubject,
		DedupGroup:    "product_change",
		Subject:       SubjectBarcode,
	},
	TaskTypeCustomModerationAction: {
		Type:         TaskTypeCustomModerationAction,
		PriorityRank: 5,
		Dedup:        DedupNever,
		Subject:      SubjectAtMostOne,
	},
}

// ParseTaskType converts a wire value into a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(strings.TrimSpace(s))
	if !t.IsValid() {
		return "", ErrInvalidTaskType
	}
	return t, nil
}

// IsValid reports whether t is one of the known task types.
func (t TaskType) IsValid() bool {
	_, ok := taskTypeDescriptors[t]
	return ok
}

// Descriptor returns the scheduling properties of t.
// The second result is false for unknown types.
func (t TaskType) Descriptor() (TaskTypeDescriptor, bool) {
	d, ok := taskTypeDescriptors[t]
	return d, ok
}

// PriorityRank returns the rank of t, or -1 for unknown types.
func (t TaskType) PriorityRank() int {
	d, ok := taskTypeDescriptors[t]
	if !ok {
		return -1
	}
	return d.PriorityRank
}

// String implements fmt.Stringer.
func (t TaskType) String() string {
	return string(t)
}

// AllTaskTypes returns every known task type ordered by priority rank.
func AllTaskTypes() []TaskType {
	types := make([]TaskType, 0, len(taskTypeDescriptors))
	for t := range taskTypeDescriptors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		ri, rj := types[i].PriorityRank(), types[j].PriorityRank()
		if ri != rj {
			return ri < rj
		}
		return types[i] < types[j]
	})
	return types
}

// DedupGroupMembers returns the other task types that share t's dedup group.
// It returns nil for types that never dedup.
func DedupGroupMembers(t TaskType) []TaskType {
	d, ok := taskTypeDescriptors[t]
	if !ok || d.DedupGroup == "" {
		return nil
	}

	var members []TaskType
	for _, other := range AllTaskTypes() {
		if other == t {
			continue
		}
		if taskTypeDescriptors[other].DedupGroup == d.DedupGroup {
			members = append(members, other)
		}
	}
	return members
}
