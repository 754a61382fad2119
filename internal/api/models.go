package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/moderation-api/internal/domain"
)

// SubjectChangeRequest is a producer's notification about a product or shop.
type SubjectChangeRequest struct {
	TaskType string   `json:"task_type" validate:"required"`
	Barcode  *string  `json:"barcode"   validate:"omitempty,max=64"`
	OsmUID   *string  `json:"osm_uid"   validate:"omitempty,max=64"`
	Langs    []string `json:"langs"     validate:"omitempty,max=50,dive,required"`
}

// ReportRequest is a user's report about a product or shop.
type ReportRequest struct {
	Barcode *string `json:"barcode" validate:"omitempty,max=64"`
	OsmUID  *string `json:"osm_uid" validate:"omitempty,max=64"`
	Text    string  `json:"text"    validate:"required,max=4000"`
}

// FeedbackRequest is general user feedback, optionally about a product.
type FeedbackRequest struct {
	Barcode *string `json:"barcode" validate:"omitempty,max=64"`
	Text    string  `json:"text"    validate:"required,max=4000"`
}

// AssignTaskRequest asks for a task. Without task_id the next eligible task is picked.
type AssignTaskRequest struct {
	TaskID   *int64     `json:"task_id"  validate:"omitempty,gt=0"`
	Assignee *uuid.UUID `json:"assignee"`
	// Langs limits an automatic pick to tasks in these languages or without one.
	// Absent disables the filter; an empty list allows only tasks without a language.
	Langs []string `json:"langs" validate:"omitempty,max=50,dive,required"`
}

// ResolveTaskRequest optionally describes what the moderator did.
type ResolveTaskRequest struct {
	PerformedAction *string `json:"performed_action" validate:"omitempty,max=4000"`
}

// CustomActionRequest records a moderator action that was not prompted by a task.
type CustomActionRequest struct {
	Note    string  `json:"note"    validate:"required,max=4000"`
	Barcode *string `json:"barcode" validate:"omitempty,max=64"`
	OsmUID  *string `json:"osm_uid" validate:"omitempty,max=64"`
}

// ModeratorTaskResponse represents a task as returned to clients.
type ModeratorTaskResponse struct {
	ID             int64      `json:"id"`
	TaskType       string     `json:"task_type"`
	Barcode        *string    `json:"barcode,omitempty"`
	OsmUID         *string    `json:"osm_uid,omitempty"`
	SourceUserID   string     `json:"source_user_id"`
	TextFromUser   *string    `json:"text_from_user,omitempty"`
	Lang           *string    `json:"lang,omitempty"`
	CreationTime   time.Time  `json:"creation_time"`
	Assignee       *string    `json:"assignee,omitempty"`
	AssignTime     *time.Time `json:"assign_time,omitempty"`
	ResolutionTime *time.Time `json:"resolution_time,omitempty"`
	Resolver       *string    `json:"resolver,omitempty"`
	ResolverAction *string    `json:"resolver_action,omitempty"`
}

// ModeratorTaskListResponse wraps a list of tasks.
type ModeratorTaskListResponse struct {
	Tasks []ModeratorTaskResponse `json:"tasks"`
}

// LanguageCountsResponse reports how many tasks exist in total and per language.
type LanguageCountsResponse struct {
	TotalCount  int64            `json:"total_count"`
	PerLanguage map[string]int64 `json:"per_language"`
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// taskToResponse converts a domain.ModeratorTask to a ModeratorTaskResponse
func taskToResponse(task *domain.ModeratorTask) ModeratorTaskResponse {
	return ModeratorTaskResponse{
		ID:             task.ID,
		TaskType:       task.TaskType.String(),
		Barcode:        task.SubjectBarcode,
		OsmUID:         task.SubjectOsmUID,
		SourceUserID:   task.SourceUserID.String(),
		TextFromUser:   task.TextFromUser,
		Lang:           task.Lang,
		CreationTime:   task.CreationTime,
		Assignee:       uuidString(task.Assignee),
		AssignTime:     task.AssignTime,
		ResolutionTime: task.ResolutionTime,
		Resolver:       uuidString(task.Resolver),
		ResolverAction: task.ResolverAction,
	}
}

func tasksToResponse(tasks []*domain.ModeratorTask) []ModeratorTaskResponse {
	out := make([]ModeratorTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskToResponse(task))
	}
	return out
}
