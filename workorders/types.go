package workorders

import "time"

// WorkOrder is a maintenance task on a plant. Dates are in the backend's
// DD-MM-YYYY form.
type WorkOrder struct {
	ID             string `json:"id"`
	PlantID        string `json:"plantId"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	AssignedTo     string `json:"assignedTo,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	DueDate        string `json:"dueDate,omitempty"`
	CompletionDate string `json:"completionDate,omitempty"`
}

// Work order statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	PlantID  string
	Status   string
	Priority string
}

// NewWorkOrder is the payload of Create. Dates may be given in any form the
// transport recognizes; they are sent as DD-MM-YYYY.
type NewWorkOrder struct {
	PlantID     string     `json:"plantId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Update is the payload of Update. Nil fields are left unchanged.
type Update struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Priority       *string    `json:"priority,omitempty"`
	Status         *string    `json:"status,omitempty"`
	AssignedTo     *string    `json:"assignedTo,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
}
