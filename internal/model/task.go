package model

import (
	"net/url"
	"strings"
	"time"
)

// DateLayout is the wire format of task due dates and filter bounds.
const DateLayout = "2006-01-02"

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

// TaskPriorities lists priorities from least to most pressing.
var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// TaskStatuses lists statuses in board order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusCompleted, StatusCancelled}

// ParseTaskStatus accepts a status name in any case, with spaces or dashes for underscores.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, s := range TaskStatuses {
		if string(s) == norm {
			return s, true
		}
	}
	return "", false
}

// ParseTaskPriority accepts a priority name in any case.
func ParseTaskPriority(raw string) (TaskPriority, bool) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	for _, p := range TaskPriorities {
		if string(p) == norm {
			return p, true
		}
	}
	return "", false
}

// Task is the server's representation of a planner item.
type Task struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Priority       TaskPriority `json:"priority,omitempty"`
	Status         TaskStatus   `json:"status,omitempty"`
	DueDate        string       `json:"dueDate,omitempty"`
	RecurrenceRule string       `json:"recurrenceRule,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	CreatedAt      Timestamp    `json:"createdAt"`
	UpdatedAt      Timestamp    `json:"updatedAt"`
}

// EffectiveStatus treats a missing status as TODO.
func (t Task) EffectiveStatus() TaskStatus {
	if t.Status == "" {
		return StatusTodo
	}
	return t.Status
}

// Due parses the due date in loc.
func (t Task) Due(loc *time.Location) (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Overdue reports an unfinished task whose due date is before today.
func (t Task) Overdue(now time.Time) bool {
	if t.EffectiveStatus() == StatusCompleted || t.EffectiveStatus() == StatusCancelled {
		return false
	}
	due, ok := t.Due(now.Location())
	if !ok {
		return false
	}
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return due.Before(today)
}

// IsRecurring reports whether the task carries a recurrence rule.
func (t Task) IsRecurring() bool {
	return strings.TrimSpace(t.RecurrenceRule) != ""
}

// CreateTaskRequest is the payload for creating a task.
type CreateTaskRequest struct {
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Priority       TaskPriority `json:"priority,omitempty"`
	DueDate        string       `json:"dueDate,omitempty"`
	RecurrenceRule string       `json:"recurrenceRule,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
}

// UpdateTaskRequest is a partial update; nil fields are not sent.
type UpdateTaskRequest struct {
	Title          *string       `json:"title,omitempty"`
	Description    *string       `json:"description,omitempty"`
	Priority       *TaskPriority `json:"priority,omitempty"`
	Status         *TaskStatus   `json:"status,omitempty"`
	DueDate        *string       `json:"dueDate,omitempty"`
	RecurrenceRule *string       `json:"recurrenceRule,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
}

// TaskFilter narrows a task listing. Empty fields are not sent.
type TaskFilter struct {
	Status TaskStatus
	From   string
	To     string
}

// Query encodes the filter as URL query parameters.
func (f TaskFilter) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	return q
}

// InstanceQuery bounds the expansion of a recurring task.
type InstanceQuery struct {
	From string
	To   string
	Max  int
}
