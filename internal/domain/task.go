package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted, TaskBlocked:
		return true
	}
	return false
}

type Task struct {
	TaskID              uuid.UUID  `gorm:"column:task_id;type:uuid;primaryKey" json:"task_id"`
	ProjectID           uuid.UUID  `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Title               string     `gorm:"column:title;not null" json:"title"`
	Description         string     `gorm:"column:description" json:"description"`
	AssignedVolunteerID *uuid.UUID `gorm:"column:assigned_volunteer_id;type:uuid;index" json:"assigned_volunteer_id"`
	Status              TaskStatus `gorm:"column:status;type:varchar(20);not null;default:'todo'" json:"status"`
	Priority            Priority   `gorm:"column:priority;type:varchar(10);not null;default:'medium'" json:"priority"`
	EstimatedHours      float64    `gorm:"column:estimated_hours;not null;default:0" json:"estimated_hours"`
	ActualHours         float64    `gorm:"column:actual_hours;not null;default:0" json:"actual_hours"`
	DueDate             *time.Time `gorm:"column:due_date" json:"due_date"`
	CompletedAt         *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt           time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Task) TableName() string {
	return "Tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.TaskID == uuid.Nil {
		t.TaskID = uuid.New()
	}
	return nil
}

func (t *Task) IsCompleted() bool { return t.Status == TaskCompleted }

func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && now.After(*t.DueDate) && !t.IsCompleted()
}

func (t *Task) Validate() error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return NewError(ErrInvalidInput, "title is required")
	case !t.Status.Valid():
		return NewError(ErrInvalidInput, "invalid task status")
	case !t.Priority.Valid():
		return NewError(ErrInvalidInput, "invalid task priority")
	case t.EstimatedHours < 0 || t.ActualHours < 0:
		return ErrNegativeHours
	}
	return nil
}
