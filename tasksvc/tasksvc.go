package tasksvc

import (
	"context"
	"strings"
	"time"

	"github.com/ichigozero/todokit"
)

type Task struct {
	ID          string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
	UserID      string    `json:"user" gorm:"index;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Patch names only the fields an update changes.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Normalize trims the string fields and rejects a blank title.
func (p Patch) Normalize() (Patch, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Patch{}, ErrTitleRequired
		}
		p.Title = &title
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		p.Description = &description
	}
	return p, nil
}

// Apply merges the present fields into t.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// TaskRepository scopes every lookup and write by the owning user.
type TaskRepository interface {
	Create(ctx context.Context, task Task) (Task, error)
	FindAll(ctx context.Context, userID string) ([]Task, error)
	Find(ctx context.Context, userID, taskID string) (Task, error)
	Update(ctx context.Context, userID, taskID string, p Patch) (Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type Auth struct {
	TokenID string
	UserID  string
}

var (
	ErrTitleRequired = todokit.NewError(todokit.Validation, "Title is required")
	ErrInvalidBody   = todokit.NewError(todokit.Validation, "Invalid request body")
	ErrTaskNotFound  = todokit.NewError(todokit.NotFound, "Task not found")
	ErrClaimsMissing = todokit.NewError(todokit.Auth, "No token, authorization denied")
	ErrClaimsInvalid = todokit.NewError(todokit.Auth, "Token is not valid")
)
