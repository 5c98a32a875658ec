// Package task defines the Task domain entity.
package task

import (
	"fmt"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// StatusFilter selects which tasks a list operation returns.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

// Limits on user-supplied task fields.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
)

// Task represents a single todo item owned by one user.
type Task struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new task.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Validate checks field presence and length bounds.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(r.Title) > MaxTitleLen {
		return fmt.Errorf("%w: title must be at most %d characters", domain.ErrValidation, MaxTitleLen)
	}
	if len(r.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description must be at most %d characters", domain.ErrValidation, MaxDescriptionLen)
	}
	return nil
}

// UpdateRequest holds the optional fields of a task update. At least one
// field must be present.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate checks that at least one field is set and bounds hold.
func (r *UpdateRequest) Validate() error {
	if r.Title == nil && r.Description == nil {
		return fmt.Errorf("%w: at least one of title or description is required", domain.ErrValidation)
	}
	if r.Title != nil {
		if *r.Title == "" {
			return fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
		}
		if len(*r.Title) > MaxTitleLen {
			return fmt.Errorf("%w: title must be at most %d characters", domain.ErrValidation, MaxTitleLen)
		}
	}
	if r.Description != nil && len(*r.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description must be at most %d characters", domain.ErrValidation, MaxDescriptionLen)
	}
	return nil
}

// ParseFilter validates a status filter string. An empty string means "all".
func ParseFilter(s string) (StatusFilter, error) {
	switch StatusFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending:
		return FilterPending, nil
	case FilterCompleted:
		return FilterCompleted, nil
	default:
		return "", fmt.Errorf("%w: status must be one of all, pending, completed", domain.ErrValidation)
	}
}
