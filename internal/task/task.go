// Package task defines the study task record, ID generation, and the
// validation and normalization applied on every ingress path.
package task

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Task represents a single trackable unit of study work.
type Task struct {
	ID      string `json:"id"`
	Title   string `json:"title" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	DueDate string `json:"due_date" validate:"required,duedate"`
	Status  Status `json:"status"`
}

// Input carries the caller-supplied fields for a new task. Status may be
// empty or unrecognized; it is normalized, never rejected.
type Input struct {
	Title   string
	Subject string
	DueDate string
	Status  string
}

// Patch describes an edit. Nil fields are left unchanged. The ID is not
// part of a patch; it is immutable for the life of a record.
type Patch struct {
	Title   *string
	Subject *string
	DueDate *string
	Status  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Subject == nil && p.DueDate == nil && p.Status == nil
}

// Apply returns a copy of t with the patch fields merged in. The result is
// not validated.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = Status(*p.Status)
	}
	return t
}

// FromInput builds an unvalidated task (without an ID) from caller input.
func FromInput(in Input) Task {
	return Task{
		Title:   in.Title,
		Subject: in.Subject,
		DueDate: in.DueDate,
		Status:  Status(in.Status),
	}
}

// Normalize trims every field and maps the status onto the enumeration.
func Normalize(t Task) Task {
	return Task{
		ID:      strings.TrimSpace(t.ID),
		Title:   strings.TrimSpace(t.Title),
		Subject: strings.TrimSpace(t.Subject),
		DueDate: strings.TrimSpace(t.DueDate),
		Status:  NormalizeStatus(string(t.Status)),
	}
}

const maxRetries = 5

// GenerateID creates a new random (UUIDv4) task ID.
// The exists function checks if an ID is already in use.
func GenerateID(exists func(string) bool) (string, error) {
	for i := 0; i < maxRetries; i++ {
		u, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("failed to generate random id: %w", err)
		}
		id := u.String()
		if exists == nil || !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique ID after %d attempts", maxRetries)
}
