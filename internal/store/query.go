package store

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/leeovery/studyplan/internal/task"
)

// SortKey names the field a query is ordered by.
type SortKey string

const (
	SortByDueDate SortKey = "due_date"
	SortByTitle   SortKey = "title"
	SortBySubject SortKey = "subject"
)

// SortDir is the query order direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Query selects and orders tasks. The zero value matches every task, sorted
// by due date ascending.
type Query struct {
	// Search is matched case-insensitively against title and subject.
	Search string
	// Status filters to one status; empty matches all.
	Status  task.Status
	SortKey SortKey
	SortDir SortDir
}

// ParseSortKey validates a sort key name. Empty selects SortByDueDate.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByDueDate, nil
	case SortByDueDate, SortByTitle, SortBySubject:
		return k, nil
	}
	return "", fmt.Errorf("invalid sort key '%s' - valid keys: title, subject, due_date", s)
}

// comparator returns the ascending comparison for key.
func (s *Store) comparator(key SortKey, fold cases.Caser) func(a, b task.Task) int {
	switch key {
	case SortByTitle:
		return func(a, b task.Task) int {
			return strings.Compare(fold.String(a.Title), fold.String(b.Title))
		}
	case SortBySubject:
		return func(a, b task.Task) int {
			return strings.Compare(fold.String(a.Subject), fold.String(b.Subject))
		}
	default:
		return func(a, b task.Task) int {
			da, errA := s.validator.ParseDate(a.DueDate)
			db, errB := s.validator.ParseDate(b.DueDate)
			if errA != nil || errB != nil {
				return strings.Compare(a.DueDate, b.DueDate)
			}
			return da.Compare(db)
		}
	}
}
