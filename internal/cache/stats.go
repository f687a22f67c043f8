package cache

import (
	"fmt"
	"time"

	"github.com/leeovery/studyplan/internal/task"
)

// SubjectCount is the number of tasks, and how many are done, for one subject.
type SubjectCount struct {
	Subject string
	Total   int
	Done    int
}

// Stats summarizes the task collection.
type Stats struct {
	Total      int
	ToDo       int
	InProgress int
	Done       int
	// Overdue counts tasks due before today that are not Done.
	Overdue   int
	BySubject []SubjectCount
}

// Stats computes totals by status, by subject and the overdue count as of
// today (only the calendar date of today is used).
func (c *Cache) Stats(today time.Time) (Stats, error) {
	var s Stats

	rows, err := c.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return s, fmt.Errorf("querying status counts: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return s, fmt.Errorf("scanning status count: %w", err)
		}
		switch task.Status(status) {
		case task.StatusDone:
			s.Done += n
		case task.StatusInProgress:
			s.InProgress += n
		default:
			s.ToDo += n
		}
		s.Total += n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return s, fmt.Errorf("iterating status counts: %w", err)
	}
	rows.Close()

	err = c.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE due_iso IS NOT NULL AND due_iso < ? AND status != ?`,
		today.Format(isoDate), string(task.StatusDone),
	).Scan(&s.Overdue)
	if err != nil {
		return s, fmt.Errorf("querying overdue count: %w", err)
	}

	rows, err = c.db.Query(`
SELECT subject, COUNT(*), SUM(CASE WHEN status = ? THEN 1 ELSE 0 END)
FROM tasks
GROUP BY subject
ORDER BY COUNT(*) DESC, subject ASC`, string(task.StatusDone))
	if err != nil {
		return s, fmt.Errorf("querying subject counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc SubjectCount
		if err := rows.Scan(&sc.Subject, &sc.Total, &sc.Done); err != nil {
			return s, fmt.Errorf("scanning subject count: %w", err)
		}
		s.BySubject = append(s.BySubject, sc)
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("iterating subject counts: %w", err)
	}

	return s, nil
}
