package doctor

import (
	"context"
	"fmt"

	"github.com/leeovery/studyplan/internal/task"
)

// RecordsCheck validates every element with the same rules the loader
// applies. Elements failing here are dropped on load and disappear from the
// file on the next save.
type RecordsCheck struct{}

// Run executes the records check. Non-array files are skipped.
func (c *RecordsCheck) Run(ctx context.Context) []CheckResult {
	env := envFrom(ctx)

	doc, err := getDocument(ctx, env)
	if err != nil {
		return fileNotFoundResult("Records", env)
	}

	var failures []CheckResult
	for _, el := range doc.Elements {
		if el.Parsed == nil {
			failures = append(failures, recordFailure(el.Index, "not an object"))
			continue
		}

		str := func(key string) string {
			s, _ := el.Parsed[key].(string)
			return s
		}
		_, err := env.Validator.Clean(task.Task{
			ID:      str("id"),
			Title:   str("title"),
			Subject: str("subject"),
			DueDate: str("due_date"),
			Status:  task.Status(str("status")),
		})
		if err != nil {
			failures = append(failures, recordFailure(el.Index, err.Error()))
		}
	}

	if len(failures) > 0 {
		return failures
	}

	return []CheckResult{{
		Name:   "Records",
		Passed: true,
	}}
}

func recordFailure(index int, reason string) CheckResult {
	return CheckResult{
		Name:       "Records",
		Passed:     false,
		Severity:   SeverityError,
		Details:    fmt.Sprintf("Element %d: %s", index, reason),
		Suggestion: "Fix the record; it is dropped when tasks are loaded",
	}
}
