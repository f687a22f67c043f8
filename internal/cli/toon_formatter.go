package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	toon "github.com/toon-format/toon-go"

	"github.com/leeovery/studyplan/internal/backup"
	"github.com/leeovery/studyplan/internal/cache"
	"github.com/leeovery/studyplan/internal/csvio"
	"github.com/leeovery/studyplan/internal/task"
)

// ToonFormatter implements the Formatter interface using TOON format.
// TOON (Token-Oriented Object Notation) is optimized for agent consumption.
type ToonFormatter struct{}

var taskFields = []string{"id", "title", "subject", "due_date", "status"}

// FormatTaskList renders tasks in TOON tabular format.
// Output: tasks[N]{id,title,subject,due_date,status}: followed by indented rows.
func (f *ToonFormatter) FormatTaskList(w io.Writer, tasks []task.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "tasks[0]{"+strings.Join(taskFields, ",")+"}:")
		return err
	}

	objects := make([]toon.Object, len(tasks))
	for i, t := range tasks {
		objects[i] = toon.NewObject(
			toon.Field{Key: "id", Value: t.ID},
			toon.Field{Key: "title", Value: t.Title},
			toon.Field{Key: "subject", Value: t.Subject},
			toon.Field{Key: "due_date", Value: t.DueDate},
			toon.Field{Key: "status", Value: string(t.Status)},
		)
	}

	doc := toon.NewObject(toon.Field{Key: "tasks", Value: objects})
	result, err := toon.MarshalString(doc)
	if err != nil {
		return fmt.Errorf("toon marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, result)
	return err
}

// FormatTaskDetail renders a single task as a one-row task section.
func (f *ToonFormatter) FormatTaskDetail(w io.Writer, t task.Task) error {
	_, err := fmt.Fprint(w, toonSection("task", taskFields, []any{
		t.ID, t.Title, t.Subject, t.DueDate, string(t.Status),
	}))
	return err
}

// FormatTransition renders a status toggle as plain text.
func (f *ToonFormatter) FormatTransition(w io.Writer, id string, from, to task.Status) error {
	_, err := fmt.Fprintf(w, "%s: %s → %s\n", id, from, to)
	return err
}

// FormatImport renders import counts as a one-row section.
func (f *ToonFormatter) FormatImport(w io.Writer, res csvio.ImportResult) error {
	_, err := fmt.Fprint(w, toonSection("import", []string{"added", "duplicate_skipped", "invalid"}, []any{
		res.Added, res.DuplicateSkipped, res.Invalid,
	}))
	return err
}

// FormatBackups renders the backup listing as a tabular section.
func (f *ToonFormatter) FormatBackups(w io.Writer, infos []backup.Info) error {
	rows := make([][]any, len(infos))
	for i, info := range infos {
		rows[i] = []any{info.Name, info.Created.UTC().Format("2006-01-02T15:04:05Z"), int(info.Size)}
	}
	_, err := fmt.Fprint(w, toonTable("backups", []string{"name", "created", "size"}, rows))
	return err
}

// FormatStats renders statistics in two sections: the summary row and the
// per-subject breakdown.
func (f *ToonFormatter) FormatStats(w io.Writer, s cache.Stats) error {
	summary := toonSection("stats", []string{"total", "to_do", "in_progress", "done", "overdue"}, []any{
		s.Total, s.ToDo, s.InProgress, s.Done, s.Overdue,
	})

	rows := make([][]any, len(s.BySubject))
	for i, sc := range s.BySubject {
		rows[i] = []any{sc.Subject, sc.Total, sc.Done}
	}
	bySubject := toonTable("by_subject", []string{"subject", "total", "done"}, rows)

	_, err := fmt.Fprint(w, summary+"\n"+bySubject)
	return err
}

// FormatMessage renders a simple message as plain text.
func (f *ToonFormatter) FormatMessage(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}

// toonSection builds a single-row section: name{fields}: and one value row.
func toonSection(name string, fields []string, values []any) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = toonCell(v)
	}
	return name + "{" + strings.Join(fields, ",") + "}:\n  " + strings.Join(escaped, ",") + "\n"
}

// toonTable builds a counted tabular section. The header is always present,
// even when there are no rows.
func toonTable(name string, fields []string, rows [][]any) string {
	header := fmt.Sprintf("%s[%d]{%s}:", name, len(rows), strings.Join(fields, ","))
	if len(rows) == 0 {
		return header + "\n"
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		escaped := make([]string, len(row))
		for j, v := range row {
			escaped[j] = toonCell(v)
		}
		lines[i] = "  " + strings.Join(escaped, ",")
	}
	return header + "\n" + strings.Join(lines, "\n") + "\n"
}

// toonCell renders one value: integers as-is, everything else escaped.
func toonCell(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case string:
		return toonEscapeValue(x)
	default:
		return toonEscapeValue(fmt.Sprint(x))
	}
}

// toonEscapeValue uses the toon-go library to properly escape a string value
// for use in TOON array context (comma-delimited).
func toonEscapeValue(s string) string {
	// Marshal a single-row tabular array to get array-context escaping.
	doc := toon.NewObject(
		toon.Field{Key: "a", Value: []toon.Object{
			toon.NewObject(toon.Field{Key: "v", Value: s}),
		}},
	)
	result, err := toon.MarshalString(doc)
	if err != nil {
		return s
	}
	// Result is "a[1]{v}:\n  <value>"
	lines := strings.SplitN(result, "\n", 2)
	if len(lines) == 2 {
		return strings.TrimSpace(lines[1])
	}
	return s
}
