package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leeovery/studyplan/internal/backup"
	"github.com/leeovery/studyplan/internal/cache"
	"github.com/leeovery/studyplan/internal/csvio"
	"github.com/leeovery/studyplan/internal/task"
)

// JSONFormatter implements the Formatter interface using JSON output.
// All keys use snake_case. Output is 2-space indented via json.MarshalIndent.
type JSONFormatter struct{}

// jsonTransition is the JSON representation of a status toggle.
type jsonTransition struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// jsonImport is the JSON representation of an import outcome.
type jsonImport struct {
	Added            int `json:"added"`
	DuplicateSkipped int `json:"duplicate_skipped"`
	Invalid          int `json:"invalid"`
}

// jsonBackup is the JSON representation of a backup listing entry.
type jsonBackup struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Created string `json:"created"`
	Size    int64  `json:"size"`
}

// jsonSubject is one row of the per-subject breakdown.
type jsonSubject struct {
	Subject string `json:"subject"`
	Total   int    `json:"total"`
	Done    int    `json:"done"`
}

// jsonStats is the JSON representation of task statistics.
// BySubject is initialized to an empty slice to produce [] not null.
type jsonStats struct {
	Total      int           `json:"total"`
	ToDo       int           `json:"to_do"`
	InProgress int           `json:"in_progress"`
	Done       int           `json:"done"`
	Overdue    int           `json:"overdue"`
	BySubject  []jsonSubject `json:"by_subject"`
}

// jsonMessage is the JSON representation of a simple message.
type jsonMessage struct {
	Message string `json:"message"`
}

// FormatTaskList renders tasks as a JSON array. Empty lists produce [].
func (f *JSONFormatter) FormatTaskList(w io.Writer, tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return writeJSON(w, tasks)
}

// FormatTaskDetail renders a single task object.
func (f *JSONFormatter) FormatTaskDetail(w io.Writer, t task.Task) error {
	return writeJSON(w, t)
}

// FormatTransition renders a status toggle.
func (f *JSONFormatter) FormatTransition(w io.Writer, id string, from, to task.Status) error {
	return writeJSON(w, jsonTransition{ID: id, From: string(from), To: string(to)})
}

// FormatImport renders import counts.
func (f *JSONFormatter) FormatImport(w io.Writer, res csvio.ImportResult) error {
	return writeJSON(w, jsonImport{Added: res.Added, DuplicateSkipped: res.DuplicateSkipped, Invalid: res.Invalid})
}

// FormatBackups renders the backup listing as an array.
func (f *JSONFormatter) FormatBackups(w io.Writer, infos []backup.Info) error {
	out := make([]jsonBackup, 0, len(infos))
	for _, info := range infos {
		out = append(out, jsonBackup{
			Name:    info.Name,
			Path:    info.Path,
			Created: info.Created.UTC().Format(time.RFC3339Nano),
			Size:    info.Size,
		})
	}
	return writeJSON(w, out)
}

// FormatStats renders statistics as a single object.
func (f *JSONFormatter) FormatStats(w io.Writer, s cache.Stats) error {
	out := jsonStats{
		Total:      s.Total,
		ToDo:       s.ToDo,
		InProgress: s.InProgress,
		Done:       s.Done,
		Overdue:    s.Overdue,
		BySubject:  make([]jsonSubject, 0, len(s.BySubject)),
	}
	for _, sc := range s.BySubject {
		out.BySubject = append(out.BySubject, jsonSubject{Subject: sc.Subject, Total: sc.Total, Done: sc.Done})
	}
	return writeJSON(w, out)
}

// FormatMessage renders {"message": msg}.
func (f *JSONFormatter) FormatMessage(w io.Writer, msg string) error {
	return writeJSON(w, jsonMessage{Message: msg})
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal error: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
