// Package csvio converts between the task store and CSV files. Import
// validates row by row and saves once; export writes the natural order.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/storage"
	"github.com/leeovery/studyplan/internal/store"
	"github.com/leeovery/studyplan/internal/task"
)

// Header is the exact column order written by Export.
var Header = []string{"id", "title", "subject", "due_date", "status"}

var requiredColumns = []string{"title", "subject", "due_date"}

// MissingColumnsError rejects an import whose header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Columns, ", "))
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Added            int
	DuplicateSkipped int
	Invalid          int
}

// Target is the store side of an import.
type Target interface {
	IDs() map[string]struct{}
	AppendBatch(tasks []task.Task) error
}

// Import reads the CSV file at path into dst. Rows are validated one by one;
// invalid rows and rows whose id is already known are counted and skipped.
// Accepted rows are appended with a single save at the end.
//
// When dst reports a save failure the result is still returned alongside the
// error.
func Import(fsys afero.Fs, path string, v *task.Validator, dst Target) (ImportResult, error) {
	var res ImportResult

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return res, &storage.IOError{Op: "read", Path: path, Err: err}
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, &MissingColumnsError{Columns: slices.Clone(requiredColumns)}
		}
		return res, fmt.Errorf("reading csv header: %w", err)
	}

	cols := indexColumns(header)
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return res, &MissingColumnsError{Columns: missing}
	}

	known := dst.IDs()
	exists := func(id string) bool {
		_, ok := known[id]
		return ok
	}

	var batch []task.Task
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Invalid++
				continue
			}
			return res, fmt.Errorf("reading csv: %w", err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		t, err := v.Clean(task.Task{
			ID:      field("id"),
			Title:   field("title"),
			Subject: field("subject"),
			DueDate: field("due_date"),
			Status:  task.Status(field("status")),
		})
		if err != nil {
			res.Invalid++
			continue
		}

		if t.ID == "" {
			id, err := task.GenerateID(exists)
			if err != nil {
				return res, err
			}
			t.ID = id
		} else if exists(t.ID) {
			res.DuplicateSkipped++
			continue
		}

		known[t.ID] = struct{}{}
		batch = append(batch, t)
	}

	if err := dst.AppendBatch(batch); err != nil {
		if store.IsSaveWarning(err) {
			res.Added = len(batch)
		}
		return res, err
	}
	res.Added = len(batch)
	return res, nil
}

// indexColumns maps trimmed, lower-cased header names to their position. The
// first occurrence of a repeated name wins.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := cols[key]; !ok {
			cols[key] = i
		}
	}
	return cols
}

// Export writes tasks to path as CSV with Header as the first row. The file
// is replaced atomically.
func Export(fsys afero.Fs, path string, tasks []task.Task) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range tasks {
		if err := w.Write([]string{t.ID, t.Title, t.Subject, t.DueDate, string(t.Status)}); err != nil {
			return fmt.Errorf("writing csv row %s: %w", t.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return storage.WriteAtomic(fsys, path, buf.Bytes())
}
