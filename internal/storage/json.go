// Package storage provides durable JSON persistence for tasks: a best-effort
// loader that drops invalid records, and an atomic writer using the temp file
// + fsync + rename pattern.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/task"
)

// IOError reports a read or write failure on a task file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// LoadResult is the outcome of a best-effort read. Accepted counts records
// kept; Dropped counts elements rejected by validation or repeating an ID.
// Malformed is set when the content is not a JSON array at all.
type LoadResult struct {
	Tasks     []task.Task
	Accepted  int
	Dropped   int
	Malformed bool
}

// Encode serializes tasks as an indented JSON array with a trailing newline.
// A nil slice encodes as [].
func Encode(tasks []task.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tasks: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a JSON array of tasks. Each element is normalized and
// validated on its own; failing elements are dropped without affecting the
// rest. Elements without an ID are given a fresh one; an element repeating an
// ID already accepted is dropped. Empty input yields an empty result.
func Decode(data []byte, v *task.Validator) LoadResult {
	res := LoadResult{Tasks: []task.Task{}}

	if len(bytes.TrimSpace(data)) == 0 {
		return res
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		res.Malformed = true
		return res
	}

	seen := make(map[string]struct{}, len(elements))
	exists := func(id string) bool {
		_, ok := seen[id]
		return ok
	}

	for _, raw := range elements {
		t, ok := decodeElement(raw)
		if !ok {
			res.Dropped++
			continue
		}

		cleaned, err := v.Clean(t)
		if err != nil {
			res.Dropped++
			continue
		}

		if cleaned.ID == "" {
			id, err := task.GenerateID(exists)
			if err != nil {
				res.Dropped++
				continue
			}
			cleaned.ID = id
		} else if exists(cleaned.ID) {
			res.Dropped++
			continue
		}

		seen[cleaned.ID] = struct{}{}
		res.Tasks = append(res.Tasks, cleaned)
		res.Accepted++
	}

	return res
}

// decodeElement reads one array element. Fields of the wrong JSON type are
// treated as absent so that validation (or status normalization) decides the
// outcome. Non-object elements are rejected.
func decodeElement(raw json.RawMessage) (task.Task, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return task.Task{}, false
	}

	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}

	return task.Task{
		ID:      str("id"),
		Title:   str("title"),
		Subject: str("subject"),
		DueDate: str("due_date"),
		Status:  task.Status(str("status")),
	}, true
}

// ReadFile reads and decodes a task file from fsys. A missing file is
// reported as an *IOError wrapping fs.ErrNotExist.
func ReadFile(fsys afero.Fs, path string, v *task.Validator) (LoadResult, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return LoadResult{}, &IOError{Op: "read", Path: path, Err: err}
	}
	return Decode(data, v), nil
}

// WriteAtomic writes data to path using the atomic write pattern: write to a
// temp file in the same directory, fsync, close, then rename over path. The
// destination is never opened for writing, so on any failure before the
// rename its previous content is intact.
func WriteAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return &IOError{Op: "create temp file for", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	// Clean up temp file on error.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = fsys.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return &IOError{Op: "write temp file for", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOError{Op: "sync temp file for", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "close temp file for", Path: path, Err: err}
	}

	if err := fsys.Rename(tmpPath, path); err != nil {
		return &IOError{Op: "replace", Path: path, Err: err}
	}

	success = true
	return nil
}

// isNotExist reports whether err means the file is absent.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
