// Package backup writes timestamped snapshots of the task collection and
// restores the collection from them.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/storage"
	"github.com/leeovery/studyplan/internal/task"
)

const (
	filePrefix = "planner-"
	fileSuffix = ".json"
	timeLayout = "20060102T150405.000000000Z"
	maxRetries = 100
)

// ErrNotConfirmed is returned by Restore when the caller has not confirmed
// the destructive replace.
var ErrNotConfirmed = errors.New("restore replaces every task and must be confirmed")

// Replacer is the store side of a restore.
type Replacer interface {
	Replace(tasks []task.Task) error
}

// RestoreResult reports how many snapshot records were restored and how many
// were dropped as invalid.
type RestoreResult struct {
	Restored int
	Dropped  int
}

// Info describes one backup file.
type Info struct {
	Path    string
	Name    string
	Created time.Time
	Size    int64
}

// Manager owns the backup directory.
type Manager struct {
	fs        afero.Fs
	dir       string
	validator *task.Validator
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager writing to dir on fsys.
func NewManager(fsys afero.Fs, dir string, v *task.Validator, opts ...Option) *Manager {
	m := &Manager{
		fs:        fsys,
		dir:       dir,
		validator: v,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backup writes a snapshot of tasks to a new file and returns its path. An
// existing backup is never overwritten: on a name collision the timestamp is
// advanced by a nanosecond and the create retried.
func (m *Manager) Backup(tasks []task.Task) (string, error) {
	data, err := storage.Encode(tasks)
	if err != nil {
		return "", err
	}

	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return "", &storage.IOError{Op: "create backup directory", Path: m.dir, Err: err}
	}

	ts := m.now().UTC()
	for range maxRetries {
		path := filepath.Join(m.dir, filePrefix+ts.Format(timeLayout)+fileSuffix)
		f, err := m.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			ts = ts.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return "", &storage.IOError{Op: "create backup", Path: path, Err: err}
		}

		if err := writeAndSync(f, data); err != nil {
			_ = m.fs.Remove(path)
			return "", &storage.IOError{Op: "write backup", Path: path, Err: err}
		}
		return path, nil
	}

	return "", fmt.Errorf("failed to find a free backup name after %d attempts", maxRetries)
}

func writeAndSync(f afero.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Restore replaces the whole collection in dst with the records read from
// path. Invalid records are dropped exactly as on load. Nothing is read or
// changed unless confirmed is true. A file that cannot be read or is not a
// JSON array leaves dst untouched.
func (m *Manager) Restore(path string, confirmed bool, dst Replacer) (RestoreResult, error) {
	if !confirmed {
		return RestoreResult{}, ErrNotConfirmed
	}

	res, err := storage.ReadFile(m.fs, path, m.validator)
	if err != nil {
		return RestoreResult{}, err
	}
	if res.Malformed {
		return RestoreResult{}, &task.ValidationError{Field: "file", Reason: "is not a JSON array of tasks"}
	}

	out := RestoreResult{Restored: res.Accepted, Dropped: res.Dropped}
	if err := dst.Replace(res.Tasks); err != nil {
		return out, err
	}
	return out, nil
}

// List returns the backups in the directory, newest first. A missing
// directory yields no backups.
func (m *Manager) List() ([]Info, error) {
	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &storage.IOError{Op: "list backups in", Path: m.dir, Err: err}
	}

	var infos []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		created, err := time.Parse(timeLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Path:    filepath.Join(m.dir, name),
			Name:    name,
			Created: created,
			Size:    e.Size(),
		})
	}

	slices.SortFunc(infos, func(a, b Info) int {
		return b.Created.Compare(a.Created)
	})
	return infos, nil
}
