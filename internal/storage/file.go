package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/task"
)

const defaultLockTimeout = 5 * time.Second

var errLockTimeout = errors.New("could not acquire lock - another planner process may be using the data directory")

// Logger is an optional interface for verbose/debug logging.
// When set on a File, key operations will log through it.
type Logger interface {
	Log(msg string)
}

// File is the persistence adapter for the primary task file. Reads are
// best-effort; writes replace the file atomically.
type File struct {
	path        string
	fs          afero.Fs
	validator   *task.Validator
	lockPath    string
	lockTimeout time.Duration
	logger      Logger
	warn        *log.Logger
}

// Option configures a File.
type Option func(*File)

// WithFs sets the filesystem. The default is the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(f *File) {
		f.fs = fsys
	}
}

// WithLock guards reads and writes with an flock on lockPath. The lock file
// lives on the OS filesystem regardless of WithFs.
func WithLock(lockPath string, timeout time.Duration) Option {
	return func(f *File) {
		f.lockPath = lockPath
		if timeout > 0 {
			f.lockTimeout = timeout
		}
	}
}

// WithLogger sets a verbose logger.
func WithLogger(l Logger) Option {
	return func(f *File) {
		f.logger = l
	}
}

// WithWarnLogger sets the logger used for warnings. The default is
// log.Default().
func WithWarnLogger(l *log.Logger) Option {
	return func(f *File) {
		f.warn = l
	}
}

// NewFile creates an adapter for the task file at path.
func NewFile(path string, v *task.Validator, opts ...Option) *File {
	f := &File{
		path:        path,
		fs:          afero.NewOsFs(),
		validator:   v,
		lockTimeout: defaultLockTimeout,
		warn:        log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// logVerbose writes a message through the logger if one is set.
func (f *File) logVerbose(msg string) {
	if f.logger != nil {
		f.logger.Log(msg)
	}
}

// Load reads the task file. A missing file yields an empty result. A file
// that is not a JSON array yields an empty result with Malformed set. Invalid
// elements are dropped and counted. Only read failures return an error.
func (f *File) Load() (LoadResult, error) {
	unlock, err := f.acquireShared()
	if err != nil {
		return LoadResult{}, err
	}
	defer unlock()

	f.logVerbose(fmt.Sprintf("load: reading %s", f.path))
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if isNotExist(err) {
			f.logVerbose("load: no task file, starting empty")
			return LoadResult{Tasks: []task.Task{}}, nil
		}
		return LoadResult{}, &IOError{Op: "read", Path: f.path, Err: err}
	}

	res := Decode(data, f.validator)
	if res.Malformed {
		f.warn.Warn("task file is not a JSON array of tasks, starting empty", "path", f.path)
	}
	if res.Dropped > 0 {
		f.warn.Warn("dropped invalid records while loading", "path", f.path, "dropped", res.Dropped, "accepted", res.Accepted)
	}
	f.logVerbose(fmt.Sprintf("load: accepted %d, dropped %d", res.Accepted, res.Dropped))

	return res, nil
}

// ReadRaw returns the current bytes of the task file under a shared lock.
// A missing file yields nil.
func (f *File) ReadRaw() ([]byte, error) {
	unlock, err := f.acquireShared()
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "read", Path: f.path, Err: err}
	}
	return data, nil
}

// Save serializes the entire task sequence and atomically replaces the task
// file with it.
func (f *File) Save(tasks []task.Task) error {
	data, err := Encode(tasks)
	if err != nil {
		return err
	}

	unlock, err := f.acquireExclusive()
	if err != nil {
		return err
	}
	defer unlock()

	f.logVerbose(fmt.Sprintf("write: atomic write of %d tasks to %s", len(tasks), f.path))
	if err := WriteAtomic(f.fs, f.path, data); err != nil {
		return err
	}
	f.logVerbose("write: atomic write complete")

	return nil
}

// acquireExclusive acquires an exclusive file lock with the configured timeout.
// It returns an unlock function that must be deferred by the caller. Without a
// lock path it is a no-op.
func (f *File) acquireExclusive() (unlock func(), err error) {
	if f.lockPath == "" {
		return func() {}, nil
	}

	f.logVerbose("lock: acquiring exclusive lock")
	fl := flock.New(f.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), f.lockTimeout)

	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if !locked || err != nil {
		cancel()
		return nil, &IOError{Op: "lock", Path: f.lockPath, Err: errLockTimeout}
	}
	f.logVerbose("lock: exclusive lock acquired")

	return func() {
		_ = fl.Unlock()
		cancel()
		f.logVerbose("lock: exclusive lock released")
	}, nil
}

// acquireShared acquires a shared file lock with the configured timeout.
func (f *File) acquireShared() (unlock func(), err error) {
	if f.lockPath == "" {
		return func() {}, nil
	}

	f.logVerbose("lock: acquiring shared lock")
	fl := flock.New(f.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), f.lockTimeout)

	locked, err := fl.TryRLockContext(ctx, 50*time.Millisecond)
	if !locked || err != nil {
		cancel()
		return nil, &IOError{Op: "lock", Path: f.lockPath, Err: errLockTimeout}
	}

	return func() {
		_ = fl.Unlock()
		cancel()
	}, nil
}
