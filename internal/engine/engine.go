// Package engine composes the task store, its JSON file, the backup manager
// and the SQLite statistics cache into the single entry point the CLI drives.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/backup"
	"github.com/leeovery/studyplan/internal/cache"
	"github.com/leeovery/studyplan/internal/config"
	"github.com/leeovery/studyplan/internal/csvio"
	"github.com/leeovery/studyplan/internal/doctor"
	"github.com/leeovery/studyplan/internal/storage"
	"github.com/leeovery/studyplan/internal/store"
	"github.com/leeovery/studyplan/internal/task"
)

// Engine owns one loaded data directory.
type Engine struct {
	cfg       *config.Config
	fs        afero.Fs
	validator *task.Validator
	file      *storage.File
	store     *store.Store
	backups   *backup.Manager
	loaded    storage.LoadResult
	verbose   *VerboseLogger
	warn      *log.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithFs sets the filesystem the task file, backups and CSV files live on.
// File locking is only used on the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(e *Engine) {
		e.fs = fsys
	}
}

// WithVerbose sets the verbose logger passed down to storage and the store.
func WithVerbose(vl *VerboseLogger) Option {
	return func(e *Engine) {
		e.verbose = vl
	}
}

// WithWarnLogger sets the logger that receives non-fatal warnings.
func WithWarnLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.warn = l
	}
}

// WithClock overrides the clock used for backup names and overdue counts.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Open loads the task file described by cfg and wires the components around
// it. Invalid records are dropped with a warning; only read failures and lock
// timeouts are returned as errors.
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:  cfg,
		fs:   afero.NewOsFs(),
		warn: log.Default(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.validator = task.NewValidator(cfg.DateLayout)

	fileOpts := []storage.Option{
		storage.WithFs(e.fs),
		storage.WithWarnLogger(e.warn),
		storage.WithLogger(e.verbose),
	}
	if _, ok := e.fs.(*afero.OsFs); ok {
		fileOpts = append(fileOpts, storage.WithLock(cfg.LockPath(), cfg.LockTimeoutDuration()))
	}
	e.file = storage.NewFile(cfg.DataPath(), e.validator, fileOpts...)

	s, res, err := store.Open(e.file, e.validator,
		store.WithLogger(e.verbose),
		store.WithWarnLogger(e.warn),
	)
	if err != nil {
		return nil, err
	}
	e.store = s
	e.loaded = res

	e.backups = backup.NewManager(e.fs, cfg.BackupPath(), e.validator, backup.WithClock(e.now))
	return e, nil
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Validator returns the shared record validator.
func (e *Engine) Validator() *task.Validator {
	return e.validator
}

// LoadResult reports what happened when the task file was read.
func (e *Engine) LoadResult() storage.LoadResult {
	return e.loaded
}

// Today returns the current date at midnight UTC.
func (e *Engine) Today() time.Time {
	y, m, d := e.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Add creates a task.
func (e *Engine) Add(in task.Input) (task.Task, error) {
	return e.store.Add(in)
}

// Edit applies a patch to the task with id.
func (e *Engine) Edit(id string, p task.Patch) (task.Task, error) {
	return e.store.Edit(id, p)
}

// Delete removes the task with id, reporting whether it existed.
func (e *Engine) Delete(id string) (bool, error) {
	return e.store.Delete(id)
}

// ToggleDone flips the task between Done and To Do.
func (e *Engine) ToggleDone(id string) (task.Status, error) {
	return e.store.ToggleDone(id)
}

// Get returns the task with id.
func (e *Engine) Get(id string) (task.Task, error) {
	return e.store.Get(id)
}

// All returns every task in insertion order.
func (e *Engine) All() []task.Task {
	return e.store.All()
}

// Query returns the filtered, sorted view.
func (e *Engine) Query(q store.Query) []task.Task {
	return e.store.Query(q)
}

// ImportCSV merges rows from the CSV file at path into the store.
func (e *Engine) ImportCSV(path string) (csvio.ImportResult, error) {
	e.verbose.Logf("import: reading %s", path)
	return csvio.Import(e.fs, path, e.validator, e.store)
}

// ExportCSV writes every task to the CSV file at path.
func (e *Engine) ExportCSV(path string) error {
	e.verbose.Logf("export: writing %s", path)
	return csvio.Export(e.fs, path, e.store.All())
}

// Backup writes a timestamped snapshot and returns its path.
func (e *Engine) Backup() (string, error) {
	return e.backups.Backup(e.store.All())
}

// Backups lists the snapshots in the backup directory, newest first.
func (e *Engine) Backups() ([]backup.Info, error) {
	return e.backups.List()
}

// Restore replaces the store's contents with the snapshot at path.
func (e *Engine) Restore(path string, confirmed bool) (backup.RestoreResult, error) {
	return e.backups.Restore(path, confirmed, e.store)
}

// snapshot returns the tasks and the bytes the cache is keyed on: the task
// file as it sits on disk, so the doctor's hash of the same file agrees. A
// task file that was never written falls back to the encoded tasks.
func (e *Engine) snapshot() ([]task.Task, []byte, error) {
	tasks := e.store.All()
	data, err := e.file.ReadRaw()
	if err != nil {
		return nil, nil, err
	}
	if data == nil {
		if data, err = storage.Encode(tasks); err != nil {
			return nil, nil, err
		}
	}
	return tasks, data, nil
}

// Stats computes the summary counts through the SQLite cache, rebuilding it
// first if it no longer matches the loaded tasks.
func (e *Engine) Stats() (cache.Stats, error) {
	tasks, data, err := e.snapshot()
	if err != nil {
		return cache.Stats{}, err
	}

	e.verbose.Log("cache: freshness check")
	c, err := cache.EnsureFresh(e.cfg.CachePath(), tasks, data,
		cache.WithDateLayout(e.cfg.DateLayout),
		cache.WithWarnLogger(e.warn),
	)
	if err != nil {
		return cache.Stats{}, fmt.Errorf("opening cache: %w", err)
	}
	defer c.Close()

	return c.Stats(e.Today())
}

// RebuildCache forces a full rebuild of the SQLite cache.
func (e *Engine) RebuildCache() (int, error) {
	tasks, data, err := e.snapshot()
	if err != nil {
		return 0, err
	}

	c, err := cache.New(e.cfg.CachePath(), cache.WithDateLayout(e.cfg.DateLayout), cache.WithWarnLogger(e.warn))
	if err != nil {
		return 0, fmt.Errorf("opening cache: %w", err)
	}
	defer c.Close()

	e.verbose.Logf("cache: rebuilding with %d tasks", len(tasks))
	if err := c.Rebuild(tasks, data); err != nil {
		return 0, fmt.Errorf("rebuilding cache: %w", err)
	}
	return len(tasks), nil
}

// Diagnose runs the default doctor checks against the data directory of cfg.
// It reads files directly and does not need a loaded engine.
func Diagnose(ctx context.Context, cfg *config.Config, fsys afero.Fs) doctor.DiagnosticReport {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	ctx = doctor.WithEnv(ctx, &doctor.Env{
		Fs:        fsys,
		DataPath:  cfg.DataPath(),
		CachePath: cfg.CachePath(),
		Validator: task.NewValidator(cfg.DateLayout),
	})
	return doctor.NewDefaultRunner().RunAll(ctx)
}
