// Package store holds the live, ordered task collection and is the only
// place it is mutated. Every successful mutation is written through to the
// persistence adapter before the operation returns.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"

	"github.com/leeovery/studyplan/internal/storage"
	"github.com/leeovery/studyplan/internal/task"
)

// Persister loads and saves the whole task collection.
type Persister interface {
	Load() (storage.LoadResult, error)
	Save(tasks []task.Task) error
}

// Logger is an optional interface for verbose/debug logging.
type Logger interface {
	Log(msg string)
}

// NotFoundError is returned by operations addressing an unknown task ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task '%s' not found", e.ID)
}

// SaveError reports a mutation that was applied in memory but could not be
// persisted. It is a warning: the store remains consistent and usable.
type SaveError struct {
	Op  string
	Err error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%s applied but not saved: %v", e.Op, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// IsSaveWarning reports whether err is (or wraps) a *SaveError.
func IsSaveWarning(err error) bool {
	var se *SaveError
	return errors.As(err, &se)
}

// Store is the in-memory task collection. It has no internal locking; all
// calls are expected from a single goroutine.
type Store struct {
	tasks     []task.Task
	persister Persister
	validator *task.Validator
	logger    Logger
	warn      *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a verbose logger.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithWarnLogger sets the logger used for save failure warnings.
func WithWarnLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.warn = l
	}
}

// New creates an empty store backed by p.
func New(p Persister, v *task.Validator, opts ...Option) *Store {
	s := &Store{
		tasks:     []task.Task{},
		persister: p,
		validator: v,
		warn:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and fills it from p. The load result is returned so
// callers can report dropped records.
func Open(p Persister, v *task.Validator, opts ...Option) (*Store, storage.LoadResult, error) {
	s := New(p, v, opts...)
	res, err := p.Load()
	if err != nil {
		return nil, storage.LoadResult{}, fmt.Errorf("loading tasks: %w", err)
	}
	s.tasks = append(s.tasks, res.Tasks...)
	s.logVerbose(fmt.Sprintf("store: opened with %d tasks", len(s.tasks)))
	return s, res, nil
}

func (s *Store) logVerbose(msg string) {
	if s.logger != nil {
		s.logger.Log(msg)
	}
}

// save writes the whole collection through the persister. A failure is
// wrapped in a *SaveError and logged; the in-memory state is kept.
func (s *Store) save(op string) error {
	s.logVerbose(fmt.Sprintf("store: saving %d tasks after %s", len(s.tasks), op))
	if err := s.persister.Save(s.All()); err != nil {
		s.warn.Warn("changes kept in memory but not saved", "op", op, "err", err)
		return &SaveError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}

// Add validates the input, assigns a fresh ID, appends the task and saves.
func (s *Store) Add(in task.Input) (task.Task, error) {
	t, err := s.validator.Clean(task.FromInput(in))
	if err != nil {
		return task.Task{}, err
	}

	id, err := task.GenerateID(s.HasID)
	if err != nil {
		return task.Task{}, err
	}
	t.ID = id

	s.tasks = append(s.tasks, t)
	s.logVerbose(fmt.Sprintf("store: added %s", id))
	return t, s.save("add")
}

// Edit merges p into the task with the given ID. The merged record is
// validated as a whole and committed only if valid. An empty patch returns
// the current task without saving.
func (s *Store) Edit(id string, p task.Patch) (task.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return task.Task{}, &NotFoundError{ID: id}
	}
	if p.IsEmpty() {
		return s.tasks[i], nil
	}

	merged, err := s.validator.Clean(p.Apply(s.tasks[i]))
	if err != nil {
		return task.Task{}, err
	}
	merged.ID = s.tasks[i].ID

	s.tasks[i] = merged
	s.logVerbose(fmt.Sprintf("store: edited %s", id))
	return merged, s.save("edit")
}

// Delete removes the task with the given ID and reports whether it existed.
// A missing ID is a no-op and does not save.
func (s *Store) Delete(id string) (bool, error) {
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	s.logVerbose(fmt.Sprintf("store: deleted %s", id))
	return true, s.save("delete")
}

// ToggleDone moves a task into or out of Done and returns the new status.
func (s *Store) ToggleDone(id string) (task.Status, error) {
	i := s.indexOf(id)
	if i < 0 {
		return "", &NotFoundError{ID: id}
	}
	next := s.tasks[i].Status.Toggled()
	s.tasks[i].Status = next
	s.logVerbose(fmt.Sprintf("store: toggled %s to %s", id, next))
	return next, s.save("toggle")
}

// AppendBatch appends already-validated tasks and saves once. Every ID must
// be non-empty and new to the store; otherwise nothing is appended. An empty
// batch is a no-op.
func (s *Store) AppendBatch(tasks []task.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	seen := s.IDs()
	for _, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("appending batch: task %q has no id", t.Title)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("appending batch: duplicate id %s", t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	s.tasks = append(s.tasks, tasks...)
	s.logVerbose(fmt.Sprintf("store: appended %d tasks", len(tasks)))
	return s.save("import")
}

// Replace swaps the entire collection and saves. The new tasks must have
// unique, non-empty IDs; otherwise the store is left unchanged.
func (s *Store) Replace(tasks []task.Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("replacing tasks: task %q has no id", t.Title)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("replacing tasks: duplicate id %s", t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	s.tasks = slices.Clone(tasks)
	if s.tasks == nil {
		s.tasks = []task.Task{}
	}
	s.logVerbose(fmt.Sprintf("store: replaced collection with %d tasks", len(tasks)))
	return s.save("restore")
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []task.Task {
	return slices.Clone(s.tasks)
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Get returns the task with the given ID.
func (s *Store) Get(id string) (task.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return task.Task{}, &NotFoundError{ID: id}
	}
	return s.tasks[i], nil
}

// HasID reports whether a task with the given ID exists.
func (s *Store) HasID(id string) bool {
	return s.indexOf(id) >= 0
}

// IDs returns the set of IDs currently in the store.
func (s *Store) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.tasks))
	for _, t := range s.tasks {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// Query returns a filtered, sorted copy of the collection. It never mutates
// the store.
func (s *Store) Query(q Query) []task.Task {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q.Search))

	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(t.Title), needle) &&
			!strings.Contains(fold.String(t.Subject), needle) {
			continue
		}
		out = append(out, t)
	}

	cmp := s.comparator(q.SortKey, fold)
	if q.SortDir == SortDesc {
		asc := cmp
		cmp = func(a, b task.Task) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)

	return out
}
