package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/task"
)

const dataPath = "/data/.planner/tasks.json"

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "a1", Title: "Read Ch.1", Subject: "Biology", DueDate: "2024/01/10", Status: task.StatusToDo},
		{ID: "b2", Title: "Problem set 3", Subject: "Maths", DueDate: "2024/01/08", Status: task.StatusInProgress},
		{ID: "c3", Title: "Essay draft", Subject: "History", DueDate: "2024/02/01", Status: task.StatusDone},
	}
}

func newMemFile(t *testing.T, content string) (*File, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if content != "" {
		if err := afero.WriteFile(fsys, dataPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	return NewFile(dataPath, task.NewValidator(""), WithFs(fsys), WithWarnLogger(log.New(io.Discard))), fsys
}

func TestLoad(t *testing.T) {
	t.Run("it returns an empty result when the file does not exist", func(t *testing.T) {
		f, _ := newMemFile(t, "")
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(res.Tasks) != 0 || res.Malformed {
			t.Errorf("expected empty, well-formed result, got %+v", res)
		}
	})

	t.Run("it returns an empty result for a non-array file", func(t *testing.T) {
		f, _ := newMemFile(t, `{"id":"a1","title":"x"}`)
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(res.Tasks) != 0 {
			t.Errorf("expected no tasks, got %d", len(res.Tasks))
		}
		if !res.Malformed {
			t.Error("expected Malformed to be set")
		}
	})

	t.Run("it returns an empty result for invalid JSON", func(t *testing.T) {
		f, _ := newMemFile(t, `[{"id": "a1",`)
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(res.Tasks) != 0 || !res.Malformed {
			t.Errorf("expected empty malformed result, got %+v", res)
		}
	})

	t.Run("it treats an empty file as an empty store", func(t *testing.T) {
		f, _ := newMemFile(t, "  \n")
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(res.Tasks) != 0 || res.Malformed {
			t.Errorf("expected empty, well-formed result, got %+v", res)
		}
	})

	t.Run("it drops each invalid element independently", func(t *testing.T) {
		content := `[
  {"id":"a1","title":"Read","subject":"Bio","due_date":"2024/01/10","status":"To Do"},
  {"id":"b2","title":"","subject":"Bio","due_date":"2024/01/10","status":"To Do"},
  {"id":"c3","title":"Essay","subject":"History","due_date":"2024/13/01","status":"Done"},
  "not an object",
  {"id":"d4","title":"Lab","subject":"Chem","due_date":"2024/03/05","status":"Done"}
]`
		f, _ := newMemFile(t, content)
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if res.Accepted != 2 || res.Dropped != 3 {
			t.Errorf("Accepted=%d Dropped=%d, want 2 and 3", res.Accepted, res.Dropped)
		}
		if res.Tasks[0].ID != "a1" || res.Tasks[1].ID != "d4" {
			t.Errorf("unexpected tasks %+v", res.Tasks)
		}
	})

	t.Run("it validates every element, including the first", func(t *testing.T) {
		content := `[
  {"id":"a1","title":"","subject":"Bio","due_date":"2024/01/10"},
  {"id":"b2","title":"Read","subject":"Bio","due_date":"2024/01/10"}
]`
		f, _ := newMemFile(t, content)
		res, _ := f.Load()
		if len(res.Tasks) != 1 || res.Tasks[0].ID != "b2" {
			t.Errorf("expected only b2, got %+v", res.Tasks)
		}
	})

	t.Run("it normalizes an invalid status to To Do instead of dropping", func(t *testing.T) {
		content := `[{"id":"a1","title":"Read","subject":"Bio","due_date":"2024/01/10","status":"Finished"},
  {"id":"b2","title":"Lab","subject":"Chem","due_date":"2024/01/11","status":7}]`
		f, _ := newMemFile(t, content)
		res, _ := f.Load()
		if len(res.Tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(res.Tasks))
		}
		for _, tk := range res.Tasks {
			if tk.Status != task.StatusToDo {
				t.Errorf("task %s status = %q, want %q", tk.ID, tk.Status, task.StatusToDo)
			}
		}
	})

	t.Run("it assigns an id to elements without one", func(t *testing.T) {
		content := `[{"title":"Read","subject":"Bio","due_date":"2024/01/10"}]`
		f, _ := newMemFile(t, content)
		res, _ := f.Load()
		if len(res.Tasks) != 1 || res.Tasks[0].ID == "" {
			t.Errorf("expected one task with an id, got %+v", res.Tasks)
		}
	})

	t.Run("it keeps the first of two elements sharing an id", func(t *testing.T) {
		content := `[{"id":"a1","title":"First","subject":"Bio","due_date":"2024/01/10"},
  {"id":"a1","title":"Second","subject":"Bio","due_date":"2024/01/10"}]`
		f, _ := newMemFile(t, content)
		res, _ := f.Load()
		if len(res.Tasks) != 1 || res.Tasks[0].Title != "First" || res.Dropped != 1 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("it is idempotent on an unmodified file", func(t *testing.T) {
		data, _ := Encode(sampleTasks())
		f, _ := newMemFile(t, string(data))
		first, _ := f.Load()
		second, _ := f.Load()
		if !reflect.DeepEqual(first, second) {
			t.Errorf("loads differ:\n%+v\n%+v", first, second)
		}
	})
}

func TestSave(t *testing.T) {
	t.Run("it round trips tasks field for field", func(t *testing.T) {
		f, _ := newMemFile(t, "")
		want := sampleTasks()
		if err := f.Save(want); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if !reflect.DeepEqual(res.Tasks, want) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", res.Tasks, want)
		}
	})

	t.Run("it writes a JSON array with the five fields", func(t *testing.T) {
		f, fsys := newMemFile(t, "")
		if err := f.Save(sampleTasks()[:1]); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		data, _ := afero.ReadFile(fsys, dataPath)
		s := string(data)
		if !strings.HasPrefix(s, "[") {
			t.Errorf("expected a JSON array, got %q", s)
		}
		for _, key := range []string{`"id"`, `"title"`, `"subject"`, `"due_date"`, `"status": "To Do"`} {
			if !strings.Contains(s, key) {
				t.Errorf("expected %s in %s", key, s)
			}
		}
	})

	t.Run("it writes [] for an empty store", func(t *testing.T) {
		f, fsys := newMemFile(t, "")
		if err := f.Save(nil); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		data, _ := afero.ReadFile(fsys, dataPath)
		if string(data) != "[]\n" {
			t.Errorf("got %q, want %q", data, "[]\n")
		}
	})

	t.Run("it leaves the original bytes intact when the temp file cannot be created", func(t *testing.T) {
		base := afero.NewMemMapFs()
		original := []byte(`[{"id":"a1","title":"Read","subject":"Bio","due_date":"2024/01/10","status":"To Do"}]`)
		if err := afero.WriteFile(base, dataPath, original, 0644); err != nil {
			t.Fatal(err)
		}
		f := NewFile(dataPath, task.NewValidator(""), WithFs(afero.NewReadOnlyFs(base)))

		err := f.Save(sampleTasks())
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("expected *IOError, got %v", err)
		}

		after, _ := afero.ReadFile(base, dataPath)
		if !bytes.Equal(after, original) {
			t.Errorf("file changed after failed save:\n%s", after)
		}
	})

	t.Run("it leaves the original bytes intact and removes the temp file when writing fails", func(t *testing.T) {
		base := afero.NewMemMapFs()
		original := []byte("[]\n")
		if err := afero.WriteFile(base, dataPath, original, 0644); err != nil {
			t.Fatal(err)
		}
		f := NewFile(dataPath, task.NewValidator(""), WithFs(&diskFullFs{Fs: base}))

		if err := f.Save(sampleTasks()); err == nil {
			t.Fatal("expected an error from Save")
		}

		after, _ := afero.ReadFile(base, dataPath)
		if !bytes.Equal(after, original) {
			t.Errorf("file changed after failed save: %q", after)
		}
		entries, _ := afero.ReadDir(base, filepath.Dir(dataPath))
		if len(entries) != 1 {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("expected only tasks.json to remain, got %v", names)
		}
	})

	t.Run("it replaces the file on the OS filesystem", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tasks.json")
		if err := os.WriteFile(path, []byte("[]\n"), 0644); err != nil {
			t.Fatal(err)
		}
		f := NewFile(path, task.NewValidator(""), WithLock(filepath.Join(dir, "lock"), time.Second))
		if err := f.Save(sampleTasks()); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		res, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(res.Tasks) != 3 {
			t.Errorf("expected 3 tasks, got %d", len(res.Tasks))
		}
	})

	t.Run("it fails with an IOError when another process holds the lock", func(t *testing.T) {
		dir := t.TempDir()
		lockPath := filepath.Join(dir, "lock")
		path := filepath.Join(dir, "tasks.json")

		other := flock.New(lockPath)
		locked, err := other.TryLockContext(context.Background(), 10*time.Millisecond)
		if err != nil || !locked {
			t.Fatalf("could not take lock for test: %v", err)
		}
		defer func() { _ = other.Unlock() }()

		f := NewFile(path, task.NewValidator(""), WithLock(lockPath, 100*time.Millisecond))
		err = f.Save(sampleTasks())
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("expected *IOError, got %v", err)
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Error("task file should not have been written")
		}
	})
}

func TestReadFile(t *testing.T) {
	t.Run("it reports a missing file as an IOError wrapping ErrNotExist", func(t *testing.T) {
		_, err := ReadFile(afero.NewMemMapFs(), "/nope.json", task.NewValidator(""))
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("expected *IOError, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Error("expected error to wrap os.ErrNotExist")
		}
	})
}

func TestReadRaw(t *testing.T) {
	t.Run("it returns the file bytes unchanged", func(t *testing.T) {
		content := `[{"id":"a","title":"T","subject":"S","due_date":"2024/01/10","status":"To Do"}]`
		f, _ := newMemFile(t, content)
		got, err := f.ReadRaw()
		if err != nil {
			t.Fatalf("ReadRaw() error: %v", err)
		}
		if string(got) != content {
			t.Errorf("ReadRaw() = %q, want %q", got, content)
		}
	})

	t.Run("it returns nil for a missing file", func(t *testing.T) {
		f, _ := newMemFile(t, "")
		got, err := f.ReadRaw()
		if err != nil || got != nil {
			t.Errorf("ReadRaw() = %q, %v, want nil, nil", got, err)
		}
	})
}

// diskFullFs fails every write to files it opens, simulating a full disk.
type diskFullFs struct {
	afero.Fs
}

func (d *diskFullFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := d.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &diskFullFile{File: f}, nil
}

type diskFullFile struct {
	afero.File
}

func (f *diskFullFile) Write(p []byte) (int, error) {
	return 0, errors.New("no space left on device")
}
