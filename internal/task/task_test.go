package task

import (
	"errors"
	"regexp"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("it generates UUID formatted IDs", func(t *testing.T) {
		pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
		existsFn := func(id string) bool { return false }

		id, err := GenerateID(existsFn)
		if err != nil {
			t.Fatalf("GenerateID() returned error: %v", err)
		}
		if !pattern.MatchString(id) {
			t.Errorf("GenerateID() = %q, want match for pattern %q", id, pattern.String())
		}
	})

	t.Run("it retries on collision up to 5 times", func(t *testing.T) {
		attempts := 0
		existsFn := func(id string) bool {
			attempts++
			return attempts < 5
		}

		id, err := GenerateID(existsFn)
		if err != nil {
			t.Fatalf("GenerateID() returned error: %v", err)
		}
		if id == "" {
			t.Error("GenerateID() returned empty ID")
		}
		if attempts != 5 {
			t.Errorf("expected 5 attempts, got %d", attempts)
		}
	})

	t.Run("it errors after 5 collision retries", func(t *testing.T) {
		_, err := GenerateID(func(string) bool { return true })
		if err == nil {
			t.Fatal("GenerateID() expected error, got nil")
		}
		want := "failed to generate unique ID after 5 attempts"
		if err.Error() != want {
			t.Errorf("GenerateID() error = %q, want %q", err.Error(), want)
		}
	})

	t.Run("it generates distinct IDs", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			id, err := GenerateID(func(id string) bool { return seen[id] })
			if err != nil {
				t.Fatalf("GenerateID() returned error: %v", err)
			}
			if seen[id] {
				t.Fatalf("duplicate id %q", id)
			}
			seen[id] = true
		}
	})
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"To Do":       StatusToDo,
		"ToDo":        StatusToDo,
		"todo":        StatusToDo,
		"Done":        StatusDone,
		"  done  ":    StatusDone,
		"In progress": StatusInProgress,
		"InProgress":  StatusInProgress,
		"in_progress": StatusInProgress,
		"":            StatusToDo,
		"Finished":    StatusToDo,
		"Blocked":     StatusToDo,
	}
	for in, want := range cases {
		t.Run("it normalizes "+in, func(t *testing.T) {
			if got := NormalizeStatus(in); got != want {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", in, got, want)
			}
		})
	}

	t.Run("it rejects unknown values in ParseStatus", func(t *testing.T) {
		if _, ok := ParseStatus("later"); ok {
			t.Error("ParseStatus(\"later\") reported ok")
		}
	})
}

func TestToggled(t *testing.T) {
	t.Run("it moves Done back to To Do", func(t *testing.T) {
		if got := StatusDone.Toggled(); got != StatusToDo {
			t.Errorf("Done.Toggled() = %q, want %q", got, StatusToDo)
		}
	})

	t.Run("it moves To Do to Done", func(t *testing.T) {
		if got := StatusToDo.Toggled(); got != StatusDone {
			t.Errorf("ToDo.Toggled() = %q, want %q", got, StatusDone)
		}
	})

	t.Run("it moves In progress to Done", func(t *testing.T) {
		if got := StatusInProgress.Toggled(); got != StatusDone {
			t.Errorf("InProgress.Toggled() = %q, want %q", got, StatusDone)
		}
	})
}

func TestPatch(t *testing.T) {
	t.Run("it only changes provided fields", func(t *testing.T) {
		orig := Task{ID: "a", Title: "Read", Subject: "Bio", DueDate: "2024/01/10", Status: StatusToDo}
		title := "Re-read"
		got := Patch{Title: &title}.Apply(orig)

		want := orig
		want.Title = "Re-read"
		if got != want {
			t.Errorf("Apply() = %+v, want %+v", got, want)
		}
	})

	t.Run("it reports an empty patch", func(t *testing.T) {
		if !(Patch{}).IsEmpty() {
			t.Error("empty patch not reported as empty")
		}
		s := "x"
		if (Patch{Subject: &s}).IsEmpty() {
			t.Error("non-empty patch reported as empty")
		}
	})
}

func TestValidator(t *testing.T) {
	v := NewValidator("")

	valid := Task{Title: "Read Ch.1", Subject: "Biology", DueDate: "2024/01/10", Status: StatusToDo}

	t.Run("it accepts a well-formed task", func(t *testing.T) {
		if err := v.Validate(valid); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("it rejects a blank title after trimming", func(t *testing.T) {
		in := valid
		in.Title = "   "
		_, err := v.Clean(in)
		assertValidationField(t, err, "title")
	})

	t.Run("it rejects a blank subject", func(t *testing.T) {
		in := valid
		in.Subject = ""
		_, err := v.Clean(in)
		assertValidationField(t, err, "subject")
	})

	t.Run("it rejects an impossible calendar date", func(t *testing.T) {
		in := valid
		in.DueDate = "2024/02/30"
		_, err := v.Clean(in)
		assertValidationField(t, err, "due_date")
	})

	t.Run("it rejects a date in another format", func(t *testing.T) {
		in := valid
		in.DueDate = "2024-01-10"
		_, err := v.Clean(in)
		assertValidationField(t, err, "due_date")
		if err.Error() != "due_date must be a valid date in YYYY/MM/DD format" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("it reports title before other fields", func(t *testing.T) {
		_, err := v.Clean(Task{})
		assertValidationField(t, err, "title")
	})

	t.Run("it trims fields and corrects the status instead of rejecting", func(t *testing.T) {
		in := Task{ID: " id-1 ", Title: " Read ", Subject: " Bio ", DueDate: " 2024/01/10 ", Status: "whatever"}
		got, err := v.Clean(in)
		if err != nil {
			t.Fatalf("Clean() = %v", err)
		}
		want := Task{ID: "id-1", Title: "Read", Subject: "Bio", DueDate: "2024/01/10", Status: StatusToDo}
		if got != want {
			t.Errorf("Clean() = %+v, want %+v", got, want)
		}
	})

	t.Run("it honours a custom layout", func(t *testing.T) {
		dash := NewValidator("2006-01-02")
		in := valid
		in.DueDate = "2024-01-10"
		if _, err := dash.Clean(in); err != nil {
			t.Errorf("Clean() with custom layout = %v", err)
		}
	})

	t.Run("it enforces the due date rule on every validator it builds", func(t *testing.T) {
		dash := NewValidator("2006-01-02")
		_, err := dash.Clean(valid)
		assertValidationField(t, err, "due_date")
	})
}

func assertValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if ve.Field != field {
		t.Errorf("ValidationError.Field = %q, want %q", ve.Field, field)
	}
}
