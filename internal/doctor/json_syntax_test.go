package doctor

import (
	"strings"
	"testing"
)

func TestJSONSyntaxCheck(t *testing.T) {
	t.Run("it passes for a JSON array", func(t *testing.T) {
		ctx, _ := setupEnv(t, `[{"id":"a1"}]`)
		results := (&JSONSyntaxCheck{}).Run(ctx)
		if len(results) != 1 || !results[0].Passed {
			t.Errorf("expected pass, got %+v", results)
		}
	})

	t.Run("it passes for an empty file", func(t *testing.T) {
		ctx, _ := setupEnv(t, "")
		results := (&JSONSyntaxCheck{}).Run(ctx)
		if !results[0].Passed {
			t.Errorf("expected pass, got %+v", results)
		}
	})

	t.Run("it fails for invalid JSON", func(t *testing.T) {
		ctx, _ := setupEnv(t, `[{"id": "a1",`)
		results := (&JSONSyntaxCheck{}).Run(ctx)
		if results[0].Passed || results[0].Severity != SeverityError {
			t.Fatalf("expected error, got %+v", results)
		}
		if !strings.HasPrefix(results[0].Details, "invalid JSON") {
			t.Errorf("Details = %q", results[0].Details)
		}
	})

	t.Run("it fails for a top-level object", func(t *testing.T) {
		ctx, _ := setupEnv(t, `{"tasks": []}`)
		results := (&JSONSyntaxCheck{}).Run(ctx)
		if results[0].Passed {
			t.Fatal("expected failure")
		}
		if results[0].Details != "top-level value is an object, not an array" {
			t.Errorf("Details = %q", results[0].Details)
		}
	})
}
