// Package testutil provides shared test helpers for the planner module.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leeovery/studyplan/internal/config"
)

// FindRepoRoot walks up from the current working directory to find
// the repository root (the directory containing go.mod).
func FindRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repository root (no go.mod found)")
		}
		dir = parent
	}
}

// TempProject initializes a planner data directory under a fresh temp dir and
// returns its loaded configuration. When content is non-empty it replaces the
// task file.
func TempProject(t *testing.T, content string) *config.Config {
	t.Helper()
	root, err := config.Init(t.TempDir())
	if err != nil {
		t.Fatalf("initializing project: %v", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if content != "" {
		WriteFile(t, cfg.DataPath(), content)
	}
	return cfg
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
