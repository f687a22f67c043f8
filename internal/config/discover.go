package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotInitialized is returned by Discover when no data directory exists.
var ErrNotInitialized = errors.New("not a planner project (no .planner directory found)")

// Discover walks up the directory tree from startDir looking for a .planner
// directory and returns its absolute path.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	for {
		candidate := filepath.Join(dir, DirName)
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", ErrNotInitialized
}

// Init creates a .planner directory in dir holding an empty task file and
// returns its absolute path. It fails if the directory already exists.
func Init(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not resolve absolute path: %w", err)
	}

	root := filepath.Join(absDir, DirName)
	if _, err := os.Stat(root); err == nil {
		return "", fmt.Errorf("planner already initialized in %s", absDir)
	}

	if err := os.Mkdir(root, 0755); err != nil {
		return "", fmt.Errorf("could not create %s/ directory: %w", DirName, err)
	}

	dataPath := filepath.Join(root, DefaultDataFile)
	if err := os.WriteFile(dataPath, []byte("[]\n"), 0644); err != nil {
		// Clean up the directory on failure
		_ = os.RemoveAll(root)
		return "", fmt.Errorf("could not create %s: %w", DefaultDataFile, err)
	}

	return root, nil
}
