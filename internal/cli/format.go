package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/leeovery/studyplan/internal/backup"
	"github.com/leeovery/studyplan/internal/cache"
	"github.com/leeovery/studyplan/internal/csvio"
	"github.com/leeovery/studyplan/internal/task"
)

// Format represents the output format type.
type Format string

// Format constants for output selection.
const (
	FormatToon   Format = "toon"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// FormatConfig holds output configuration passed to handlers.
type FormatConfig struct {
	Format  Format
	Quiet   bool
	Verbose bool
}

// Formatter renders command results in one output format.
type Formatter interface {
	// FormatTaskList renders tasks (for list, and for import and restore summaries).
	FormatTaskList(w io.Writer, tasks []task.Task) error
	// FormatTaskDetail renders a single task (for show, add and edit).
	FormatTaskDetail(w io.Writer, t task.Task) error
	// FormatTransition renders a status toggle.
	FormatTransition(w io.Writer, id string, from, to task.Status) error
	// FormatImport renders the outcome of a CSV import.
	FormatImport(w io.Writer, res csvio.ImportResult) error
	// FormatBackups renders the backup listing.
	FormatBackups(w io.Writer, infos []backup.Info) error
	// FormatStats renders the statistics summary.
	FormatStats(w io.Writer, s cache.Stats) error
	// FormatMessage renders a simple message.
	FormatMessage(w io.Writer, msg string) error
}

// DetectTTY checks if the given writer is a terminal.
// Returns false if the writer is not an *os.File.
func DetectTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ResolveFormat determines the output format from flags and TTY status.
// If more than one format flag is set, it returns an error.
// If no flags are set, TTY -> Pretty, non-TTY -> Toon.
func ResolveFormat(toonFlag, prettyFlag, jsonFlag, isTTY bool) (Format, error) {
	flagCount := 0
	for _, set := range []bool{toonFlag, prettyFlag, jsonFlag} {
		if set {
			flagCount++
		}
	}

	if flagCount > 1 {
		return "", fmt.Errorf("only one format flag allowed: --toon, --pretty, or --json")
	}

	switch {
	case toonFlag:
		return FormatToon, nil
	case prettyFlag:
		return FormatPretty, nil
	case jsonFlag:
		return FormatJSON, nil
	case isTTY:
		return FormatPretty, nil
	default:
		return FormatToon, nil
	}
}

// newFormatter returns the Formatter for a format. The pretty formatter
// renders styles for w.
func newFormatter(f Format, w io.Writer) Formatter {
	switch f {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatPretty:
		return NewPrettyFormatter(w)
	default:
		return &ToonFormatter{}
	}
}
