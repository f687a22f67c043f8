package task

import "strings"

// Status represents a task's progress state. The string values are the
// labels written to the data file and CSV exports.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusDone       Status = "Done"
	StatusInProgress Status = "In progress"
)

// AllStatuses returns the enumeration in display order.
func AllStatuses() []Status {
	return []Status{StatusToDo, StatusDone, StatusInProgress}
}

// statusAliases maps folded spellings to statuses. Keys are lower case with
// spaces, underscores and hyphens removed.
var statusAliases = map[string]Status{
	"todo":       StatusToDo,
	"done":       StatusDone,
	"inprogress": StatusInProgress,
}

// ParseStatus matches s against the status labels and constant names,
// ignoring case and separators. It reports false for anything else.
func ParseStatus(s string) (Status, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	st, ok := statusAliases[key]
	return st, ok
}

// NormalizeStatus maps s onto the enumeration. Empty or unrecognized input
// becomes StatusToDo.
func NormalizeStatus(s string) Status {
	if st, ok := ParseStatus(s); ok {
		return st
	}
	return StatusToDo
}

// Toggled returns the status after a done toggle: Done goes back to To Do,
// anything else becomes Done. It never yields In progress.
func (s Status) Toggled() Status {
	if s == StatusDone {
		return StatusToDo
	}
	return StatusDone
}
