package engine

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// VerboseLogger writes verbose debug output to the given writer when enabled.
// When disabled, all calls are no-ops. Every line carries the "verbose" prefix
// for grep-ability.
type VerboseLogger struct {
	l       *log.Logger
	enabled bool
}

// NewVerboseLogger creates a VerboseLogger. When enabled is false, all Log and
// Logf calls are no-ops regardless of the writer value.
func NewVerboseLogger(w io.Writer, enabled bool) *VerboseLogger {
	l := log.NewWithOptions(w, log.Options{
		Level:  log.DebugLevel,
		Prefix: "verbose",
	})
	return &VerboseLogger{l: l, enabled: enabled}
}

// Log writes a verbose message. Safe to call on a nil receiver.
func (v *VerboseLogger) Log(msg string) {
	if v == nil || !v.enabled {
		return
	}
	v.l.Debug(msg)
}

// Logf writes a formatted verbose message.
func (v *VerboseLogger) Logf(format string, args ...interface{}) {
	if v == nil || !v.enabled {
		return
	}
	v.l.Debug(fmt.Sprintf(format, args...))
}
