// Package doctor runs read-only diagnostic checks over the planner data
// directory: the task file's syntax, schema, record validity, ID uniqueness
// and the freshness of the statistics cache.
package doctor

import (
	"context"

	"github.com/spf13/afero"

	"github.com/leeovery/studyplan/internal/task"
)

// Severity indicates whether a check failure is an error or a warning.
// Errors affect exit code; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// CheckResult holds the outcome of a single diagnostic check evaluation.
// A passing check has Passed true with empty Details and Suggestion.
type CheckResult struct {
	// Name is the check's display label (e.g. "Cache", "JSON syntax").
	Name       string
	Passed     bool
	Severity   Severity
	Details    string
	Suggestion string
}

// Check is the interface that all diagnostic checks implement.
// A passing check returns exactly one result with Passed true; a failing
// check returns one result per problem found.
type Check interface {
	Run(ctx context.Context) []CheckResult
}

// Env locates the files the checks inspect.
type Env struct {
	Fs        afero.Fs
	DataPath  string
	CachePath string
	Validator *task.Validator
}

type envKeyType struct{}

// EnvKey is the context key carrying the *Env for a run.
var EnvKey = envKeyType{}

// WithEnv returns a context carrying env.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, EnvKey, env)
}

func envFrom(ctx context.Context) *Env {
	env, _ := ctx.Value(EnvKey).(*Env)
	if env == nil {
		env = &Env{}
	}
	if env.Fs == nil {
		env.Fs = afero.NewOsFs()
	}
	if env.Validator == nil {
		env.Validator = task.NewValidator("")
	}
	return env
}

// DiagnosticReport collects all check results from a diagnostic run.
type DiagnosticReport struct {
	Results []CheckResult
}

func (r *DiagnosticReport) count(sev Severity) int {
	n := 0
	for _, result := range r.Results {
		if !result.Passed && result.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors returns true if any result has Passed false with SeverityError.
func (r *DiagnosticReport) HasErrors() bool {
	return r.count(SeverityError) > 0
}

// ErrorCount returns the number of failing error-severity results.
func (r *DiagnosticReport) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of failing warning-severity results.
func (r *DiagnosticReport) WarningCount() int {
	return r.count(SeverityWarning)
}

// DiagnosticRunner holds an ordered slice of checks and executes all of them.
type DiagnosticRunner struct {
	checks []Check
}

// NewDiagnosticRunner creates a DiagnosticRunner with no registered checks.
func NewDiagnosticRunner() *DiagnosticRunner {
	return &DiagnosticRunner{}
}

// NewDefaultRunner creates a runner with every planner check registered in
// report order.
func NewDefaultRunner() *DiagnosticRunner {
	d := NewDiagnosticRunner()
	d.Register(&JSONSyntaxCheck{})
	d.Register(&SchemaCheck{})
	d.Register(&RecordsCheck{})
	d.Register(&DuplicateIDCheck{})
	d.Register(&CacheStalenessCheck{})
	return d
}

// Register appends a check to the runner's ordered slice.
func (d *DiagnosticRunner) Register(check Check) {
	d.checks = append(d.checks, check)
}

// RunAll executes every registered check and collects the results. It never
// short-circuits. The task file is scanned once and shared with the checks
// through the context.
func (d *DiagnosticRunner) RunAll(ctx context.Context) DiagnosticReport {
	if _, ok := ctx.Value(DocumentKey).(*Document); !ok {
		env := envFrom(ctx)
		if doc, err := ScanDocument(env.Fs, env.DataPath); err == nil {
			ctx = context.WithValue(ctx, DocumentKey, doc)
		}
	}

	var results []CheckResult
	for _, check := range d.checks {
		results = append(results, check.Run(ctx)...)
	}
	return DiagnosticReport{Results: results}
}
