package doctor

import (
	"context"
	"fmt"
)

// JSONSyntaxCheck validates that the task file is well-formed JSON whose top
// level is an array. It is read-only and never modifies the file.
type JSONSyntaxCheck struct{}

// Run executes the JSON syntax check. A file that fails here is treated as
// empty by the loader, so every task in it would be lost on the next save.
func (c *JSONSyntaxCheck) Run(ctx context.Context) []CheckResult {
	env := envFrom(ctx)

	doc, err := getDocument(ctx, env)
	if err != nil {
		return fileNotFoundResult("JSON syntax", env)
	}

	if doc.SyntaxErr != nil {
		return []CheckResult{{
			Name:       "JSON syntax",
			Passed:     false,
			Severity:   SeverityError,
			Details:    fmt.Sprintf("invalid JSON: %v", doc.SyntaxErr),
			Suggestion: "Manual fix required, or restore a backup with planner restore",
		}}
	}

	if !doc.IsArray {
		return []CheckResult{{
			Name:       "JSON syntax",
			Passed:     false,
			Severity:   SeverityError,
			Details:    fmt.Sprintf("top-level value is %s, not an array", jsonKind(doc.Value)),
			Suggestion: "Manual fix required, or restore a backup with planner restore",
		}}
	}

	return []CheckResult{{
		Name:   "JSON syntax",
		Passed: true,
	}}
}

// jsonKind names the JSON type of a decoded value.
func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return "null"
	}
}
