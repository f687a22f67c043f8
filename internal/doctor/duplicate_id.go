package doctor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DuplicateIDCheck validates that no two elements share the same ID. Each
// repeated ID is reported once with every element position it appears at.
// Elements without a string ID are skipped. It is read-only.
type DuplicateIDCheck struct{}

// Run executes the duplicate ID check.
func (c *DuplicateIDCheck) Run(ctx context.Context) []CheckResult {
	env := envFrom(ctx)

	doc, err := getDocument(ctx, env)
	if err != nil {
		return fileNotFoundResult("ID uniqueness", env)
	}

	groups := make(map[string][]int)
	// Track insertion order of keys for deterministic output.
	var keyOrder []string

	for _, el := range doc.Elements {
		if el.Parsed == nil {
			continue
		}
		id, ok := el.Parsed["id"].(string)
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			continue
		}
		if _, seen := groups[id]; !seen {
			keyOrder = append(keyOrder, id)
		}
		groups[id] = append(groups[id], el.Index)
	}

	var failures []CheckResult
	for _, id := range keyOrder {
		positions := groups[id]
		if len(positions) <= 1 {
			continue
		}

		parts := make([]string, len(positions))
		for i, p := range positions {
			parts[i] = strconv.Itoa(p)
		}

		failures = append(failures, CheckResult{
			Name:       "ID uniqueness",
			Passed:     false,
			Severity:   SeverityError,
			Details:    fmt.Sprintf("Duplicate ID %s: elements %s", id, strings.Join(parts, ", ")),
			Suggestion: "Only the first is kept on load; merge or remove the others",
		})
	}

	if len(failures) > 0 {
		return failures
	}

	return []CheckResult{{
		Name:   "ID uniqueness",
		Passed: true,
	}}
}
