package doctor

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed tasks.schema.json
var tasksSchema string

const schemaURL = "tasks.schema.json"

// SchemaCheck validates the task file against the embedded JSON Schema. Each
// violation is reported with its JSON pointer. It is skipped (passes) when
// the file is not valid JSON, which JSONSyntaxCheck reports.
type SchemaCheck struct{}

// Run executes the schema check.
func (c *SchemaCheck) Run(ctx context.Context) []CheckResult {
	env := envFrom(ctx)

	doc, err := getDocument(ctx, env)
	if err != nil {
		return fileNotFoundResult("Schema", env)
	}
	if doc.SyntaxErr != nil {
		return []CheckResult{{Name: "Schema", Passed: true}}
	}

	schema, err := compileSchema()
	if err != nil {
		return []CheckResult{{
			Name:     "Schema",
			Passed:   false,
			Severity: SeverityError,
			Details:  fmt.Sprintf("compiling schema: %v", err),
		}}
	}

	err = schema.Validate(doc.Value)
	if err == nil {
		return []CheckResult{{Name: "Schema", Passed: true}}
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []CheckResult{{
			Name:     "Schema",
			Passed:   false,
			Severity: SeverityError,
			Details:  err.Error(),
		}}
	}

	var failures []CheckResult
	for _, leaf := range leafCauses(ve) {
		location := leaf.InstanceLocation
		if location == "" {
			location = "/"
		}
		failures = append(failures, CheckResult{
			Name:       "Schema",
			Passed:     false,
			Severity:   SeverityError,
			Details:    fmt.Sprintf("%s: %s", location, leaf.Message),
			Suggestion: "Manual fix required",
		})
	}
	return failures
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(tasksSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}

// leafCauses flattens a validation error tree into its leaves.
func leafCauses(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, leafCauses(cause)...)
	}
	return leaves
}
