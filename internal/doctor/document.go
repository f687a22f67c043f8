package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Element is one entry of the task file's top-level array.
type Element struct {
	// Index is the 1-based position in the array.
	Index int
	Raw   json.RawMessage
	// Parsed is the element as an object, or nil if it is not one.
	Parsed map[string]any
}

// Document is the task file as the checks see it.
type Document struct {
	Raw []byte
	// Value is the decoded content, nil when SyntaxErr is set.
	Value     any
	SyntaxErr error
	IsArray   bool
	Elements  []Element
}

// ScanDocument reads and decodes the task file at path. An empty file is an
// empty array. It returns an error only when the file cannot be read.
func ScanDocument(fsys afero.Fs, path string) (*Document, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}

	doc := &Document{Raw: raw}
	if len(bytes.TrimSpace(raw)) == 0 {
		doc.Value = []any{}
		doc.IsArray = true
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc.Value); err != nil {
		doc.SyntaxErr = err
		doc.Value = nil
		return doc, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return doc, nil
	}
	doc.IsArray = true
	doc.Elements = make([]Element, 0, len(elements))
	for i, el := range elements {
		e := Element{Index: i + 1, Raw: el}
		var obj map[string]any
		if err := json.Unmarshal(el, &obj); err == nil {
			e.Parsed = obj
		}
		doc.Elements = append(doc.Elements, e)
	}
	return doc, nil
}

type documentKeyType struct{}

// DocumentKey is the context key used to pass a pre-scanned *Document to
// checks.
var DocumentKey = documentKeyType{}

// getDocument returns the document from the context, falling back to a scan.
func getDocument(ctx context.Context, env *Env) (*Document, error) {
	if doc, ok := ctx.Value(DocumentKey).(*Document); ok {
		return doc, nil
	}
	return ScanDocument(env.Fs, env.DataPath)
}

// fileNotFoundResult returns the standard CheckResult for when the task file
// cannot be read.
func fileNotFoundResult(checkName string, env *Env) []CheckResult {
	return []CheckResult{{
		Name:       checkName,
		Passed:     false,
		Severity:   SeverityError,
		Details:    fmt.Sprintf("%s not found", filepath.Base(env.DataPath)),
		Suggestion: "Run planner init or verify .planner directory",
	}}
}
