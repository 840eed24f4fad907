// Package validate is the correctness gate between computed report
// data and on-disk artifacts: it checks a measurement tree against
// the fixed metric schema and reports every violation. The gate is
// mandatory — the pipeline must not persist a document that has not
// passed it.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ovasquez/facet/pkg/metric"
)

//go:embed schema/metric.json
var schemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// schema compiles the embedded metric schema once.
func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("embedded schema is not valid JSON: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(metric.SchemaPath, doc); err != nil {
			compileErr = fmt.Errorf("failed to register metric schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(metric.SchemaPath)
	})
	return compiled, compileErr
}

// Violation is one schema constraint the document broke.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the tagged outcome of one validation run. A Result never
// collapses into a bare bool: failure details survive for the caller.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Valid reports whether the document conforms to the schema.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Err converts a failed result into a typed *Error, or nil when the
// result is valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Violations: r.Violations}
}

// Error is the failure returned when a document violates the metric
// schema. It is distinct from transform and I/O failures so callers
// can tell a contract violation apart.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "document violates the metric schema (%d violation(s))", len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s: %s", v.Path, v.Message)
	}
	return b.String()
}

// Check validates a measurement tree against the fixed metric schema.
// The returned error reports infrastructure problems only; schema
// violations live in the Result.
func Check(doc *metric.Document) (Result, error) {
	data, err := doc.EncodeJSON()
	if err != nil {
		return Result{}, err
	}
	return CheckJSON(data)
}

// CheckJSON validates the canonical JSON form of a report.
func CheckJSON(data []byte) (Result, error) {
	sch, err := schema()
	if err != nil {
		return Result{}, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("report is not valid JSON: %w", err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return Result{}, nil
	}
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return Result{Violations: flatten(ve)}, nil
	}
	return Result{}, err
}

var printer = message.NewPrinter(language.English)

// flatten collects the leaf causes of a validation error tree.
func flatten(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		return []Violation{{
			Path:    "/" + strings.Join(ve.InstanceLocation, "/"),
			Message: ve.ErrorKind.LocalizedString(printer),
		}}
	}
	var out []Violation
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
