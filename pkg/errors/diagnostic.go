package errors

import (
	"fmt"
	"strings"
)

// Diagnostic is a single validation finding for one pipeline stage.
type Diagnostic struct {
	// Type is ErrorTypeConfiguration for malformed pipelines and
	// ErrorTypeSchema for column and parameter problems.
	Type     ErrorType
	Pipeline string
	Stage    string
	Column   string
	Message  string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Pipeline != "" {
		b.WriteString(d.Pipeline)
		b.WriteString(": ")
	}
	if d.Stage != "" {
		b.WriteString(d.Stage)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	if d.Column != "" {
		fmt.Fprintf(&b, " (column %q)", d.Column)
	}
	return b.String()
}

// Diagnostics accumulates findings without failing fast.
type Diagnostics []Diagnostic

// Add appends a finding.
func (ds *Diagnostics) Add(d Diagnostic) {
	*ds = append(*ds, d)
}

// Addf appends a finding with a formatted message.
func (ds *Diagnostics) Addf(pipeline, stage, column, format string, args ...interface{}) {
	ds.Add(Diagnostic{
		Pipeline: pipeline,
		Stage:    stage,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Columns returns the distinct column names referenced by the findings.
func (ds Diagnostics) Columns() []string {
	seen := make(map[string]struct{}, len(ds))
	var cols []string
	for _, d := range ds {
		if d.Column == "" {
			continue
		}
		if _, ok := seen[d.Column]; ok {
			continue
		}
		seen[d.Column] = struct{}{}
		cols = append(cols, d.Column)
	}
	return cols
}

func (ds Diagnostics) String() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "; ")
}

// Aggregate folds the list into one error typed by its most severe finding:
// a ConfigurationError when any finding is structural, otherwise a
// SchemaError.
func (ds Diagnostics) Aggregate() error {
	errType := ErrorTypeSchema
	for _, d := range ds {
		if d.Type == ErrorTypeConfiguration {
			errType = ErrorTypeConfiguration
			break
		}
	}
	return ds.Err(errType)
}

// Err folds the list into a single aggregate error of the given type, or
// returns nil when the list is empty.
func (ds Diagnostics) Err(errType ErrorType) error {
	if len(ds) == 0 {
		return nil
	}
	e := &Error{
		Type:    errType,
		Message: fmt.Sprintf("%d problem(s): %s", len(ds), ds.String()),
		Stack:   captureStack(2),
	}
	return e.WithDetail("diagnostics", ds)
}

// DiagnosticsOf extracts the diagnostics attached by Err, if any.
func DiagnosticsOf(err error) Diagnostics {
	var e *Error
	if !As(err, &e) || e.Details == nil {
		return nil
	}
	ds, _ := e.Details["diagnostics"].(Diagnostics)
	return ds
}
