package domain

import (
	"fmt"
	"strings"
)

// Severity is the level a compiler attached to a diagnostic.
type Severity string

const (
	// SeverityInfo is an informational compiler message.
	SeverityInfo Severity = "info"
	// SeverityWarning is a compiler warning.
	SeverityWarning Severity = "warning"
	// SeverityError is a compiler error.
	SeverityError Severity = "error"
)

// Classification is the outcome of applying the warning policy to a diagnostic.
type Classification int

const (
	// Informational diagnostics never affect the outcome.
	Informational Classification = iota
	// Warning diagnostics are reported but do not fail the attempt.
	Warning
	// FatalWarning diagnostics are warnings promoted to failures by policy.
	FatalWarning
	// Error diagnostics always fail the attempt.
	Error
	// Advisory diagnostics are produced by kiln itself, e.g. for unsupported options.
	Advisory
)

// String returns the string representation of the Classification.
func (c Classification) String() string {
	switch c {
	case Informational:
		return "info"
	case Warning:
		return "warning"
	case FatalWarning:
		return "warning-fatal"
	case Error:
		return "error"
	case Advisory:
		return "advisory"
	default:
		return "unknown"
	}
}

// IsFatal reports whether the classification fails a compile attempt.
func (c Classification) IsFatal() bool {
	return c == FatalWarning || c == Error
}

// Diagnostic is a single message reported by the compiler or by kiln.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Path is relative to the build root; empty when the message is not tied to a source.
	Path   string `json:"path,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String formats the diagnostic the way compilers print them: "path:line:col: severity: message".
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Path != "" {
		b.WriteString(d.Path)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d", d.Line)
			if d.Column > 0 {
				fmt.Fprintf(&b, ":%d", d.Column)
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(string(d.Severity))
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// ClassifiedDiagnostic pairs a diagnostic with its policy classification.
type ClassifiedDiagnostic struct {
	Diagnostic
	Class Classification
}

// String formats the diagnostic with its classification in place of the raw severity.
func (d ClassifiedDiagnostic) String() string {
	raw := d.Diagnostic
	raw.Severity = Severity(d.Class.String())
	return raw.String()
}
