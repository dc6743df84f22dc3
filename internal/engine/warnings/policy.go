// Package warnings resolves the fatal-warnings policy of a target and classifies compiler diagnostics
// against it. Every function in this package is pure.
package warnings

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// ScalaFatalWarningsArg makes scalac treat warnings as errors.
	ScalaFatalWarningsArg = "-S-Xfatal-warnings"
	// JavaFatalWarningsArg makes javac treat warnings as errors.
	JavaFatalWarningsArg = "-C-Werror"
)

// DefaultEnabledArgs are passed to the compiler when fatal warnings are enabled.
func DefaultEnabledArgs() []string {
	return []string{ScalaFatalWarningsArg, JavaFatalWarningsArg}
}

// DefaultDisabledArgs are passed to the compiler when fatal warnings are disabled.
func DefaultDisabledArgs() []string {
	return []string{}
}

// supportedPrefixes lists the option prefixes understood by the compiler worker.
var supportedPrefixes = []string{
	"-S", "-C", "-J",
	"-debug", "-log-level", "-no-color",
	"-analysis-cache", "-compile-order", "-name-hashing", "-transactional",
}

// PolicyInput holds the two policy axes of a target.
type PolicyInput struct {
	PlatformFatal bool
	// TargetFatal overrides PlatformFatal when set.
	TargetFatal *bool
	// EnabledArgs and DisabledArgs replace the defaults when non-nil.
	EnabledArgs  []string
	DisabledArgs []string
}

// Policy is the resolved fatal-warnings policy of a target.
type Policy struct {
	Fatal bool
	// Args are the policy arguments handed to the compiler.
	Args []string
}

// Resolve applies the resolution order: target override, then platform default.
// Supplying both argument overrides is rejected rather than silently preferring one.
func Resolve(in PolicyInput) (Policy, error) {
	if in.EnabledArgs != nil && in.DisabledArgs != nil {
		return Policy{}, zerr.With(zerr.With(zerr.Wrap(domain.ErrConflictingWarningArgs, "resolve warning policy"),
			"enabled_args", strings.Join(in.EnabledArgs, " ")),
			"disabled_args", strings.Join(in.DisabledArgs, " "))
	}

	fatal := in.PlatformFatal
	if in.TargetFatal != nil {
		fatal = *in.TargetFatal
	}

	var args []string
	switch {
	case fatal && in.EnabledArgs != nil:
		args = slices.Clone(in.EnabledArgs)
	case fatal:
		args = DefaultEnabledArgs()
	case in.DisabledArgs != nil:
		args = slices.Clone(in.DisabledArgs)
	default:
		args = DefaultDisabledArgs()
	}

	return Policy{Fatal: fatal, Args: args}, nil
}

// Classify maps a diagnostic to its classification under p.
// A warning is fatal when the policy arguments turn warnings into errors for the compiler that
// handles its source: javac for .java files, scalac for everything else.
func Classify(d domain.Diagnostic, p Policy) domain.Classification {
	switch d.Severity {
	case domain.SeverityError:
		return domain.Error
	case domain.SeverityWarning:
		flag := ScalaFatalWarningsArg
		if path.Ext(d.Path) == ".java" {
			flag = JavaFatalWarningsArg
		}
		if slices.Contains(p.Args, flag) {
			return domain.FatalWarning
		}
		return domain.Warning
	default:
		return domain.Informational
	}
}

// Evaluate classifies every diagnostic under p, preserving order.
func Evaluate(diags []domain.Diagnostic, p Policy) []domain.ClassifiedDiagnostic {
	out := make([]domain.ClassifiedDiagnostic, len(diags))
	for i, d := range diags {
		out[i] = domain.ClassifiedDiagnostic{Diagnostic: d, Class: Classify(d, p)}
	}
	return out
}

// CheckArgs returns an advisory for every raw compiler option kiln does not know.
// Arguments not starting with "-" are values of the preceding option and are not inspected.
func CheckArgs(args []string) []domain.ClassifiedDiagnostic {
	var out []domain.ClassifiedDiagnostic
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") || supported(arg) {
			continue
		}
		out = append(out, domain.ClassifiedDiagnostic{
			Diagnostic: domain.Diagnostic{
				Severity: domain.SeverityWarning,
				Message:  UnsupportedOptionMessage(arg),
			},
			Class: domain.Advisory,
		})
	}
	return out
}

// UnsupportedOptionMessage is the advisory text for an unknown compiler option.
func UnsupportedOptionMessage(arg string) string {
	return fmt.Sprintf("compiler option %q is not supported, and is subject to change/removal", arg)
}

func supported(arg string) bool {
	for _, prefix := range supportedPrefixes {
		if arg == prefix || strings.HasPrefix(arg, prefix+"-") || strings.HasPrefix(arg, prefix+"=") {
			return true
		}
	}
	return false
}

// Outcome decides whether an attempt failed. A failed attempt carries a summary error wrapping
// domain.ErrCompileFailed with the error and fatal warning counts.
func Outcome(diags []domain.ClassifiedDiagnostic, exitCode int) (bool, error) {
	var errs, fatal int
	for _, d := range diags {
		switch d.Class {
		case domain.Error:
			errs++
		case domain.FatalWarning:
			fatal++
		}
	}
	if exitCode == 0 && errs == 0 && fatal == 0 {
		return false, nil
	}

	msg := fmt.Sprintf("%d error(s), %d fatal warning(s)", errs, fatal)
	err := zerr.Wrap(domain.ErrCompileFailed, msg)
	err = zerr.With(err, "errors", errs)
	err = zerr.With(err, "fatal_warnings", fatal)
	err = zerr.With(err, "exit_code", exitCode)
	return true, err
}
