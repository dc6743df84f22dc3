package domain

import "strings"

// CompileState represents the lifecycle state of a target's compile attempt.
type CompileState string

const (
	// StatePending indicates the target is waiting for its dependencies or a scheduling slot.
	StatePending CompileState = "PENDING"
	// StateAnalyzing indicates the prior analysis is being loaded and compared to the sources.
	StateAnalyzing CompileState = "ANALYZING"
	// StateCompiling indicates a compiler worker is processing the invalidated sources.
	StateCompiling CompileState = "COMPILING"
	// StateSucceeded indicates the target compiled and its outputs were committed.
	StateSucceeded CompileState = "SUCCEEDED"
	// StateFailed indicates the attempt failed and nothing was committed.
	StateFailed CompileState = "FAILED"
	// StateSkipped indicates the target was not attempted because a dependency failed.
	StateSkipped CompileState = "SKIPPED"
)

// IsTerminal checks if a state is final (Succeeded, Failed, Skipped).
func (s CompileState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}

// NormalizeCompileState converts a string to a CompileState, defaulting to pending if unknown.
func NormalizeCompileState(s string) CompileState {
	switch CompileState(strings.ToUpper(s)) {
	case StateAnalyzing:
		return StateAnalyzing
	case StateCompiling:
		return StateCompiling
	case StateSucceeded:
		return StateSucceeded
	case StateFailed:
		return StateFailed
	case StateSkipped:
		return StateSkipped
	default:
		return StatePending
	}
}

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
