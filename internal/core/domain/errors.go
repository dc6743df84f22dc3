package domain

import "go.trai.ch/zerr"

var (
	// ErrTargetAlreadyExists is returned when attempting to add a target with a name that already exists.
	ErrTargetAlreadyExists = zerr.New("target already exists")

	// ErrMissingDependency is returned when a target references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the target dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTargetNotFound is returned when a requested target is not found in the graph.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrNoTargetsSpecified is returned when a build is requested without any target.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrCompileFailed is returned when the compiler reported errors or fatal warnings.
	ErrCompileFailed = zerr.New("compilation failed")

	// ErrCorruptAnalysis is returned when a persisted analysis record cannot be used.
	ErrCorruptAnalysis = zerr.New("corrupt analysis")

	// ErrAnalysisCommitFailed is returned when an analysis record cannot be written.
	ErrAnalysisCommitFailed = zerr.New("failed to commit analysis")

	// ErrPoolTimeout is returned when no worker slot became free before the deadline.
	// It is retryable.
	ErrPoolTimeout = zerr.New("timed out waiting for a compiler worker")

	// ErrWorkerUnavailable is returned when a compiler worker cannot be started or has exited.
	ErrWorkerUnavailable = zerr.New("compiler worker unavailable")

	// ErrWorkerProtocol is returned when a compiler worker answers with a malformed response.
	ErrWorkerProtocol = zerr.New("compiler worker protocol error")

	// ErrBootstrapFailed is returned when the one-time worker bootstrap fails.
	ErrBootstrapFailed = zerr.New("worker bootstrap failed")

	// ErrPackagingFailed is returned when compiled output cannot be promoted or archived.
	ErrPackagingFailed = zerr.New("packaging failed")

	// ErrConflictingWarningArgs is returned when both fatal-warning argument overrides are supplied.
	ErrConflictingWarningArgs = zerr.New("conflicting fatal warning argument overrides")

	// ErrConfigReadFailed is returned when the project configuration cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config")

	// ErrConfigParseFailed is returned when the project configuration cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config")

	// ErrBuildFailed is returned when at least one target failed to compile.
	ErrBuildFailed = zerr.New("build failed")

	// ErrDependencyFailed is recorded on targets skipped because a dependency did not compile.
	ErrDependencyFailed = zerr.New("dependency failed")
)
