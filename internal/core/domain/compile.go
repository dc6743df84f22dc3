package domain

import "time"

// CompileRequest is the unit of work handed to a compiler worker.
type CompileRequest struct {
	Target    string `json:"target"`
	BuildRoot string `json:"buildRoot"`
	// Sources are relative to BuildRoot.
	Sources   []string `json:"sources"`
	Classpath []string `json:"classpath"`
	OutputDir string   `json:"outputDir"`
	Args      []string `json:"args"`
}

// CompileResult is what a compiler worker reports back for a request.
type CompileResult struct {
	ExitCode    int          `json:"exitCode"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	// Sources maps each compiled source to what it produced, with product paths relative to OutputDir.
	Sources map[string]SourceAnalysis `json:"sources"`
}

// TargetResult is the outcome of compiling one target.
type TargetResult struct {
	Target      string
	State       CompileState
	Diagnostics []ClassifiedDiagnostic
	Products    Products
	// Invalidated lists the sources that were recompiled, sorted.
	Invalidated []string
	ClassesDir  string
	Jar         string
	Duration    time.Duration
	Err         error
}

// Failed reports whether the target did not compile.
func (r *TargetResult) Failed() bool {
	return r.State == StateFailed || r.State == StateSkipped
}

// BuildResult aggregates the outcomes of a build.
type BuildResult struct {
	Targets  []TargetResult
	Products Products
	Stats    PoolStats
}

// Failed returns the targets that did not compile.
func (b *BuildResult) Failed() []TargetResult {
	var out []TargetResult
	for _, r := range b.Targets {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// PoolStats is a snapshot of worker pool counters.
type PoolStats struct {
	Size       int
	Idle       int
	InUse      int
	Created    int
	Discarded  int
	Bootstraps int
}

// PromoteRequest describes how a successful attempt's output reaches the class directory.
type PromoteRequest struct {
	StagingDir string
	ClassesDir string
	// Stale lists class-directory relative files to remove before promotion.
	Stale []string
	// Plugin, when set, makes the packager write a plugin descriptor at the classes root.
	Plugin *PluginInfo
}
