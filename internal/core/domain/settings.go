package domain

import "time"

// PlatformSettings holds build-wide language platform defaults.
type PlatformSettings struct {
	FatalWarnings bool
}

// CompileSettings holds build-wide compile options.
type CompileSettings struct {
	// Compiler is the command line of the compiler worker executable.
	Compiler    []string
	PoolSize    int
	Parallelism int
	Jar         bool
	JarSuffix   string
	// ExportPortable writes a portable analysis next to each committed record.
	ExportPortable bool
	DebugSymbols   bool
	Args           []string
	// FatalWarningsEnabledArgs and FatalWarningsDisabledArgs replace the default policy arguments when set.
	FatalWarningsEnabledArgs  []string
	FatalWarningsDisabledArgs []string
	Timeout                   time.Duration
}

// Project is a loaded kiln.yaml.
type Project struct {
	Root     string
	Layout   Layout
	Platform PlatformSettings
	Compile  CompileSettings
	Graph    *Graph
}
