package domain

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "kiln.yaml"

	// DefaultWorkDir is the default directory holding analysis records, classes and jars.
	DefaultWorkDir = ".kiln/work"

	// DefaultCacheDir is the default directory shared by builds for warm compiler state.
	DefaultCacheDir = ".kiln/cache"

	// DefaultJarSuffix is appended to the normalized target name to form the jar name.
	DefaultJarSuffix = "z.jar"

	// PluginDescriptorName is the compiler plugin registration file written at the classes root.
	PluginDescriptorName = "scalac-plugin.xml"

	// PluginMetadataSuffix identifies plugin registration files emitted by compilers.
	PluginMetadataSuffix = "-plugin.xml"

	// AnalysisSuffix is the file extension of analysis records.
	AnalysisSuffix = ".analysis"

	// PortableSuffix is appended to an analysis record name for its portable export.
	PortableSuffix = ".portable"

	// BootstrapMarkerName is the file marking a bootstrapped worker pool directory.
	BootstrapMarkerName = "bootstrap.json"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// Layout resolves the on-disk locations used for a workdir and cache dir.
type Layout struct {
	WorkDir  string
	CacheDir string
}

// AnalysisDir returns the directory holding analysis records.
func (l Layout) AnalysisDir() string {
	return filepath.Join(l.WorkDir, "analysis")
}

// ClassesDir returns the class output directory of a target.
func (l Layout) ClassesDir(normalized string) string {
	return filepath.Join(l.WorkDir, "classes", normalized)
}

// StagingRoot returns the directory holding the per-attempt staging directories.
// Each attempt of a target writes into its own "<normalized>-<n>" directory below it.
func (l Layout) StagingRoot() string {
	return filepath.Join(l.WorkDir, "staging")
}

// JarPath returns the archive path of a target.
func (l Layout) JarPath(normalized, suffix string) string {
	if suffix == "" {
		suffix = DefaultJarSuffix
	}
	return filepath.Join(l.WorkDir, "jars", normalized+"."+suffix)
}

// PoolDir returns the directory owned by the worker pool for a bootstrap key.
func (l Layout) PoolDir(key string) string {
	return filepath.Join(l.CacheDir, "pool", key)
}

// PromotedPath returns where a staged output, relative to the staging directory, lands in the class
// directory. Plugin metadata moves to the classes root; everything else keeps its path.
func PromotedPath(rel string) string {
	if strings.HasSuffix(rel, PluginMetadataSuffix) {
		return path.Base(rel)
	}
	return rel
}
