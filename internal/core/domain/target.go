package domain

import (
	"path"
	"strings"
)

// Target represents a single unit of compilation: a set of Scala and Java sources compiled together
// into one class directory.
type Target struct {
	Name         InternedString
	Sources      []InternedString
	Classpath    []string
	Dependencies []InternedString
	Options      TargetOptions
}

// TargetOptions holds the per-target compiler settings.
type TargetOptions struct {
	// FatalWarnings overrides the platform default when set.
	FatalWarnings *bool
	DebugSymbols  bool
	Plugins       []string
	// ScalacPlugin marks the target as a compiler plugin.
	ScalacPlugin *PluginInfo
	Args         []string
}

// PluginInfo describes a compiler plugin provided by a target.
type PluginInfo struct {
	Name      string `json:"name" xml:"name"`
	Classname string `json:"classname" xml:"classname"`
}

// NormalizedName returns the file-system safe form of the target name.
func (t *Target) NormalizedName() string {
	return NormalizeTargetName(t.Name.String())
}

// SourcePaths returns the target sources as plain strings.
func (t *Target) SourcePaths() []string {
	return InternedValues(t.Sources)
}

// NormalizeTargetName collapses a target address into a single path segment.
// "src/scala/org/acme:util" becomes "src.scala.org.acme.util", and an address without an explicit name
// uses its last directory, so "src/scala/org/acme/util" becomes "src.scala.org.acme.util.util".
func NormalizeTargetName(name string) string {
	name = strings.TrimPrefix(name, "//")
	dir, base, found := strings.Cut(name, ":")
	dir = strings.Trim(dir, "/")
	if !found {
		base = path.Base(dir)
	}
	if dir == "" {
		return base
	}
	return strings.ReplaceAll(dir, "/", ".") + "." + base
}
