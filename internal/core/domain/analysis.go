package domain

import (
	"maps"
	"path"
	"slices"
)

// AnalysisVersion is the record format version written by the analysis store.
// Records carrying any other version are treated as corrupt.
const AnalysisVersion = 1

// Analysis is the persisted incremental-compile record of a single target.
type Analysis struct {
	Version            int                       `json:"version"`
	Target             string                    `json:"target"`
	BuildRoot          string                    `json:"buildRoot"`
	ClassesDir         string                    `json:"classesDir"`
	OptionsFingerprint string                    `json:"optionsFingerprint"`
	Sources            map[string]SourceAnalysis `json:"sources"`
	Stamps             map[string]Stamp          `json:"stamps"`
}

// SourceAnalysis records what a single source produced and what it depends on.
type SourceAnalysis struct {
	Products []Product `json:"products"`
	// Dependencies lists other sources of the same target this source depends on.
	Dependencies []string `json:"dependencies,omitempty"`
	// Binaries lists classpath entries the source was compiled against.
	Binaries []string `json:"binaries,omitempty"`
	// Resources lists the non-class files the source produced, relative to the target class directory.
	Resources []string `json:"resources,omitempty"`
}

// Outputs returns every file the source produced, class files first.
func (s SourceAnalysis) Outputs() []string {
	out := make([]string, 0, len(s.Products)+len(s.Resources))
	for _, p := range s.Products {
		out = append(out, p.Path)
	}
	return append(out, s.Resources...)
}

// Product is a class file produced by a source.
type Product struct {
	// Class is the logical class name, e.g. "org.acme.Shared".
	Class string `json:"class"`
	// Path is relative to the target class directory.
	Path string `json:"path"`
}

// Stamp captures the state of a source at compile time.
type Stamp struct {
	Hash         string `json:"hash"`
	LastModified int64  `json:"lastModified"`
}

// NewAnalysis creates an empty analysis record for a target.
func NewAnalysis(target, buildRoot, classesDir, fingerprint string) *Analysis {
	return &Analysis{
		Version:            AnalysisVersion,
		Target:             target,
		BuildRoot:          buildRoot,
		ClassesDir:         classesDir,
		OptionsFingerprint: fingerprint,
		Sources:            make(map[string]SourceAnalysis),
		Stamps:             make(map[string]Stamp),
	}
}

// SourceNames returns the recorded sources in sorted order.
func (a *Analysis) SourceNames() []string {
	return slices.Sorted(maps.Keys(a.Sources))
}

// Producers returns, for every output path, the sorted list of sources that produced it.
// Resources are included.
func (a *Analysis) Producers() map[string][]string {
	out := make(map[string][]string)
	for _, src := range a.SourceNames() {
		for _, p := range a.Sources[src].Outputs() {
			if !slices.Contains(out[p], src) {
				out[p] = append(out[p], src)
			}
		}
	}
	return out
}

// Outputs returns every recorded output path, sorted and deduplicated.
func (a *Analysis) Outputs() []string {
	var out []string
	for _, src := range a.Sources {
		out = append(out, src.Outputs()...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Products returns the class files recorded in the analysis, keyed by file name.
func (a *Analysis) Products() Products {
	out := make(Products)
	for _, src := range a.Sources {
		for _, p := range src.Products {
			out.Add(path.Base(p.Path), p.Path)
		}
	}
	return out
}

// Clone returns a deep copy of the analysis.
func (a *Analysis) Clone() *Analysis {
	c := *a
	c.Sources = make(map[string]SourceAnalysis, len(a.Sources))
	for k, v := range a.Sources {
		c.Sources[k] = SourceAnalysis{
			Products:     slices.Clone(v.Products),
			Dependencies: slices.Clone(v.Dependencies),
			Binaries:     slices.Clone(v.Binaries),
			Resources:    slices.Clone(v.Resources),
		}
	}
	c.Stamps = maps.Clone(a.Stamps)
	if c.Stamps == nil {
		c.Stamps = make(map[string]Stamp)
	}
	return &c
}

// LoadStatus distinguishes the outcomes of loading an analysis record.
type LoadStatus int

const (
	// LoadAbsent means no record exists for the target.
	LoadAbsent LoadStatus = iota
	// LoadLoaded means a usable record was read.
	LoadLoaded
	// LoadCorrupt means a record exists but cannot be used.
	LoadCorrupt
)

// String returns the string representation of the LoadStatus.
func (s LoadStatus) String() string {
	switch s {
	case LoadLoaded:
		return "loaded"
	case LoadCorrupt:
		return "corrupt"
	default:
		return "absent"
	}
}

// LoadResult is the tagged result of loading an analysis record.
// Analysis is set only for LoadLoaded, Err only for LoadCorrupt.
type LoadResult struct {
	Status   LoadStatus
	Analysis *Analysis
	Err      error
}

// Absent returns a LoadResult for a missing record.
func Absent() LoadResult {
	return LoadResult{Status: LoadAbsent}
}

// Loaded returns a LoadResult wrapping a usable record.
func Loaded(a *Analysis) LoadResult {
	return LoadResult{Status: LoadLoaded, Analysis: a}
}

// Corrupt returns a LoadResult for an unusable record.
func Corrupt(err error) LoadResult {
	return LoadResult{Status: LoadCorrupt, Err: err}
}
