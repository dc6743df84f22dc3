package compile

import (
	"maps"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
)

// Plan is the result of comparing a target's sources with its prior analysis.
type Plan struct {
	// Invalidated lists the sources to recompile, sorted.
	Invalidated []string
	// Deleted lists recorded sources that no longer exist, sorted.
	Deleted []string
	// StampsChanged reports whether any stamp differs from the record, including modification times.
	StampsChanged bool
}

// UpToDate reports whether nothing needs to be compiled or removed.
func (p Plan) UpToDate() bool {
	return len(p.Invalidated) == 0 && len(p.Deleted) == 0
}

// Invalidate computes which sources must be recompiled. A nil prior analysis invalidates every source.
// Otherwise a source is invalidated when it is new, when its content hash changed, or when it depends,
// directly or transitively, on an invalidated or deleted source.
func Invalidate(prev *domain.Analysis, sources []string, stamps map[string]domain.Stamp) Plan {
	if prev == nil {
		return Plan{Invalidated: sortedUnique(sources), StampsChanged: true}
	}

	current := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		current[src] = struct{}{}
	}

	var plan Plan
	dirty := make(map[string]struct{})
	for src := range current {
		old, recorded := prev.Stamps[src]
		_, analyzed := prev.Sources[src]
		if !recorded || !analyzed || old.Hash != stamps[src].Hash {
			dirty[src] = struct{}{}
		}
		if !recorded || old != stamps[src] {
			plan.StampsChanged = true
		}
	}
	for src := range prev.Sources {
		if _, ok := current[src]; !ok {
			plan.Deleted = append(plan.Deleted, src)
			dirty[src] = struct{}{}
		}
	}
	slices.Sort(plan.Deleted)
	if len(plan.Deleted) > 0 {
		plan.StampsChanged = true
	}

	// Reverse edges among the recorded sources.
	dependents := make(map[string][]string)
	for src, analysis := range prev.Sources {
		for _, dep := range analysis.Dependencies {
			dependents[dep] = append(dependents[dep], src)
		}
	}

	queue := slices.Sorted(maps.Keys(dirty))
	for len(queue) > 0 {
		src := queue[0]
		queue = queue[1:]
		for _, dependent := range dependents[src] {
			if _, seen := dirty[dependent]; seen {
				continue
			}
			dirty[dependent] = struct{}{}
			queue = append(queue, dependent)
		}
	}

	for src := range dirty {
		if _, ok := current[src]; ok {
			plan.Invalidated = append(plan.Invalidated, src)
		}
	}
	slices.Sort(plan.Invalidated)
	return plan
}

// Merge builds the analysis that results from compiling plan.Invalidated on top of prev.
// Entries of invalidated and deleted sources are replaced by the compile output; every source gets the
// current stamp.
func Merge(
	prev *domain.Analysis,
	plan Plan,
	compiled map[string]domain.SourceAnalysis,
	stamps map[string]domain.Stamp,
	base *domain.Analysis,
) *domain.Analysis {
	next := base
	if prev != nil {
		next = prev.Clone()
		next.Target = base.Target
		next.BuildRoot = base.BuildRoot
		next.ClassesDir = base.ClassesDir
		next.OptionsFingerprint = base.OptionsFingerprint
	}

	for _, src := range plan.Deleted {
		delete(next.Sources, src)
	}
	for _, src := range plan.Invalidated {
		next.Sources[src] = compiled[src]
	}
	next.Stamps = maps.Clone(stamps)
	if next.Stamps == nil {
		next.Stamps = make(map[string]domain.Stamp)
	}
	return next
}

// Promoted rewrites the resource paths of compile output to where the packager places them.
func Promoted(compiled map[string]domain.SourceAnalysis) map[string]domain.SourceAnalysis {
	out := make(map[string]domain.SourceAnalysis, len(compiled))
	for src, sa := range compiled {
		if len(sa.Resources) > 0 {
			resources := make([]string, len(sa.Resources))
			for i, r := range sa.Resources {
				resources[i] = domain.PromotedPath(r)
			}
			sa.Resources = resources
		}
		out[src] = sa
	}
	return out
}

// Stale returns the class-directory relative outputs, resources included, produced in prev that no
// source of next produces.
func Stale(prev, next *domain.Analysis) []string {
	if prev == nil {
		return nil
	}
	live := next.Producers()
	var stale []string
	for p := range prev.Producers() {
		if _, ok := live[p]; !ok {
			stale = append(stale, p)
		}
	}
	slices.Sort(stale)
	return stale
}

func sortedUnique(ss []string) []string {
	out := slices.Clone(ss)
	slices.Sort(out)
	return slices.Compact(out)
}
