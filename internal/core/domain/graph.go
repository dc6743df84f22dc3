// Package domain contains the core domain models of the compile orchestrator.
package domain

import (
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

// Graph represents the dependency graph of compile targets.
type Graph struct {
	targets        map[InternedString]Target
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		targets:    make(map[InternedString]Target),
		dependents: make(map[InternedString][]InternedString),
	}
}

// AddTarget adds a target to the graph.
// It returns an error if a target with the same name already exists.
func (g *Graph) AddTarget(t *Target) error {
	if _, exists := g.targets[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTargetAlreadyExists, "add target"), "target", t.Name.String())
	}
	g.targets[t.Name] = *t
	for _, dep := range t.Dependencies {
		g.dependents[dep] = append(g.dependents[dep], t.Name)
	}
	return nil
}

// Get returns the target registered under name.
func (g *Graph) Get(name InternedString) (Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// TargetCount returns the number of targets in the graph.
func (g *Graph) TargetCount() int {
	return len(g.targets)
}

// Dependents returns the targets that depend directly on name.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Validate checks for cycles and missing dependencies using a topological sort.
// It populates the execution order used by Walk.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.targets))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		target, exists := g.targets[u]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingDependency, "validate graph"), "dependency", u.String())
		}

		for _, dep := range target.Dependencies {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	// Sorted roots keep the build order stable across runs.
	names := make([]InternedString, 0, len(g.targets))
	for name := range g.targets {
		names = append(names, name)
	}
	slices.SortFunc(names, CompareInterned)

	for _, name := range names {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(zerr.Wrap(ErrCycleDetected, "validate graph"), "cycle", cyclePath)
}

// Walk returns an iterator that yields targets in dependency order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Target] {
	return func(yield func(Target) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.targets[name]) {
				return
			}
		}
	}
}

// Subgraph returns a validated graph holding the named targets and everything they depend on.
func (g *Graph) Subgraph(names []InternedString) (*Graph, error) {
	sub := NewGraph()
	var add func(name InternedString) error
	add = func(name InternedString) error {
		if _, seen := sub.targets[name]; seen {
			return nil
		}
		t, ok := g.targets[name]
		if !ok {
			return zerr.With(zerr.Wrap(ErrTargetNotFound, "select targets"), "target", name.String())
		}
		if err := sub.AddTarget(&t); err != nil {
			return err
		}
		for _, dep := range t.Dependencies {
			if err := add(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := add(name); err != nil {
			return nil, err
		}
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return sub, nil
}
