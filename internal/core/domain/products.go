package domain

import (
	"maps"
	"slices"
)

// Products maps a logical output name (the file name, e.g. "Shared.class") to the physical files that
// provide it. One name may have several producers, each kept as a distinct path.
type Products map[string][]string

// Add records a physical path for a name, keeping the list sorted and free of duplicates.
func (p Products) Add(name, path string) {
	paths := p[name]
	i, found := slices.BinarySearch(paths, path)
	if found {
		return
	}
	p[name] = slices.Insert(paths, i, path)
}

// Merge adds every entry of other into p.
func (p Products) Merge(other Products) {
	for name, paths := range other {
		for _, path := range paths {
			p.Add(name, path)
		}
	}
}

// Names returns the logical names in sorted order.
func (p Products) Names() []string {
	return slices.Sorted(maps.Keys(p))
}

// Count returns the number of physical class files.
func (p Products) Count() int {
	n := 0
	for _, paths := range p {
		n += len(paths)
	}
	return n
}
