// Package fs provides file system adapters for walking, stamping and resolving source files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every file below root, skipping VCS metadata and directories matching ignores.
// Yielded paths include root.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if skipAction := w.shouldSkipDir(d, ignores); skipAction != nil {
				return skipAction
			}

			if d.IsDir() {
				return nil
			}

			if !yield(path) {
				return filepath.SkipAll
			}

			return nil
		})
	}
}

// RelativeFiles returns the files below root as sorted, slash-separated paths relative to root.
// A missing root yields no files.
func (w *Walker) RelativeFiles(root string) ([]string, error) {
	var out []string
	for path := range w.WalkFiles(root, nil) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.ToSlash(rel))
	}
	slices.Sort(out)
	return out, nil
}

// shouldSkipDir returns filepath.SkipDir for directories that must not be descended into.
func (w *Walker) shouldSkipDir(d fs.DirEntry, ignores []string) error {
	if !d.IsDir() {
		return nil
	}

	name := d.Name()
	if name == ".git" || name == ".jj" {
		return filepath.SkipDir
	}

	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return filepath.SkipDir
		}
	}

	return nil
}
