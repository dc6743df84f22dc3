package fs

import (
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/zerr"
)

// Resolver expands source patterns relative to a build root.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveSources expands doublestar patterns such as "src/scala/**/*.scala" into a sorted,
// deduplicated list of root-relative files. A pattern without glob syntax must name an existing file;
// a glob matching nothing contributes nothing.
func (r *Resolver) ResolveSources(root string, patterns []string) ([]string, error) {
	fsys := os.DirFS(root)
	unique := make(map[string]struct{})

	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "./")
		if !doublestar.ValidatePattern(pattern) {
			return nil, zerr.With(zerr.New("failed to glob path"), "pattern", pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "pattern", pattern)
		}

		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, zerr.With(zerr.Wrap(os.ErrNotExist, "source not found"), "path", pattern)
		}

		for _, m := range matches {
			unique[m] = struct{}{}
		}
	}

	result := make([]string, 0, len(unique))
	for p := range unique {
		result = append(result, p)
	}
	slices.Sort(result)
	return result, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{\`)
}
