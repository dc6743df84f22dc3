package domain

import (
	"path/filepath"
	"strings"
)

const (
	// BuildRootPlaceholder replaces the absolute build root in portable output.
	BuildRootPlaceholder = "$BUILD_ROOT"
	// WorkDirPlaceholder replaces the absolute workdir in portable output.
	WorkDirPlaceholder = "$WORKDIR"
)

// PathRebaser rewrites absolute paths under the build root or workdir into placeholder form,
// so that values derived from them do not depend on where the build ran.
type PathRebaser struct {
	BuildRoot string
	WorkDir   string
}

// Rebase returns p with its build root or workdir prefix replaced by a placeholder.
// The workdir is checked first since it usually lives inside the build root.
// Paths outside both are returned unchanged.
func (r PathRebaser) Rebase(p string) string {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	if rel, ok := within(r.WorkDir, p); ok {
		return join(WorkDirPlaceholder, rel)
	}
	if rel, ok := within(r.BuildRoot, p); ok {
		return join(BuildRootPlaceholder, rel)
	}
	return filepath.ToSlash(p)
}

// RebaseAll applies Rebase to every element of paths.
func (r PathRebaser) RebaseAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = r.Rebase(p)
	}
	return out
}

func within(root, p string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func join(placeholder, rel string) string {
	if rel == "." {
		return placeholder
	}
	return placeholder + "/" + filepath.ToSlash(rel)
}
