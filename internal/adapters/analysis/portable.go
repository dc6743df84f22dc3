package analysis

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// PortableFormatVersion is the version line written at the top of a portable export.
const PortableFormatVersion = 1

// Export renders the record of a target in the portable text format.
//
// Every section except the trailing "stamps" section is independent of the build root, the workdir
// and wall-clock time, so two builds of identical sources from different roots export identical text
// up to that section.
func (s *Store) Export(ctx context.Context, target string) ([]byte, error) {
	res := s.Load(ctx, target)
	switch res.Status {
	case domain.LoadLoaded:
		return s.render(res.Analysis), nil
	case domain.LoadCorrupt:
		return nil, res.Err
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrTargetNotFound, "no analysis recorded"), "target", target)
	}
}

// ExportTo writes the portable export next to the record and returns its path.
func (s *Store) ExportTo(ctx context.Context, target string) (string, error) {
	data, err := s.Export(ctx, target)
	if err != nil {
		return "", err
	}
	filename := s.recordPath(target) + domain.PortableSuffix
	if err := writeAtomic(filename, data); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to export analysis"), "target", target)
	}
	return filename, nil
}

func (s *Store) render(a *domain.Analysis) []byte {
	r := domain.PathRebaser{BuildRoot: a.BuildRoot, WorkDir: s.layout.WorkDir}
	w := &sectionWriter{}

	w.section("format version")
	w.line(fmt.Sprint(PortableFormatVersion))

	w.section("target")
	w.line(a.Target)

	w.section("options")
	w.line("fingerprint: " + a.OptionsFingerprint)

	sources := a.SourceNames()
	w.section("sources")
	w.count(len(sources))
	for _, src := range sources {
		w.line(portablePath(r, src))
	}

	var products []string
	for _, src := range sources {
		for _, p := range a.Sources[src].Products {
			products = append(products, fmt.Sprintf("%s -> %s (%s)", portablePath(r, src), p.Path, p.Class))
		}
	}
	slices.Sort(products)
	w.section("products")
	w.count(len(products))
	w.lines(products)

	var resources []string
	for _, src := range sources {
		for _, res := range a.Sources[src].Resources {
			resources = append(resources, portablePath(r, src)+" -> "+res)
		}
	}
	slices.Sort(resources)
	w.section("resources")
	w.count(len(resources))
	w.lines(resources)

	var deps []string
	for _, src := range sources {
		sa := a.Sources[src]
		for _, d := range sa.Dependencies {
			deps = append(deps, portablePath(r, src)+" -> "+portablePath(r, d))
		}
		for _, b := range sa.Binaries {
			deps = append(deps, portablePath(r, src)+" -> binary:"+r.Rebase(b))
		}
	}
	slices.Sort(deps)
	w.section("dependencies")
	w.count(len(deps))
	w.lines(deps)

	stamped := make([]string, 0, len(a.Stamps))
	for src, st := range a.Stamps {
		stamped = append(stamped, fmt.Sprintf("%s -> hash(%s) lastModified(%d)", portablePath(r, src), st.Hash, st.LastModified))
	}
	slices.Sort(stamped)
	w.section("stamps")
	w.count(len(stamped))
	w.lines(stamped)

	return w.buf.Bytes()
}

// portablePath renders a source path relative to the build root with forward slashes.
func portablePath(r domain.PathRebaser, p string) string {
	if filepath.IsAbs(p) {
		return r.Rebase(p)
	}
	return filepath.ToSlash(p)
}

type sectionWriter struct {
	buf bytes.Buffer
}

func (w *sectionWriter) section(name string) {
	w.buf.WriteString(name)
	w.buf.WriteString(":\n")
}

func (w *sectionWriter) count(n int) {
	fmt.Fprintf(&w.buf, "%d items\n", n)
}

func (w *sectionWriter) line(s string) {
	w.buf.WriteString(strings.ReplaceAll(s, "\n", " "))
	w.buf.WriteByte('\n')
}

func (w *sectionWriter) lines(ss []string) {
	for _, s := range ss {
		w.line(s)
	}
}
