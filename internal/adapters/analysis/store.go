// Package analysis implements the per-target incremental analysis store.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.AnalysisStore with one JSON record per target under <workdir>/analysis.
type Store struct {
	layout domain.Layout
}

// NewStore creates a Store rooted at the layout's analysis directory.
func NewStore(layout domain.Layout) *Store {
	return &Store{layout: layout}
}

// Load reads the record of a target.
func (s *Store) Load(_ context.Context, target string) domain.LoadResult {
	filename := s.recordPath(target)
	//nolint:gosec // Path is constructed from the analysis dir and a normalized target name
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Absent()
		}
		return domain.Corrupt(corrupt(err, target, filename))
	}

	var a domain.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Corrupt(corrupt(err, target, filename))
	}
	if a.Version != domain.AnalysisVersion {
		return domain.Corrupt(zerr.With(corrupt(zerr.New("unsupported record version"), target, filename),
			"version", a.Version))
	}
	if a.Target != target {
		return domain.Corrupt(zerr.With(corrupt(zerr.New("record belongs to another target"), target, filename),
			"recorded_target", a.Target))
	}
	if a.Sources == nil {
		a.Sources = make(map[string]domain.SourceAnalysis)
	}
	if a.Stamps == nil {
		a.Stamps = make(map[string]domain.Stamp)
	}
	return domain.Loaded(&a)
}

// Commit atomically replaces the record of analysis.Target.
// The record is written to a temporary file in the same directory, synced and renamed into place.
func (s *Store) Commit(ctx context.Context, analysis *domain.Analysis) error {
	if err := ctx.Err(); err != nil {
		return commitFailed(err, analysis.Target)
	}

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return commitFailed(err, analysis.Target)
	}
	if err := writeAtomic(s.recordPath(analysis.Target), data); err != nil {
		return commitFailed(err, analysis.Target)
	}
	return nil
}

// Delete removes the record and its portable export.
func (s *Store) Delete(_ context.Context, target string) error {
	filename := s.recordPath(target)
	for _, f := range []string{filename, filename + domain.PortableSuffix} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "failed to delete analysis"), "target", target)
		}
	}
	return nil
}

// Path returns the location of the record of a target.
func (s *Store) Path(target string) string {
	return s.recordPath(target)
}

func (s *Store) recordPath(target string) string {
	return filepath.Join(s.layout.AnalysisDir(), domain.NormalizeTargetName(target)+domain.AnalysisSuffix)
}

func writeAtomic(filename string, data []byte) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

func corrupt(err error, target, filename string) error {
	return zerr.With(zerr.With(errors.Join(domain.ErrCorruptAnalysis, err), "target", target), "path", filename)
}

func commitFailed(err error, target string) error {
	return zerr.With(errors.Join(domain.ErrAnalysisCommitFailed, err), "target", target)
}
