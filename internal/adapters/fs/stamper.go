package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.SourceStamper = (*Stamper)(nil)

// Stamper computes content hashes and modification times of source files.
type Stamper struct {
	limit int
}

// NewStamper creates a Stamper hashing up to runtime.NumCPU() files concurrently.
func NewStamper() *Stamper {
	return &Stamper{limit: runtime.NumCPU()}
}

// Stamp returns a stamp for each source, keyed by the given root-relative path.
func (s *Stamper) Stamp(ctx context.Context, root string, sources []string) (map[string]domain.Stamp, error) {
	var mu sync.Mutex
	stamps := make(map[string]domain.Stamp, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stamp, err := s.stampFile(filepath.Join(root, src))
			if err != nil {
				return zerr.With(err, "source", src)
			}
			mu.Lock()
			stamps[src] = stamp
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stamps, nil
}

func (s *Stamper) stampFile(path string) (domain.Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Stamp{}, zerr.With(zerr.Wrap(err, "failed to stat source"), "path", path)
	}
	hash, err := ComputeFileHash(path)
	if err != nil {
		return domain.Stamp{}, err
	}
	return domain.Stamp{
		Hash:         fmt.Sprintf("%016x", hash),
		LastModified: info.ModTime().UnixMilli(),
	}, nil
}

// ComputeFileHash computes the XXHash of a file's content.
func ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}
