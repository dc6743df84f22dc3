// Package pool keeps a bounded set of warm compiler workers shared by the targets of a build.
package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// BootstrapLogPrefix starts the log line written when a pool directory is bootstrapped.
const BootstrapLogPrefix = "worker-pool-bootstrap"

var _ ports.WorkerPool = (*Pool)(nil)

// marker is the content of the bootstrap marker file.
type marker struct {
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Pool hands out at most size workers at a time.
// The compiler installation is bootstrapped at most once per cache directory: a marker file records a
// finished bootstrap so that later pools, in this or another process, skip it.
type Pool struct {
	factory ports.WorkerFactory
	logger  ports.Logger
	size    int
	dir     string
	sem     *semaphore.Weighted
	group   singleflight.Group

	mu           sync.Mutex
	bootstrapped bool
	closed       bool
	idle         []ports.Worker
	leased       map[ports.Worker]struct{}
	created      int
	discarded    int
	bootstraps   int
}

// New creates a pool of workers made by factory. The pool owns a directory under cacheDir keyed by the
// factory fingerprint. A size of zero or less uses the number of CPUs.
func New(factory ports.WorkerFactory, cacheDir string, size int, logger ports.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	layout := domain.Layout{CacheDir: cacheDir}
	return &Pool{
		factory: factory,
		logger:  logger,
		size:    size,
		dir:     layout.PoolDir(Key(factory.Fingerprint())),
		sem:     semaphore.NewWeighted(int64(size)),
		leased:  make(map[ports.Worker]struct{}),
	}
}

// Key returns the pool directory name for a compiler fingerprint.
func Key(fingerprint string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(fingerprint))
}

// Dir returns the directory owned by the pool.
func (p *Pool) Dir() string {
	return p.dir
}

// Acquire returns a worker, bootstrapping the compiler first if needed. It blocks while all slots are in
// use; when ctx expires first the error wraps domain.ErrPoolTimeout.
func (p *Pool) Acquire(ctx context.Context) (ports.Worker, error) {
	if err := p.ensureBootstrapped(ctx); err != nil {
		return nil, err
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, p.waitFailed(err)
	}

	w, err := p.take(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	return w, nil
}

// waitFailed wraps the context error of an abandoned wait. Deadlines become domain.ErrPoolTimeout.
func (p *Pool) waitFailed(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return zerr.With(errors.Join(domain.ErrPoolTimeout, err), "pool_size", p.size)
	}
	return zerr.Wrap(err, "acquire worker")
}

func (p *Pool) take(ctx context.Context) (ports.Worker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, zerr.Wrap(domain.ErrWorkerUnavailable, "pool is closed")
	}
	for len(p.idle) > 0 {
		w := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		if w.Healthy() {
			p.leased[w] = struct{}{}
			p.mu.Unlock()
			return w, nil
		}
		p.discarded++
		_ = w.Close()
	}
	p.mu.Unlock()

	w, err := p.factory.New(ctx, p.dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "start worker"), "dir", p.dir)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	p.leased[w] = struct{}{}
	return w, nil
}

// Release returns a worker to the pool. Unhealthy workers are closed and replaced on demand.
// Releasing a worker the pool did not hand out is ignored.
func (p *Pool) Release(w ports.Worker) {
	p.mu.Lock()
	if _, ok := p.leased[w]; !ok {
		p.mu.Unlock()
		if p.logger != nil {
			p.logger.Warn("ignoring release of a worker not leased from the pool")
		}
		return
	}
	delete(p.leased, w)

	keep := !p.closed && w.Healthy()
	if keep {
		p.idle = append(p.idle, w)
	} else if !p.closed {
		p.discarded++
	}
	p.mu.Unlock()

	if !keep {
		_ = w.Close()
	}
	p.sem.Release(1)
}

// Close closes all idle workers. Leased workers are closed when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs error
	for _, w := range idle {
		errs = errors.Join(errs, w.Close())
	}
	return errs
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() domain.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PoolStats{
		Size:       p.size,
		Idle:       len(p.idle),
		InUse:      len(p.leased),
		Created:    p.created,
		Discarded:  p.discarded,
		Bootstraps: p.bootstraps,
	}
}

func (p *Pool) ensureBootstrapped(ctx context.Context) error {
	p.mu.Lock()
	done := p.bootstrapped
	p.mu.Unlock()
	if done {
		return nil
	}

	// Every waiter shares one bootstrap, which outlives the caller that started it.
	// Each caller stops waiting when its own context is done.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(p.dir, func() (any, error) {
		p.mu.Lock()
		done := p.bootstrapped
		p.mu.Unlock()
		if done {
			return nil, nil
		}
		if err := p.bootstrap(shared); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.bootstrapped = true
		p.mu.Unlock()
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return p.waitFailed(ctx.Err())
	}
}

func (p *Pool) bootstrap(ctx context.Context) error {
	fingerprint := p.factory.Fingerprint()
	path := filepath.Join(p.dir, domain.BootstrapMarkerName)
	if validMarker(path, fingerprint) {
		return nil
	}

	if err := p.factory.Bootstrap(ctx, p.dir); err != nil {
		return zerr.With(err, "dir", p.dir)
	}

	data, err := json.Marshal(marker{Fingerprint: fingerprint, CreatedAt: time.Now().UTC()})
	if err != nil {
		return zerr.Wrap(err, "failed to encode bootstrap marker")
	}
	if err := writeMarker(path, data); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write bootstrap marker"), "path", path)
	}

	p.mu.Lock()
	p.bootstraps++
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.Info(BootstrapLogPrefix + ": bootstrapped compiler in " + p.dir)
	}
	return nil
}

func validMarker(path, fingerprint string) bool {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the cache dir
	if err != nil {
		return false
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return false
	}
	return m.Fingerprint == fingerprint
}

func writeMarker(path string, data []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), domain.BootstrapMarkerName+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
