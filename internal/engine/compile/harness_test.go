package compile_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/analysis"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/kiln/internal/adapters/packager"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/adapters/worker/workertest"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/compile"
	"go.trai.ch/kiln/internal/engine/pool"
)

// harness wires a build root with the real file system adapters and the toy compiler.
type harness struct {
	t        *testing.T
	root     string
	cfg      compile.Config
	store    *analysis.Store
	factory  *workertest.Factory
	pool     *pool.Pool
	requests *requestLog
	logs     *bytes.Buffer
	deps     compile.Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	layout := domain.Layout{
		WorkDir:  filepath.Join(root, domain.DefaultWorkDir),
		CacheDir: filepath.Join(root, domain.DefaultCacheDir),
	}
	h := &harness{
		t:        t,
		root:     root,
		cfg:      compile.Config{BuildRoot: root, Layout: layout},
		store:    analysis.NewStore(layout),
		factory:  workertest.NewFactory("test"),
		requests: &requestLog{},
		logs:     &bytes.Buffer{},
	}
	log := logger.NewWithWriter(h.logs)
	h.pool = pool.New(h.factory, layout.CacheDir, 2, log)
	t.Cleanup(func() { _ = h.pool.Close() })
	h.deps = compile.Deps{
		Stamper:   fs.NewStamper(),
		Packager:  packager.New(fs.NewWalker()),
		Verifier:  fs.NewVerifier(),
		Logger:    log,
		Telemetry: telemetry.NoOp{},
	}
	return h
}

func (h *harness) write(rel, content string) {
	h.t.Helper()
	p := filepath.Join(h.root, filepath.FromSlash(rel))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(h.t, os.WriteFile(p, []byte(content), 0o600))
}

func (h *harness) remove(rel string) {
	h.t.Helper()
	require.NoError(h.t, os.Remove(filepath.Join(h.root, filepath.FromSlash(rel))))
}

func (h *harness) run(ctx context.Context, target domain.Target) domain.TargetResult {
	h.t.Helper()
	return compile.NewTask(h.cfg, h.deps, h.store, h.recordingPool(), target, nil).Run(ctx)
}

func (h *harness) orchestrator() *compile.Orchestrator {
	return compile.NewOrchestrator(h.cfg, h.deps, h.store, h.recordingPool())
}

func (h *harness) classesDir(name string) string {
	return h.cfg.Layout.ClassesDir(domain.NormalizeTargetName(name))
}

func (h *harness) classFiles(name string) []string {
	h.t.Helper()
	files, err := fs.NewWalker().RelativeFiles(h.classesDir(name))
	require.NoError(h.t, err)
	return files
}

func (h *harness) stagingEntries() []os.DirEntry {
	entries, _ := os.ReadDir(h.cfg.Layout.StagingRoot())
	return entries
}

// compiles returns the number of compile requests served so far.
func (h *harness) compiles() int {
	n := 0
	for _, w := range h.factory.Workers() {
		n += w.Compiles()
	}
	return n
}

func (h *harness) recordingPool() ports.WorkerPool {
	return &recordingPool{pool: h.pool, log: h.requests}
}

func target(name string, sources ...string) domain.Target {
	return domain.Target{
		Name:    domain.NewInternedString(name),
		Sources: domain.NewInternedStrings(sources),
	}
}

// requestLog keeps every compile request sent to a worker.
type requestLog struct {
	mu   sync.Mutex
	reqs []domain.CompileRequest
}

func (l *requestLog) add(req *domain.CompileRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, *req)
}

func (l *requestLog) forTarget(name string) []domain.CompileRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.CompileRequest
	for _, r := range l.reqs {
		if r.Target == name {
			out = append(out, r)
		}
	}
	return out
}

type recordingPool struct {
	pool *pool.Pool
	log  *requestLog

	mu      sync.Mutex
	wrapped map[ports.Worker]ports.Worker
}

func (p *recordingPool) Acquire(ctx context.Context) (ports.Worker, error) {
	w, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rw := &recordingWorker{Worker: w, log: p.log}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wrapped == nil {
		p.wrapped = make(map[ports.Worker]ports.Worker)
	}
	p.wrapped[rw] = w
	return rw, nil
}

func (p *recordingPool) Release(w ports.Worker) {
	p.mu.Lock()
	inner := p.wrapped[w]
	delete(p.wrapped, w)
	p.mu.Unlock()
	p.pool.Release(inner)
}

func (p *recordingPool) Stats() domain.PoolStats {
	return p.pool.Stats()
}

type recordingWorker struct {
	ports.Worker
	log *requestLog
}

func (w *recordingWorker) Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
	w.log.add(req)
	return w.Worker.Compile(ctx, req)
}
