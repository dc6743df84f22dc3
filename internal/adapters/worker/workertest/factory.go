package workertest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var (
	_ ports.WorkerFactory = (*Factory)(nil)
	_ ports.Worker        = (*Worker)(nil)
)

// Factory creates in-process workers running the toy compiler and counts what it did.
type Factory struct {
	// Key distinguishes compiler installations in Fingerprint.
	Key string
	// BootstrapErr, when set, is returned by every Bootstrap call.
	BootstrapErr error

	bootstraps atomic.Int32
	created    atomic.Int32

	mu      sync.Mutex
	workers []*Worker
}

// NewFactory returns a Factory with the given installation key.
func NewFactory(key string) *Factory {
	return &Factory{Key: key}
}

// Fingerprint implements ports.WorkerFactory.
func (f *Factory) Fingerprint() string {
	return "workertest\x00" + f.Key
}

// Bootstrap implements ports.WorkerFactory.
func (f *Factory) Bootstrap(ctx context.Context, dir string) error {
	f.bootstraps.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.BootstrapErr != nil {
		return errors.Join(domain.ErrBootstrapFailed, f.BootstrapErr)
	}
	return Bootstrap(dir)
}

// New implements ports.WorkerFactory.
func (f *Factory) New(ctx context.Context, dir string) (ports.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.created.Add(1)
	w := &Worker{dir: dir}
	w.healthy.Store(true)

	f.mu.Lock()
	f.workers = append(f.workers, w)
	f.mu.Unlock()
	return w, nil
}

// Bootstraps returns the number of Bootstrap calls.
func (f *Factory) Bootstraps() int {
	return int(f.bootstraps.Load())
}

// Created returns the number of workers created.
func (f *Factory) Created() int {
	return int(f.created.Load())
}

// Workers returns every worker created so far.
func (f *Factory) Workers() []*Worker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Worker(nil), f.workers...)
}

// Worker is an in-process worker.
// Like a process worker it becomes unhealthy when it crashes or a compile is interrupted.
type Worker struct {
	dir      string
	healthy  atomic.Bool
	closed   atomic.Bool
	compiles atomic.Int32
}

// Compile implements ports.Worker.
func (w *Worker) Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
	if !w.healthy.Load() {
		return nil, domain.ErrWorkerUnavailable
	}
	w.compiles.Add(1)
	result, err := Compile(ctx, req)
	if err != nil && (errors.Is(err, ErrCrashed) || ctx.Err() != nil) {
		w.healthy.Store(false)
	}
	return result, err
}

// Healthy implements ports.Worker.
func (w *Worker) Healthy() bool {
	return w.healthy.Load()
}

// Close implements ports.Worker.
func (w *Worker) Close() error {
	w.healthy.Store(false)
	w.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (w *Worker) Closed() bool {
	return w.closed.Load()
}

// Compiles returns the number of requests the worker served.
func (w *Worker) Compiles() int {
	return int(w.compiles.Load())
}
