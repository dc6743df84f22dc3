package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// Worker is a warm compiler instance serving one request at a time.
//
//go:generate mockgen -source=worker.go -destination=mocks/mock_worker.go -package=mocks
type Worker interface {
	// Compile runs a single compile request to completion.
	// A non-nil error means the worker could not produce a result, not that compilation failed.
	Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error)

	// Healthy reports whether the worker can serve another request.
	Healthy() bool

	// Close releases the worker's resources.
	Close() error
}

// WorkerFactory creates compiler workers and performs their one-time bootstrap.
type WorkerFactory interface {
	// Fingerprint identifies the compiler installation; workers bootstrapped for one fingerprint are
	// reusable by every build with the same fingerprint.
	Fingerprint() string

	// Bootstrap prepares dir so that workers can be started from it.
	Bootstrap(ctx context.Context, dir string) error

	// New starts a worker using the bootstrapped dir.
	New(ctx context.Context, dir string) (Worker, error)
}

// WorkerPool hands out a bounded number of workers.
type WorkerPool interface {
	// Acquire blocks until a worker is available or ctx is done.
	Acquire(ctx context.Context) (Worker, error)

	// Release returns a worker obtained from Acquire.
	Release(w Worker)
}

// WorkerFactoryProvider builds the worker factory for a build's compile settings.
type WorkerFactoryProvider func(settings domain.CompileSettings) (WorkerFactory, error)
