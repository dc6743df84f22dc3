package workertest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/adapters/worker"
	"go.trai.ch/kiln/internal/core/domain"
)

const (
	// ReadyFile is written into the pool directory by a successful bootstrap.
	ReadyFile = "ready"

	// FailBootstrapEnv makes the bootstrap command fail when set to a non-empty value.
	FailBootstrapEnv = "KILN_TEST_FAIL_BOOTSTRAP"

	// CrashExitCode is the exit status of a worker that hit a crash directive.
	CrashExitCode = 3
)

// Main runs the toy compiler as a worker executable and returns its exit status.
// args are the command line after the executable name.
func Main(args []string) int {
	return run(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) != 3 || args[1] != worker.DirFlag {
		_, _ = fmt.Fprintf(stderr, "usage: <bootstrap|serve> %s <dir>\n", worker.DirFlag)
		return 2
	}
	dir := args[2]

	switch args[0] {
	case worker.BootstrapCommand:
		if os.Getenv(FailBootstrapEnv) != "" {
			_, _ = fmt.Fprintln(stderr, "bootstrap refused")
			return 1
		}
		if err := Bootstrap(dir); err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 1
		}
		_, _ = fmt.Fprintln(stdout, "compiler bridge ready")
		return 0

	case worker.ServeCommand:
		if _, err := os.Stat(filepath.Join(dir, ReadyFile)); err != nil {
			_, _ = fmt.Fprintln(stderr, "pool directory was not bootstrapped")
			return 2
		}
		_, _ = fmt.Fprintln(stderr, "worker started")
		err := worker.Serve(ctx, stdin, stdout, func(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
			result, err := Compile(ctx, req)
			if errors.Is(err, ErrCrashed) {
				_, _ = fmt.Fprintln(stderr, "fatal: compiler crashed")
				os.Exit(CrashExitCode)
			}
			return result, err
		})
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 1
		}
		return 0

	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		return 2
	}
}

// Bootstrap prepares a pool directory the way the bootstrap command does.
func Bootstrap(dir string) error {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ReadyFile), []byte("ok\n"), domain.FilePerm)
}
