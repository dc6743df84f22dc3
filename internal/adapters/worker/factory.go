// Package worker runs compiler workers as external processes speaking line-delimited JSON.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.WorkerFactory = (*Factory)(nil)

// Factory starts compiler worker processes from a command line.
//
// The command is invoked as "<command> bootstrap --dir <dir>" once per pool directory and as
// "<command> serve --dir <dir>" for every worker.
type Factory struct {
	command []string
	env     []string
	logger  ports.Logger
}

// NewFactory creates a Factory for the given compiler command line.
func NewFactory(command []string, logger ports.Logger) (*Factory, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, zerr.Wrap(domain.ErrWorkerUnavailable, "no compiler command configured")
	}
	return &Factory{command: command, logger: logger}, nil
}

// WithEnv returns a copy of the factory that adds env to the inherited environment of its processes.
func (f *Factory) WithEnv(env ...string) *Factory {
	c := *f
	c.env = append(append([]string(nil), f.env...), env...)
	return &c
}

// Fingerprint identifies the compiler installation: the command line plus the size and modification
// time of the resolved executable, so that upgrading the compiler forces a new bootstrap.
func (f *Factory) Fingerprint() string {
	var b strings.Builder
	for _, part := range f.command {
		b.WriteString(part)
		b.WriteByte(0)
	}
	if path, err := exec.LookPath(f.command[0]); err == nil {
		if info, err := os.Stat(path); err == nil {
			fmt.Fprintf(&b, "%s\x00%d\x00%d", path, info.Size(), info.ModTime().UnixNano())
		}
	}
	return b.String()
}

// Bootstrap runs the compiler's bootstrap command to completion.
func (f *Factory) Bootstrap(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(errors.Join(domain.ErrBootstrapFailed, err), "dir", dir)
	}

	args := append(append([]string(nil), f.command[1:]...), BootstrapCommand, DirFlag, dir)
	cmd := exec.CommandContext(ctx, f.command[0], args...) //nolint:gosec // configured compiler command
	cmd.Env = f.environ()
	cmd.Dir = dir

	var tail tailBuffer
	out := &logWriter{logger: f.logger, prefix: "bootstrap: "}
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(&tail, out)

	err := cmd.Run()
	out.Flush()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		err = zerr.With(errors.Join(domain.ErrBootstrapFailed, err), "exit_code", exitCode)
		return zerr.With(err, "stderr", tail.String())
	}
	return nil
}

// New starts a long-lived worker process.
func (f *Factory) New(ctx context.Context, dir string) (ports.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return start(f, dir)
}

func (f *Factory) environ() []string {
	return append(os.Environ(), f.env...)
}

// logWriter forwards complete lines to the logger.
type logWriter struct {
	logger ports.Logger
	prefix string

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimSuffix(line, "\n"))
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *logWriter) emit(line string) {
	if w.logger == nil || line == "" {
		return
	}
	w.logger.Info(w.prefix + line)
}

// tailBuffer keeps the last bytes written to it for error reports.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const tailSize = 4 << 10

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
