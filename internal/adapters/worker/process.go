package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Worker = (*Process)(nil)

// closeTimeout bounds how long Close waits for a worker to exit after its stdin is closed.
const closeTimeout = 5 * time.Second

// Process is a compiler worker running as a child process.
// It serves one request at a time and becomes unhealthy as soon as it exits, is killed or
// violates the protocol.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	tail  *tailBuffer
	log   *logWriter

	lines  chan []byte
	quit   chan struct{}
	exited chan struct{}

	mu      sync.Mutex
	nextID  uint64
	healthy atomic.Bool

	quitOnce  sync.Once
	closeOnce sync.Once
	exitCode  int
}

func start(f *Factory, dir string) (*Process, error) {
	args := append(append([]string(nil), f.command[1:]...), ServeCommand, DirFlag, dir)
	// The worker outlives the request that created it, so it is not bound to a context.
	cmd := exec.Command(f.command[0], args...) //nolint:gosec,noctx // configured compiler command
	cmd.Env = f.environ()
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, unavailable(err, dir)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, unavailable(err, dir)
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		tail:   &tailBuffer{},
		log:    &logWriter{logger: f.logger, prefix: "compiler: "},
		lines:  make(chan []byte),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	cmd.Stderr = io.MultiWriter(p.tail, p.log)

	if err := cmd.Start(); err != nil {
		return nil, unavailable(err, dir)
	}
	p.healthy.Store(true)

	go p.readLoop(stdout)
	return p, nil
}

// readLoop forwards stdout lines until the process closes its output, then reaps it.
func (p *Process) readLoop(stdout io.Reader) {
	defer func() {
		_ = p.cmd.Wait()
		p.exitCode = p.cmd.ProcessState.ExitCode()
		p.log.Flush()
		p.healthy.Store(false)
		close(p.exited)
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		select {
		case p.lines <- bytes.Clone(scanner.Bytes()):
		case <-p.quit:
			_, _ = io.Copy(io.Discard, stdout)
			return
		}
	}
}

// Compile sends a request and waits for its response.
func (p *Process) Compile(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.healthy.Load() {
		return nil, zerr.With(zerr.Wrap(domain.ErrWorkerUnavailable, "worker is not healthy"), "target", req.Target)
	}

	p.nextID++
	id := p.nextID
	if err := p.enc.Encode(request{ID: id, Compile: req}); err != nil {
		p.kill()
		return nil, zerr.With(errors.Join(domain.ErrWorkerUnavailable, err), "target", req.Target)
	}

	select {
	case line := <-p.lines:
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			p.kill()
			return nil, p.protocolError(err, req.Target)
		}
		if resp.ID != id {
			p.kill()
			return nil, zerr.With(p.protocolError(zerr.New("response id mismatch"), req.Target), "response_id", resp.ID)
		}
		if resp.Error != "" {
			p.kill()
			return nil, p.protocolError(zerr.New(resp.Error), req.Target)
		}
		if resp.Result == nil {
			p.kill()
			return nil, p.protocolError(zerr.New("empty result"), req.Target)
		}
		return resp.Result, nil

	case <-p.exited:
		err := zerr.Wrap(domain.ErrWorkerUnavailable, "worker exited during compile")
		err = zerr.With(err, "exit_code", p.exitCode)
		err = zerr.With(err, "stderr", p.tail.String())
		return nil, zerr.With(err, "target", req.Target)

	case <-ctx.Done():
		p.kill()
		return nil, zerr.With(zerr.Wrap(ctx.Err(), "compile interrupted"), "target", req.Target)
	}
}

// Healthy reports whether the worker can serve another request.
func (p *Process) Healthy() bool {
	return p.healthy.Load()
}

// Close asks the worker to exit by closing its stdin and kills it if it does not.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.healthy.Store(false)
		_ = p.stdin.Close()
		p.stopReading()

		timer := time.NewTimer(closeTimeout)
		defer timer.Stop()
		select {
		case <-p.exited:
		case <-timer.C:
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
	})
	return nil
}

// kill terminates a worker whose state can no longer be trusted.
func (p *Process) kill() {
	p.healthy.Store(false)
	_ = p.cmd.Process.Kill()
	p.stopReading()
}

func (p *Process) stopReading() {
	p.quitOnce.Do(func() { close(p.quit) })
}

func (p *Process) protocolError(err error, target string) error {
	return zerr.With(zerr.With(errors.Join(domain.ErrWorkerProtocol, err), "target", target), "stderr", p.tail.String())
}

func unavailable(err error, dir string) error {
	return zerr.With(errors.Join(domain.ErrWorkerUnavailable, err), "dir", dir)
}
