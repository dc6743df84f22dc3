package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// BootstrapCommand is appended to the compiler command line for the one-time bootstrap.
	BootstrapCommand = "bootstrap"
	// ServeCommand is appended to the compiler command line to start a long-lived worker.
	ServeCommand = "serve"
	// DirFlag precedes the bootstrapped pool directory on both command lines.
	DirFlag = "--dir"

	maxLineSize = 64 << 20
)

// request is a single line written to a worker's stdin.
type request struct {
	ID      uint64                 `json:"id"`
	Compile *domain.CompileRequest `json:"compile"`
}

// response is a single line read from a worker's stdout.
type response struct {
	ID     uint64                `json:"id"`
	Result *domain.CompileResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// CompileFunc serves a single compile request inside a worker process.
type CompileFunc func(ctx context.Context, req *domain.CompileRequest) (*domain.CompileResult, error)

// Serve runs the worker side of the protocol: one JSON request per line on r, one JSON response per
// line on w, until r is exhausted or ctx is done. It is the loop a compiler wrapper runs after being
// started with the serve command.
func Serve(ctx context.Context, r io.Reader, w io.Writer, compile CompileFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil || req.Compile == nil {
			if err == nil {
				err = zerr.New("missing compile request")
			}
			return errors.Join(domain.ErrWorkerProtocol, err)
		}

		resp := response{ID: req.ID}
		result, err := compile(ctx, req.Compile)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			return zerr.Wrap(err, "failed to write response")
		}
	}
	return scanner.Err()
}
