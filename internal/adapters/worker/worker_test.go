package worker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/worker"
	"go.trai.ch/kiln/internal/adapters/worker/workertest"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const fakeCompilerEnv = "KILN_FAKE_COMPILER"

func TestMain(m *testing.M) {
	if os.Getenv(fakeCompilerEnv) == "1" {
		os.Exit(workertest.Main(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func newFactory(t *testing.T, log ports.Logger, env ...string) *worker.Factory {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	f, err := worker.NewFactory([]string{exe}, log)
	require.NoError(t, err)
	return f.WithEnv(append([]string{fakeCompilerEnv + "=1"}, env...)...)
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	log := mocks.NewMockLogger(gomock.NewController(t))
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	return log
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func startWorker(t *testing.T, f *worker.Factory) ports.Worker {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pool")
	require.NoError(t, f.Bootstrap(context.Background(), dir))
	w, err := f.New(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestNewFactory_RequiresCommand(t *testing.T) {
	_, err := worker.NewFactory(nil, nil)
	require.ErrorIs(t, err, domain.ErrWorkerUnavailable)

	_, err = worker.NewFactory([]string{""}, nil)
	require.ErrorIs(t, err, domain.ErrWorkerUnavailable)
}

func TestFactory_Fingerprint(t *testing.T) {
	a, err := worker.NewFactory([]string{"kiln-compiler-that-does-not-exist", "--jvm"}, nil)
	require.NoError(t, err)
	b, err := worker.NewFactory([]string{"kiln-compiler-that-does-not-exist", "--native"}, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), a.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFactory_BootstrapLogsOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info("bootstrap: compiler bridge ready").Times(1)

	dir := filepath.Join(t.TempDir(), "pool")
	require.NoError(t, newFactory(t, log).Bootstrap(context.Background(), dir))

	assert.FileExists(t, filepath.Join(dir, workertest.ReadyFile))
}

func TestFactory_BootstrapFailure(t *testing.T) {
	f := newFactory(t, quietLogger(t), workertest.FailBootstrapEnv+"=1")

	err := f.Bootstrap(context.Background(), filepath.Join(t.TempDir(), "pool"))

	require.ErrorIs(t, err, domain.ErrBootstrapFailed)
}

func TestProcess_CompileReusesWorker(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "src/acme/A.scala", "package acme\nclass A\nwarn unused import\n")
	writeSource(t, root, "src/acme/B.java", "package acme\nclass B\nuses src/acme/A.scala\n")

	w := startWorker(t, newFactory(t, quietLogger(t)))

	out := filepath.Join(t.TempDir(), "out")
	res, err := w.Compile(context.Background(), &domain.CompileRequest{
		Target:    "src/acme:acme",
		BuildRoot: root,
		Sources:   []string{"src/acme/A.scala"},
		OutputDir: out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.SeverityWarning, res.Diagnostics[0].Severity)
	assert.Equal(t, 3, res.Diagnostics[0].Line)
	assert.Equal(t, []domain.Product{{Class: "acme.A", Path: "acme/A.class"}}, res.Sources["src/acme/A.scala"].Products)
	assert.FileExists(t, filepath.Join(out, "acme", "A.class"))

	res, err = w.Compile(context.Background(), &domain.CompileRequest{
		Target:    "src/acme:acme",
		BuildRoot: root,
		Sources:   []string{"src/acme/B.java"},
		OutputDir: out,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/acme/A.scala"}, res.Sources["src/acme/B.java"].Dependencies)
	assert.True(t, w.Healthy())
}

func TestProcess_CrashMakesWorkerUnhealthy(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Boom.scala", "class Boom\ncrash\n")

	w := startWorker(t, newFactory(t, quietLogger(t)))

	_, err := w.Compile(context.Background(), &domain.CompileRequest{
		Target: "boom", BuildRoot: root, Sources: []string{"Boom.scala"}, OutputDir: t.TempDir(),
	})

	require.ErrorIs(t, err, domain.ErrWorkerUnavailable)
	assert.False(t, w.Healthy())

	_, err = w.Compile(context.Background(), &domain.CompileRequest{Target: "boom", BuildRoot: root})
	require.ErrorIs(t, err, domain.ErrWorkerUnavailable)
}

func TestProcess_CancelKillsWorker(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Slow.scala", "class Slow\nhang\n")

	w := startWorker(t, newFactory(t, quietLogger(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := w.Compile(ctx, &domain.CompileRequest{
		Target: "slow", BuildRoot: root, Sources: []string{"Slow.scala"}, OutputDir: t.TempDir(),
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, w.Healthy())
}

func TestProcess_CompilerErrorIsProtocolError(t *testing.T) {
	w := startWorker(t, newFactory(t, quietLogger(t)))

	_, err := w.Compile(context.Background(), &domain.CompileRequest{
		Target: "missing", BuildRoot: t.TempDir(), Sources: []string{"Missing.scala"}, OutputDir: t.TempDir(),
	})

	require.ErrorIs(t, err, domain.ErrWorkerProtocol)
	assert.False(t, w.Healthy())
}

func TestProcess_UnbootstrappedDirectory(t *testing.T) {
	f := newFactory(t, quietLogger(t))

	w, err := f.New(context.Background(), t.TempDir())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = w.Compile(context.Background(), &domain.CompileRequest{Target: "x", BuildRoot: t.TempDir()})
	require.ErrorIs(t, err, domain.ErrWorkerUnavailable)
	assert.False(t, w.Healthy())
}

func TestProcess_CloseIsIdempotent(t *testing.T) {
	w := startWorker(t, newFactory(t, quietLogger(t)))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.False(t, w.Healthy())
}

func TestServe(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "A.scala", "class A\n")

	req := func(id int) string {
		b, err := json.Marshal(map[string]any{
			"id": id,
			"compile": domain.CompileRequest{
				Target: "a", BuildRoot: root, Sources: []string{"A.scala"}, OutputDir: filepath.Join(root, "out"),
			},
		})
		require.NoError(t, err)
		return string(b) + "\n"
	}

	var out bytes.Buffer
	err := worker.Serve(context.Background(), strings.NewReader(req(1)+req(2)), &out, workertest.Compile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var resp struct {
		ID     uint64                `json:"id"`
		Result *domain.CompileResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &resp))
	assert.Equal(t, uint64(2), resp.ID)
	require.NotNil(t, resp.Result)
	assert.Contains(t, resp.Result.Sources, "A.scala")
}

func TestServe_MalformedRequest(t *testing.T) {
	var out bytes.Buffer
	err := worker.Serve(context.Background(), strings.NewReader("not json\n"), &out, workertest.Compile)

	require.ErrorIs(t, err, domain.ErrWorkerProtocol)
	assert.Empty(t, out.String())
}
