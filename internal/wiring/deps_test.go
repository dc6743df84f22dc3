package wiring_test

import (
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/compile"
	_ "go.trai.ch/kiln/internal/wiring"
)

// TestGraftDependencies ensures that the dependency injection graph is valid
// at compile/test time. It checks that every node declaring a dependency
// actually uses it, and every used dependency is declared.
func TestGraftDependencies(t *testing.T) {
	// graft.AssertDepsValid infers the dependency ID from the package name of the interface used in
	// Dep[T], so every ports.* dependency is expected to come from a node named "ports".
	t.Skip("Skipping Graft validation due to static analysis limitation with shared ports package")
	graft.AssertDepsValid(t, "../../internal")
}

func TestGraftNodesResolve(t *testing.T) {
	deps, _, err := graft.ExecuteFor[*compile.Deps](t.Context())
	require.NoError(t, err)
	assert.NotNil(t, deps.Stamper)
	assert.NotNil(t, deps.Packager)
	assert.NotNil(t, deps.Verifier)
	assert.NotNil(t, deps.Logger)
	assert.NotNil(t, deps.Telemetry)

	newFactory, _, err := graft.ExecuteFor[ports.WorkerFactoryProvider](t.Context())
	require.NoError(t, err)
	_, err = newFactory(domain.CompileSettings{})
	require.ErrorIs(t, err, domain.ErrWorkerUnavailable)
	factory, err := newFactory(domain.CompileSettings{Compiler: []string{"kiln-compiler"}})
	require.NoError(t, err)
	assert.NotEmpty(t, factory.Fingerprint())

	newStore, _, err := graft.ExecuteFor[ports.AnalysisStoreFactory](t.Context())
	require.NoError(t, err)
	loaded := newStore(domain.Layout{WorkDir: t.TempDir()}).Load(t.Context(), "src/scala/acme:lib")
	assert.Equal(t, domain.LoadAbsent, loaded.Status)
}
