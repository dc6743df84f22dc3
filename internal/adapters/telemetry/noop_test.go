package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

func TestNoOp(t *testing.T) {
	ctx, v := telemetry.NoOp{}.Record(context.Background(), "src/acme:acme")

	fromCtx, ok := ports.VertexFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, v, fromCtx)

	n, err := v.Stdout().Write([]byte("compiled 3 sources\n"))
	require.NoError(t, err)
	assert.Equal(t, 19, n)
	v.Log(domain.LogLevelWarn, "ignored")
	v.Cached()
	v.Complete(nil)
	assert.NoError(t, telemetry.NoOp{}.Close())
}
