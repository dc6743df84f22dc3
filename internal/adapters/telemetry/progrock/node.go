package progrock

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/vito/progrock"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID identifies the progress recorder shared by the orchestrator and every compile task.
const NodeID graft.ID = "adapter.progress"

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Telemetry, error) {
			// Vertices go to an in-memory tape; compile output reaches the terminal through the logger.
			return NewRecorder(progrock.NewTape()), nil
		},
	})
}
