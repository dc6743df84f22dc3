package analysis

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the analysis store factory node.
const NodeID graft.ID = "adapter.analysis_store"

func init() {
	graft.Register(graft.Node[ports.AnalysisStoreFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.AnalysisStoreFactory, error) {
			return func(layout domain.Layout) ports.AnalysisStore {
				return NewStore(layout)
			}, nil
		},
	})
}
