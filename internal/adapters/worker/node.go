package worker

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the worker factory provider node.
const NodeID graft.ID = "adapter.worker"

func init() {
	graft.Register(graft.Node[ports.WorkerFactoryProvider]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.WorkerFactoryProvider, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func(settings domain.CompileSettings) (ports.WorkerFactory, error) {
				return NewFactory(settings.Compiler, log)
			}, nil
		},
	})
}
