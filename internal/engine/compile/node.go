package compile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/fs"                 //nolint:depguard // Wired in engine wiring
	"go.trai.ch/kiln/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/kiln/internal/adapters/packager"           //nolint:depguard // Wired in engine wiring
	"go.trai.ch/kiln/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/kiln/internal/core/ports"
)

// NodeID is the unique identifier for the compile dependencies Graft node.
const NodeID graft.ID = "engine.compile"

func init() {
	graft.Register(graft.Node[*Deps]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.StamperNodeID,
			fs.VerifierNodeID,
			packager.NodeID,
			logger.NodeID,
			progrock.NodeID,
		},
		Run: func(ctx context.Context) (*Deps, error) {
			stamper, err := graft.Dep[ports.SourceStamper](ctx)
			if err != nil {
				return nil, err
			}

			verifier, err := graft.Dep[ports.OutputVerifier](ctx)
			if err != nil {
				return nil, err
			}

			pkg, err := graft.Dep[ports.Packager](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			return &Deps{
				Stamper:   stamper,
				Packager:  pkg,
				Verifier:  verifier,
				Logger:    log,
				Telemetry: telemetry,
			}, nil
		},
	})
}
