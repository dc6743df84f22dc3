package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// SourceStamper computes staleness stamps for source files.
//
//go:generate mockgen -source=stamper.go -destination=mocks/mock_stamper.go -package=mocks
type SourceStamper interface {
	// Stamp returns a stamp for each source, keyed by the given root-relative path.
	Stamp(ctx context.Context, root string, sources []string) (map[string]domain.Stamp, error)
}
