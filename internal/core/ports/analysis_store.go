// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// AnalysisStore persists one incremental analysis record per target.
//
//go:generate mockgen -source=analysis_store.go -destination=mocks/mock_analysis_store.go -package=mocks
type AnalysisStore interface {
	// Load reads the record of a target. A missing record is Absent and an unreadable one is Corrupt;
	// neither is returned as an error.
	Load(ctx context.Context, target string) domain.LoadResult

	// Commit atomically replaces the record of analysis.Target.
	Commit(ctx context.Context, analysis *domain.Analysis) error

	// Export renders the record of a target in the portable text format.
	Export(ctx context.Context, target string) ([]byte, error)

	// ExportTo writes the portable export next to the record and returns its path.
	ExportTo(ctx context.Context, target string) (string, error)

	// Delete removes the record and its portable export. A missing record is not an error.
	Delete(ctx context.Context, target string) error
}

// AnalysisStoreFactory opens the analysis store of a workdir layout.
type AnalysisStoreFactory func(layout domain.Layout) AnalysisStore
