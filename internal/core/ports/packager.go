package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// Packager places compiled output in its final location.
//
//go:generate mockgen -source=packager.go -destination=mocks/mock_packager.go -package=mocks
type Packager interface {
	// Promote moves a successful attempt's staged output into the target class directory.
	Promote(ctx context.Context, req *domain.PromoteRequest) error

	// Jar archives classesDir into jarPath deterministically.
	Jar(ctx context.Context, classesDir, jarPath string) error

	// Collect lists the files under classesDir keyed by file name.
	Collect(classesDir string) (domain.Products, error)
}
