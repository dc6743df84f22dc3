package fs

import (
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.OutputVerifier = (*Verifier)(nil)

// Verifier checks the outputs an analysis record lists against a class directory.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyOutputs reports whether every output is a regular file below root. Outputs are slash-separated
// and relative; one that is absolute or climbs out of root never verifies.
func (v *Verifier) VerifyOutputs(root string, outputs []string) (bool, error) {
	for _, output := range outputs {
		rel := filepath.FromSlash(output)
		if !filepath.IsLocal(rel) {
			return false, nil
		}
		path := filepath.Join(root, rel)
		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			return false, nil
		case err != nil:
			return false, zerr.With(zerr.Wrap(err, "failed to stat output"), "path", path)
		case !info.Mode().IsRegular():
			return false, nil
		}
	}
	return true, nil
}
