package ports

// OutputVerifier checks recorded outputs against the file system.
//
//go:generate mockgen -source=verifier.go -destination=mocks/mock_verifier.go -package=mocks
type OutputVerifier interface {
	// VerifyOutputs reports whether every output, relative to root, exists.
	VerifyOutputs(root string, outputs []string) (bool, error)
}
