package ports

// Cleaner removes build outputs.
//
//go:generate mockgen -source=cleaner.go -destination=mocks/mock_cleaner.go -package=mocks
type Cleaner interface {
	// Clean removes the root-relative paths below root and returns how many existed.
	// Missing paths are not an error.
	Clean(root string, paths []string) (int, error)
}
