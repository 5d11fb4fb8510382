package ports

// Hasher defines the interface for computing content hashes.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// HashBytes returns the hex encoded hash of data.
	HashBytes(data []byte) string

	// HashFile returns the hex encoded hash of the file content at path.
	// It returns "", nil if the file does not exist.
	HashFile(path string) (string, error)
}
