package ports

// FileSnapshot answers filesystem queries for one export pass.
// Repeated queries return the same result even if the filesystem changes in between.
type FileSnapshot interface {
	// Glob returns the root-relative, lexicographically sorted matches of a root-relative pattern.
	Glob(pattern string) ([]string, error)
}

// Snapshotter creates a fresh FileSnapshot for each pass.
//
//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks -source=resolver.go
type Snapshotter interface {
	// Snapshot starts a new snapshot rooted at root.
	Snapshot(root string) FileSnapshot
}

// UnitLocator finds unit scripts on disk.
type UnitLocator interface {
	// Locate returns the path of the unit script declaring identity.
	Locate(searchPaths []string, identity string) (string, error)

	// Discover returns the unit scripts directly inside dir, sorted by path.
	Discover(dir string) ([]string, error)
}
