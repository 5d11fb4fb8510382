package ports

import "go.trai.ch/creator/internal/core/domain"

// StampStore defines the interface for storing and retrieving export stamps.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type StampStore interface {
	// Get retrieves the stamp for a build file below root.
	// Returns nil, nil if not found.
	Get(root, buildFile string) (*domain.ExportStamp, error)

	// Put stores the stamp below root.
	Put(root string, stamp domain.ExportStamp) error
}
