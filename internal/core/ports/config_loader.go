package ports

import "go.trai.ch/creator/internal/core/domain"

// ConfigLoader defines the interface for loading the workspace configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the workspace configuration starting at cwd.
	// A missing configuration file yields the defaults rooted at cwd.
	Load(cwd string) (*domain.Config, error)
}
