package app

import "go.trai.ch/creator/internal/core/ports"

// Components bundles the application with the logger the command line configures.
type Components struct {
	App    *App
	Logger ports.Logger
}

// NewComponents creates a new Components.
func NewComponents(app *App, log ports.Logger) *Components {
	return &Components{App: app, Logger: log}
}
