// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/creator/internal/adapters/cas"
	_ "go.trai.ch/creator/internal/adapters/config"
	_ "go.trai.ch/creator/internal/adapters/fs"
	_ "go.trai.ch/creator/internal/adapters/logger"
	_ "go.trai.ch/creator/internal/adapters/shell"
	_ "go.trai.ch/creator/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/creator/internal/app"
	_ "go.trai.ch/creator/internal/engine/scheduler"
)
