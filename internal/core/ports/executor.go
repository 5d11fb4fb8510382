// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/creator/internal/core/domain"
)

// Executor defines the interface for running external processes.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command and blocks until it exits.
	//
	// Output is streamed to the logger and additionally copied to stdout and stderr when they are not nil.
	// A non-zero exit is returned as an error carrying "exit_code" metadata.
	// Cancelling ctx kills the process.
	Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
