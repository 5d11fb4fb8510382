// Package app implements the application layer for creator.
package app

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/creator/internal/adapters/telemetry" //nolint:depguard // Progress reporting is wired in the app layer
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/scheduler"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	locator      ports.UnitLocator
	snapshotter  ports.Snapshotter
	hasher       ports.Hasher
	store        ports.StampStore
	writer       ports.FileWriter
	cleaner      ports.Cleaner
	logger       ports.Logger
	tracer       ports.Tracer
	scheduler    *scheduler.Scheduler
	getenv       func(string) string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	locator ports.UnitLocator,
	snapshotter ports.Snapshotter,
	hasher ports.Hasher,
	store ports.StampStore,
	writer ports.FileWriter,
	cleaner ports.Cleaner,
	log ports.Logger,
	tracer ports.Tracer,
	sched *scheduler.Scheduler,
) *App {
	return &App{
		configLoader: loader,
		locator:      locator,
		snapshotter:  snapshotter,
		hasher:       hasher,
		store:        store,
		writer:       writer,
		cleaner:      cleaner,
		logger:       log,
		tracer:       tracer,
		scheduler:    sched,
		getenv:       osGetenv,
	}
}

// WithEnv replaces the environment lookup used for CREATORPATH.
// This is primarily used for testing.
func (a *App) WithEnv(getenv func(string) string) *App {
	a.getenv = getenv
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	LoadOptions
	// NoExport skips writing the build file.
	NoExport bool
	// Dry logs the planned steps without executing them.
	Dry bool
	// NinjaArgs are passed to ninja after the configured arguments.
	NinjaArgs []string
	// Progress receives one line per started and finished step. Nil disables it.
	Progress io.Writer
}

// Run exports the build file and runs the named targets and tasks.
// Without names the default targets of the entry unit are built.
func (a *App) Run(ctx context.Context, names []string, opts RunOptions) error {
	var bridge *telemetry.Bridge
	if opts.Progress != nil {
		bridge = telemetry.NewBridge(opts.Progress)
		shutdown := setupOTel(bridge)
		defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()
	}

	ws, err := a.prepare(ctx, opts.LoadOptions)
	if err != nil {
		return err
	}

	if !opts.NoExport {
		if err := a.export(ctx, ws); err != nil {
			return err
		}
	}

	steps, err := a.scheduler.Plan(ws.plan, names)
	if err != nil {
		return err
	}

	if opts.Dry {
		for _, step := range steps {
			a.logger.Info(step.String())
		}
		return nil
	}

	if bridge != nil {
		descriptions := make([]string, len(steps))
		for i, step := range steps {
			descriptions[i] = step.String()
		}
		bridge.OnPlanEmit(descriptions)
	}

	return a.scheduler.Run(ctx, scheduler.Run{
		Plan:  ws.plan,
		Steps: steps,
		Eval:  ws.eval,
		Store: ws.store,
		Ninja: scheduler.Options{
			Binary: ws.config.NinjaBinary,
			Args:   append(append([]string{}, ws.config.NinjaArgs...), opts.NinjaArgs...),
		},
	})
}

// ExportOptions configuration for the Export method.
type ExportOptions struct {
	LoadOptions
	// Output overrides the build file path. Relative paths are resolved against Dir.
	Output string
}

// Export writes the build file without running anything.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	ws, err := a.prepare(ctx, opts.LoadOptions)
	if err != nil {
		return err
	}
	if opts.Output != "" {
		ws.plan.BuildFile = ws.relative(ws.resolve(opts.Output))
	}
	return a.export(ctx, ws)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	LoadOptions
}

// Clean removes the outputs of the named targets.
// Without names it removes the outputs of every target, the build file and the export state.
func (a *App) Clean(ctx context.Context, names []string, opts CleanOptions) error {
	ws, err := a.prepare(ctx, opts.LoadOptions)
	if err != nil {
		return err
	}

	paths, err := ws.outputs(names)
	if err != nil {
		return err
	}

	removed, err := a.cleaner.Clean(ws.config.Root, paths)
	if err != nil {
		return err
	}
	a.logger.Info(cleanSummary(removed))
	return nil
}

func cleanSummary(n int) string {
	switch n {
	case 0:
		return "nothing to clean"
	case 1:
		return "removed 1 path"
	default:
		return fmt.Sprintf("removed %d paths", n)
	}
}

// setupOTel configures the OpenTelemetry SDK with the progress bridge.
// It returns the shutdown function of the installed provider.
func setupOTel(bridge *telemetry.Bridge) func(context.Context) error {
	// All started spans are reported to the bridge.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)

	// Register it as the global provider.
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
