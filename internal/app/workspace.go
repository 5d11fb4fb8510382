package app

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/loader"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/creator/internal/engine/planner"
	"go.trai.ch/zerr"
)

// LoadOptions selects the workspace, the entry unit and command line overrides.
type LoadOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Unit is the identity or script path of the entry unit.
	// Empty means the single unit script in Dir.
	Unit string
	// SearchPaths are searched for imported units before the configured ones.
	SearchPaths []string
	// Defines are evaluated global values. They override the configuration.
	Defines map[string]string
	// Macros are raw global macros. They override the configuration.
	Macros map[string]string
}

// workspace is the state of one load, plan and expand pass.
type workspace struct {
	cwd    string
	config *domain.Config
	store  *namespace.Store
	eval   *macro.Evaluator
	plan   *domain.Plan
}

func osGetenv(key string) string {
	return os.Getenv(key)
}

func (a *App) prepare(ctx context.Context, opts LoadOptions) (*workspace, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	cwd, err := filepath.Abs(dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}

	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	ws := &workspace{cwd: cwd, config: cfg}
	ws.store = namespace.NewStore(a.storeOptions(cfg, opts)...)
	pass := ws.store.NextPass()
	snapshot := a.snapshotter.Snapshot(cfg.Root)
	ws.eval = macro.New(snapshot)
	ws.eval.Reset(pass, snapshot)

	ld := loader.New(a.locator, ws.store, ws.eval, loader.Options{
		Root:        cfg.Root,
		SearchPaths: a.searchPaths(ws, opts.SearchPaths),
	})

	main, err := a.load(ctx, ws, ld, opts.Unit)
	if err != nil {
		return nil, err
	}

	ws.eval.Reset(ws.store.NextPass(), snapshot)

	planCtx, span := a.tracer.Start(ctx, "plan", ports.WithAttribute("creator.entry_unit", main.Identity))
	defer span.End()

	ws.plan, err = planner.New(ws.eval, ws.store).Plan(planCtx, ld.Graph(), main, planner.Options{
		Root:      cfg.Root,
		BuildFile: cfg.BuildFile,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ws, nil
}

func (a *App) storeOptions(cfg *domain.Config, opts LoadOptions) []namespace.Option {
	defines := maps.Clone(cfg.Defines)
	if defines == nil {
		defines = make(map[string]string)
	}
	maps.Copy(defines, opts.Defines)

	macros := maps.Clone(cfg.Macros)
	if macros == nil {
		macros = make(map[string]string)
	}
	maps.Copy(macros, opts.Macros)

	storeOpts := []namespace.Option{
		namespace.WithGlobals(defines),
		namespace.WithMacros(macros),
	}
	if cfg.EnvironmentFallback {
		storeOpts = append(storeOpts, namespace.WithOSEnvironment())
	}
	return storeOpts
}

// searchPaths orders the unit search path: command line, configuration,
// CREATORPATH, then the workspace root.
func (a *App) searchPaths(ws *workspace, extra []string) []string {
	var paths []string
	for _, p := range extra {
		paths = append(paths, ws.resolve(p))
	}
	paths = append(paths, ws.config.SearchPaths...)
	if env := a.getenv(domain.SearchPathEnv); env != "" {
		for _, p := range filepath.SplitList(env) {
			if p != "" {
				paths = append(paths, ws.resolve(p))
			}
		}
	}
	paths = append(paths, ws.config.Root)

	seen := make(map[string]bool, len(paths))
	return slices.DeleteFunc(paths, func(p string) bool {
		if seen[p] {
			return true
		}
		seen[p] = true
		return false
	})
}

func (a *App) load(ctx context.Context, ws *workspace, ld *loader.Loader, unit string) (*domain.Unit, error) {
	ctx, span := a.tracer.Start(ctx, "load")
	defer span.End()

	main, err := a.loadEntry(ctx, ws, ld, unit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("creator.units", len(ld.Graph().Units()))
	return main, nil
}

func (a *App) loadEntry(ctx context.Context, ws *workspace, ld *loader.Loader, unit string) (*domain.Unit, error) {
	if unit != "" {
		if strings.HasSuffix(unit, domain.UnitFileExt) {
			return ld.LoadFile(ctx, ws.resolve(unit))
		}
		return ld.Load(ctx, unit)
	}

	scripts, err := a.locator.Discover(ws.cwd)
	if err != nil {
		return nil, err
	}
	switch len(scripts) {
	case 0:
		return nil, zerr.With(zerr.Wrap(domain.ErrNoEntryUnit, "cannot choose the entry unit"), "path", ws.cwd)
	case 1:
		return ld.LoadFile(ctx, scripts[0])
	default:
		names := make([]string, len(scripts))
		for i, s := range scripts {
			names[i] = filepath.Base(s)
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrAmbiguousEntryUnit, "cannot choose the entry unit"),
			"units", strings.Join(names, ", "))
	}
}

// resolve makes path absolute against the working directory.
func (ws *workspace) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(ws.cwd, path)
}

// relative returns path relative to the workspace root when it lies inside it.
func (ws *workspace) relative(path string) string {
	rel, err := filepath.Rel(ws.config.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// buildFilePath returns the absolute path of the build file.
func (ws *workspace) buildFilePath() string {
	if filepath.IsAbs(ws.plan.BuildFile) {
		return ws.plan.BuildFile
	}
	return filepath.Join(ws.config.Root, ws.plan.BuildFile)
}

// outputs returns the root-relative paths that clean removes for names.
func (ws *workspace) outputs(names []string) ([]string, error) {
	pass := ws.plan.Pass
	if len(names) == 0 {
		var paths []string
		for node := range ws.plan.Graph.Walk() {
			if node.Kind == domain.KindTarget {
				paths = append(paths, node.Target.Outputs(pass)...)
			}
		}
		paths = append(paths, ws.relative(ws.buildFilePath()), domain.CreatorDirName)
		return paths, nil
	}

	var paths []string
	for _, name := range names {
		node, ok := ws.plan.Lookup(name)
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrNodeNotFound, "cannot clean "+name), "name", name)
		}
		if node.Kind == domain.KindTarget {
			paths = append(paths, node.Target.Outputs(pass)...)
		}
	}
	return paths, nil
}
