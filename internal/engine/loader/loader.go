// Package loader executes unit scripts and registers their declarations.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
)

// Options configures where unit scripts are searched.
type Options struct {
	// Root is the workspace root. Unit directories and locations are relative to it.
	Root string
	// SearchPaths are scanned for unit scripts when a unit is imported by identity.
	SearchPaths []string
}

// Loader loads unit scripts into a namespace.Store and a domain.Graph.
// A Loader is used for a single pass and is not safe for concurrent use.
type Loader struct {
	locator ports.UnitLocator
	store   *namespace.Store
	eval    *macro.Evaluator
	graph   *domain.Graph
	parser  *hclparse.Parser
	opts    Options

	loading []string
}

// New creates a loader that registers units in store and evaluates macros with eval.
func New(locator ports.UnitLocator, store *namespace.Store, eval *macro.Evaluator, opts Options) *Loader {
	if opts.Root == "" {
		opts.Root = "."
	}
	if abs, err := filepath.Abs(opts.Root); err == nil {
		opts.Root = abs
	}
	return &Loader{
		locator: locator,
		store:   store,
		eval:    eval,
		graph:   domain.NewGraph(),
		parser:  hclparse.NewParser(),
		opts:    opts,
	}
}

// Graph returns the units loaded so far, in completion order.
func (l *Loader) Graph() *domain.Graph {
	return l.graph
}

// Store returns the namespace the units were loaded into.
func (l *Loader) Store() *namespace.Store {
	return l.store
}

// Load loads the unit with the given identity and, first, every unit it imports.
// Loading an identity that is already loaded returns the existing unit.
func (l *Loader) Load(ctx context.Context, identity string) (*domain.Unit, error) {
	if u, ok := l.graph.Unit(identity); ok {
		return u, nil
	}
	if err := l.checkCycle(identity); err != nil {
		return nil, err
	}

	path, err := l.locator.Locate(l.opts.SearchPaths, identity)
	if err != nil {
		return nil, err
	}
	return l.load(ctx, path, identity)
}

// LoadFile loads the unit script at path. It is used for the entry unit.
func (l *Loader) LoadFile(ctx context.Context, path string) (*domain.Unit, error) {
	return l.load(ctx, path, "")
}

func (l *Loader) checkCycle(identity string) error {
	idx := slices.Index(l.loading, identity)
	if idx < 0 {
		return nil
	}
	chain := append(slices.Clone(l.loading[idx:]), identity)
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrCyclicImport, "cannot import "+identity),
		"unit", identity), "cycle", strings.Join(chain, " -> "))
}

func (l *Loader) load(ctx context.Context, path, expect string) (*domain.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnitReadFailed, err.Error()), "path", path)
	}
	display := l.relative(abs)

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnitReadFailed, err.Error()), "path", display)
	}

	file, diags := l.parser.ParseHCL(src, display)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrSyntax, "unit script is not native HCL"), "path", display)
	}
	if len(body.Attributes) > 0 {
		attr := firstAttribute(body.Attributes)
		return nil, zerr.With(zerr.Wrap(domain.ErrSyntax, "unexpected top-level attribute "+attr.Name),
			"location", location(attr.SrcRange).String())
	}

	identity, err := identityOf(body, display)
	if err != nil {
		return nil, err
	}
	if err := l.checkCycle(identity); err != nil {
		return nil, err
	}
	if expect != "" && identity != expect {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrIdentityMismatch, "cannot load "+expect),
			"unit", identity), "location", display)
	}
	if existing, loaded := l.graph.Unit(identity); loaded {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrDuplicateUnitName, "cannot load "+display),
			"unit", identity), "location", existing.Path)
	}

	dir := l.relative(filepath.Dir(abs))
	scope, err := l.store.NewUnitScope(identity, dir)
	if err != nil {
		return nil, zerr.With(err, "location", display)
	}

	unit := domain.NewUnit(identity, display, dir)
	unit.Location = location(body.Blocks[0].DefRange())

	l.loading = append(l.loading, identity)
	defer func() { l.loading = l.loading[:len(l.loading)-1] }()

	s := &script{loader: l, ctx: ctx, unit: unit, scope: scope}
	for _, block := range body.Blocks[1:] {
		if err := s.run(block); err != nil {
			return nil, err
		}
	}

	if err := l.graph.AddUnit(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// relative returns path relative to the workspace root, using forward slashes.
// Paths outside the root are returned unchanged.
func (l *Loader) relative(path string) string {
	rel, err := filepath.Rel(l.opts.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func identityOf(body *hclsyntax.Body, path string) (string, error) {
	if len(body.Blocks) == 0 || body.Blocks[0].Type != blockUnit {
		loc := domain.Location{File: path, Line: 1}
		if len(body.Blocks) > 0 {
			loc = location(body.Blocks[0].DefRange())
		}
		return "", zerr.With(zerr.Wrap(domain.ErrMissingIdentity, "the first block must be unit"), "location", loc.String())
	}
	block := body.Blocks[0]
	if len(block.Labels) != 1 || block.Labels[0] == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrMissingIdentity, "unit block needs exactly one label"),
			"location", location(block.DefRange()).String())
	}
	return block.Labels[0], nil
}

func location(r hcl.Range) domain.Location {
	return domain.Location{File: r.Filename, Line: r.Start.Line}
}

func diagnosticsError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		err := zerr.Wrap(domain.ErrSyntax, msg)
		if d.Subject != nil {
			err = zerr.With(err, "location", location(*d.Subject).String())
		}
		return err
	}
	return zerr.Wrap(domain.ErrSyntax, diags.Error())
}

func firstAttribute(attrs hclsyntax.Attributes) *hclsyntax.Attribute {
	sorted := sortedAttributes(attrs)
	return sorted[0]
}

// sortedAttributes returns attributes in source order.
func sortedAttributes(attrs hclsyntax.Attributes) []*hclsyntax.Attribute {
	out := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *hclsyntax.Attribute) int {
		return a.SrcRange.Start.Byte - b.SrcRange.Start.Byte
	})
	return out
}
