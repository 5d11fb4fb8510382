package loader

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
)

const (
	blockUnit     = "unit"
	blockImport   = "import"
	blockDefine   = "define"
	blockDefault  = "default"
	blockAppend   = "append"
	blockFunction = "function"
	blockTarget   = "target"
	blockTask     = "task"

	attrWhen = "when"
)

type importBlock struct {
	When hcl.Expression `hcl:"when,optional"`
	As   string         `hcl:"as,optional"`
}

type functionBlock struct {
	When   hcl.Expression `hcl:"when,optional"`
	Params []string       `hcl:"params,optional"`
	Body   hcl.Expression `hcl:"body"`
	Export bool           `hcl:"export,optional"`
}

type buildBlock struct {
	Inputs   hcl.Expression `hcl:"inputs,optional"`
	Outputs  hcl.Expression `hcl:"outputs"`
	Command  hcl.Expression `hcl:"command"`
	Each     bool           `hcl:"each,optional"`
	DefRange hcl.Range      `hcl:",def_range"`
}

type targetBlock struct {
	When     hcl.Expression `hcl:"when,optional"`
	Requires []string       `hcl:"requires,optional"`
	Inputs   hcl.Expression `hcl:"inputs,optional"`
	Outputs  hcl.Expression `hcl:"outputs,optional"`
	Command  hcl.Expression `hcl:"command,optional"`
	Each     bool           `hcl:"each,optional"`
	Builds   []buildBlock   `hcl:"build,block"`
}

type taskBlock struct {
	When     hcl.Expression `hcl:"when,optional"`
	Requires []string       `hcl:"requires,optional"`
	Run      hcl.Expression `hcl:"run,optional"`
}

// script executes the blocks of one unit script in source order.
type script struct {
	loader *Loader
	ctx    context.Context
	unit   *domain.Unit
	scope  *namespace.Scope
	hctx   *hcl.EvalContext
	// failure keeps the typed error of a failed expand() call, which HCL reports as a plain diagnostic.
	failure error
}

func (s *script) run(block *hclsyntax.Block) error {
	if s.hctx == nil {
		s.hctx = s.evalContext()
	}
	loc := location(block.DefRange())

	switch block.Type {
	case blockImport:
		return s.runImport(block, loc)
	case blockDefine, blockDefault, blockAppend:
		return s.runDefine(block, loc)
	case blockFunction:
		return s.runFunction(block, loc)
	case blockTarget:
		return s.runTarget(block, loc)
	case blockTask:
		return s.runTask(block, loc)
	case blockUnit:
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrSyntax, "unit block declared twice"),
			"unit", s.unit.Identity), "location", loc.String())
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrSyntax, "unknown block type "+block.Type),
		"unit", s.unit.Identity), "location", loc.String())
}

func (s *script) runImport(block *hclsyntax.Block, loc domain.Location) error {
	if err := s.labels(block, 1, loc); err != nil {
		return err
	}
	var b importBlock
	if err := s.decode(block, &b); err != nil {
		return err
	}
	if ok, err := s.when(b.When); err != nil || !ok {
		return err
	}

	identity := block.Labels[0]
	alias := b.As
	if alias == "" {
		alias = identity[strings.LastIndexByte(identity, '.')+1:]
	}

	if _, err := s.loader.Load(s.ctx, identity); err != nil {
		return zerr.With(err, "location", loc.String())
	}
	s.scope.Import(identity, alias)
	s.unit.Aliases[alias] = identity
	s.loader.eval.Invalidate()
	return nil
}

func (s *script) runDefine(block *hclsyntax.Block, loc domain.Location) error {
	if err := s.labels(block, 0, loc); err != nil {
		return err
	}
	if len(block.Body.Blocks) > 0 {
		nested := block.Body.Blocks[0]
		return zerr.With(zerr.Wrap(domain.ErrSyntax, "unexpected block "+nested.Type+" in "+block.Type),
			"location", location(nested.DefRange()).String())
	}
	if when, ok := block.Body.Attributes[attrWhen]; ok {
		if ok, err := s.when(when.Expr); err != nil || !ok {
			return err
		}
	}

	for _, attr := range sortedAttributes(block.Body.Attributes) {
		if attr.Name == attrWhen {
			continue
		}
		raw, _, err := s.raw(attr.Expr)
		if err != nil {
			return err
		}
		origin := location(attr.SrcRange)
		switch block.Type {
		case blockDefault:
			if !s.scope.Defined(attr.Name) {
				s.scope.Define(attr.Name, raw, origin)
			}
		case blockAppend:
			s.scope.Append(attr.Name, raw, origin)
		default:
			s.scope.Define(attr.Name, raw, origin)
		}
	}
	s.loader.eval.Invalidate()
	return nil
}

func (s *script) runFunction(block *hclsyntax.Block, loc domain.Location) error {
	if err := s.labels(block, 1, loc); err != nil {
		return err
	}
	var b functionBlock
	if err := s.decode(block, &b); err != nil {
		return err
	}
	if ok, err := s.when(b.When); err != nil || !ok {
		return err
	}
	body, _, err := s.raw(b.Body)
	if err != nil {
		return err
	}
	s.scope.DefineFunction(&namespace.Function{
		Name:     block.Labels[0],
		Params:   b.Params,
		Body:     body,
		Exported: b.Export,
		Origin:   loc,
	})
	s.loader.eval.Invalidate()
	return nil
}

func (s *script) runTarget(block *hclsyntax.Block, loc domain.Location) error {
	if err := s.labels(block, 1, loc); err != nil {
		return err
	}
	var b targetBlock
	if err := s.decode(block, &b); err != nil {
		return err
	}
	if ok, err := s.when(b.When); err != nil || !ok {
		return err
	}

	target := &domain.Target{Name: block.Labels[0], Requires: b.Requires, Location: loc}

	outputs, hasOutputs, err := s.raw(b.Outputs)
	if err != nil {
		return err
	}
	if hasOutputs {
		tmpl, err := s.template(b.Inputs, outputs, b.Command, b.Each, loc)
		if err != nil {
			return err
		}
		target.Templates = append(target.Templates, tmpl)
	}
	for _, build := range b.Builds {
		outputs, _, err := s.raw(build.Outputs)
		if err != nil {
			return err
		}
		tmpl, err := s.template(build.Inputs, outputs, build.Command, build.Each, location(build.DefRange))
		if err != nil {
			return err
		}
		target.Templates = append(target.Templates, tmpl)
	}

	return s.unit.AddTarget(target)
}

func (s *script) template(
	inputs hcl.Expression, outputs string, command hcl.Expression, each bool, loc domain.Location,
) (domain.BuildTemplate, error) {
	in, _, err := s.raw(inputs)
	if err != nil {
		return domain.BuildTemplate{}, err
	}
	cmd, hasCommand, err := s.raw(command)
	if err != nil {
		return domain.BuildTemplate{}, err
	}
	if !hasCommand {
		return domain.BuildTemplate{}, zerr.With(zerr.Wrap(domain.ErrSyntax, "build needs a command"),
			"location", loc.String())
	}
	return domain.BuildTemplate{Inputs: in, Outputs: outputs, Command: cmd, Each: each, Location: loc}, nil
}

func (s *script) runTask(block *hclsyntax.Block, loc domain.Location) error {
	if err := s.labels(block, 1, loc); err != nil {
		return err
	}
	var b taskBlock
	if err := s.decode(block, &b); err != nil {
		return err
	}
	if ok, err := s.when(b.When); err != nil || !ok {
		return err
	}
	lines, err := s.lines(b.Run)
	if err != nil {
		return err
	}
	return s.unit.AddTask(&domain.Task{
		Name:     block.Labels[0],
		Requires: b.Requires,
		Body:     lines,
		Location: loc,
	})
}

func (s *script) labels(block *hclsyntax.Block, want int, loc domain.Location) error {
	if len(block.Labels) == want {
		return nil
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrSyntax, block.Type+" block has the wrong number of labels"),
		"unit", s.unit.Identity), "location", loc.String())
}

func (s *script) decode(block *hclsyntax.Block, into any) error {
	if diags := gohcl.DecodeBody(block.Body, s.hctx, into); diags.HasErrors() {
		return s.diagnostics(diags)
	}
	return nil
}

// when evaluates an optional condition. A missing condition is true.
func (s *script) when(expr hcl.Expression) (bool, error) {
	if expr == nil {
		return true, nil
	}
	v, err := s.value(expr)
	if err != nil {
		return false, err
	}
	if v.IsNull() {
		return true, nil
	}
	if v.Type() != cty.Bool {
		return false, zerr.With(zerr.Wrap(domain.ErrSyntax, "when must be a bool"),
			"location", location(expr.Range()).String())
	}
	return v.True(), nil
}

// raw evaluates an HCL expression into the raw macro text it defines.
// The second result is false when the attribute was not set.
func (s *script) raw(expr hcl.Expression) (string, bool, error) {
	if expr == nil {
		return "", false, nil
	}
	v, err := s.value(expr)
	if err != nil {
		return "", false, err
	}
	if v.IsNull() {
		return "", false, nil
	}
	raw, err := flatten(v)
	if err != nil {
		return "", false, zerr.With(err, "location", location(expr.Range()).String())
	}
	return strings.Join(raw, " "), true, nil
}

// lines evaluates a string or a list of strings into one raw macro per element.
func (s *script) lines(expr hcl.Expression) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	v, err := s.value(expr)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	lines, err := flatten(v)
	if err != nil {
		return nil, zerr.With(err, "location", location(expr.Range()).String())
	}
	return lines, nil
}

func (s *script) value(expr hcl.Expression) (cty.Value, error) {
	s.failure = nil
	v, diags := expr.Value(s.hctx)
	if diags.HasErrors() {
		return cty.NilVal, s.diagnostics(diags)
	}
	return v, nil
}

func (s *script) diagnostics(diags hcl.Diagnostics) error {
	if s.failure != nil {
		err := s.failure
		s.failure = nil
		return err
	}
	return zerr.With(diagnosticsError(diags), "unit", s.unit.Identity)
}
