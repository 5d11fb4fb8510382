// Package planner turns loaded units into a validated graph with concrete build edges.
package planner

import (
	"context"
	"path/filepath"
	"strings"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
)

// Options describes the workspace a plan is made for.
type Options struct {
	Root      string
	BuildFile string
}

// Planner materializes the build edges of every target for one pass.
type Planner struct {
	eval  *macro.Evaluator
	store *namespace.Store
}

// New creates a planner that expands templates with eval against the scopes in store.
func New(eval *macro.Evaluator, store *namespace.Store) *Planner {
	return &Planner{eval: eval, store: store}
}

// Plan validates the graph and materializes the edges of every target in dependency order.
// main is the entry unit; its targets are the defaults and it may override the build file
// with the NinjaOut variable.
func (p *Planner) Plan(ctx context.Context, graph *domain.Graph, main *domain.Unit, opts Options) (*domain.Plan, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	pass := p.eval.Pass()
	for node := range graph.Walk() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if node.Kind != domain.KindTarget {
			continue
		}
		edges, err := p.materialize(graph, node, pass)
		if err != nil {
			return nil, err
		}
		node.Target.SetEdges(pass, edges)
	}

	buildFile, err := p.buildFile(main, opts.BuildFile)
	if err != nil {
		return nil, err
	}

	return &domain.Plan{
		Graph:     graph,
		Main:      main,
		Pass:      pass,
		Root:      opts.Root,
		BuildFile: buildFile,
	}, nil
}

func (p *Planner) materialize(graph *domain.Graph, node *domain.Node, pass uint64) ([]domain.BuildEdge, error) {
	target := node.Target
	if edges, ok := target.Edges(pass); ok {
		return edges, nil
	}

	scope, ok := p.store.Unit(target.Unit)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnitNotFound, "no scope for "+target.Unit), "unit", target.Unit)
	}
	implicit := p.implicitInputs(graph, node, pass)

	var edges []domain.BuildEdge
	for _, tmpl := range target.Templates {
		var (
			built []domain.BuildEdge
			err   error
		)
		if tmpl.Each {
			built, err = p.buildEach(scope, target, tmpl)
		} else {
			built, err = p.build(scope, target, tmpl)
		}
		if err != nil {
			return nil, zerr.With(err, "target", target.ID().String())
		}
		for i := range built {
			built[i].Implicit = implicit
		}
		edges = append(edges, built...)
	}
	return edges, nil
}

// build expands a template into one aggregate edge with $< bound to all inputs and $@ to all outputs.
func (p *Planner) build(scope *namespace.Scope, target *domain.Target, tmpl domain.BuildTemplate) ([]domain.BuildEdge, error) {
	inputs, err := p.eval.Expand(scope, tmpl.Inputs, macro.Sequence, tmpl.Location)
	if err != nil {
		return nil, err
	}
	outputs, _, err := p.eval.ExpandWith(scope, tmpl.Outputs, macro.Sequence, tmpl.Location,
		&macro.Bindings{Inputs: inputs})
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrEmptyOutputs, "cannot build "+target.ID().String()),
			"location", tmpl.Location.String())
	}
	edge, err := p.edge(scope, target, tmpl, inputs, outputs)
	if err != nil {
		return nil, err
	}
	return []domain.BuildEdge{edge}, nil
}

// buildEach expands a template into one edge per input.
//
// When the output template does not refer to $<, its expansion is paired positionally with
// the inputs. Otherwise it is expanded once per input with $< bound to that input alone and
// must yield exactly one output each time.
func (p *Planner) buildEach(scope *namespace.Scope, target *domain.Target, tmpl domain.BuildTemplate) ([]domain.BuildEdge, error) {
	inputs, err := p.eval.Expand(scope, tmpl.Inputs, macro.Sequence, tmpl.Location)
	if err != nil {
		return nil, err
	}
	outputs, perInput, err := p.eval.ExpandWith(scope, tmpl.Outputs, macro.Sequence, tmpl.Location,
		&macro.Bindings{Inputs: inputs})
	if err != nil {
		return nil, err
	}

	if perInput {
		outputs = make([]string, 0, len(inputs))
		for _, in := range inputs {
			out, _, err := p.eval.ExpandWith(scope, tmpl.Outputs, macro.Sequence, tmpl.Location,
				&macro.Bindings{Inputs: []string{in}})
			if err != nil {
				return nil, err
			}
			if len(out) != 1 {
				return nil, lengthMismatch(target, tmpl, 1, len(out))
			}
			outputs = append(outputs, out[0])
		}
	}
	if len(outputs) != len(inputs) {
		return nil, lengthMismatch(target, tmpl, len(inputs), len(outputs))
	}

	edges := make([]domain.BuildEdge, 0, len(inputs))
	for i := range inputs {
		edge, err := p.edge(scope, target, tmpl, inputs[i:i+1], outputs[i:i+1])
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func (p *Planner) edge(
	scope *namespace.Scope, target *domain.Target, tmpl domain.BuildTemplate, inputs, outputs []string,
) (domain.BuildEdge, error) {
	command, _, err := p.eval.ExpandWith(scope, tmpl.Command, macro.Joined, tmpl.Location,
		&macro.Bindings{Inputs: inputs, Outputs: outputs, HasOutputs: true})
	if err != nil {
		return domain.BuildEdge{}, err
	}
	return domain.BuildEdge{
		Target:  target.ID(),
		Inputs:  inputs,
		Outputs: outputs,
		Command: strings.Join(command, " "),
	}, nil
}

// implicitInputs returns the outputs of the targets the node requires directly.
func (p *Planner) implicitInputs(graph *domain.Graph, node *domain.Node, pass uint64) []string {
	seen := make(map[string]struct{})
	var implicit []string
	for _, id := range node.Deps {
		dep, ok := graph.Node(id)
		if !ok || dep.Kind != domain.KindTarget {
			continue
		}
		for _, out := range dep.Target.Outputs(pass) {
			if _, dup := seen[out]; dup {
				continue
			}
			seen[out] = struct{}{}
			implicit = append(implicit, out)
		}
	}
	return implicit
}

func (p *Planner) buildFile(main *domain.Unit, fallback string) (string, error) {
	if fallback == "" {
		fallback = domain.DefaultBuildFile
	}
	if main == nil {
		return fallback, nil
	}
	scope, ok := p.store.Unit(main.Identity)
	if !ok {
		return fallback, nil
	}
	v, ok := scope.Own(domain.NinjaOutVariable)
	if !ok {
		return fallback, nil
	}
	values, err := p.eval.Value(v)
	if err != nil {
		return "", err
	}
	if len(values) != 1 {
		return "", zerr.With(zerr.Wrap(domain.ErrSyntax, domain.NinjaOutVariable+" must expand to a single path"),
			"location", v.Origin.String())
	}
	return filepath.FromSlash(values[0]), nil
}

func lengthMismatch(target *domain.Target, tmpl domain.BuildTemplate, inputs, outputs int) error {
	err := zerr.Wrap(domain.ErrLengthMismatch, "cannot pair inputs and outputs of "+target.ID().String())
	err = zerr.With(err, "inputs", inputs)
	err = zerr.With(err, "outputs", outputs)
	return zerr.With(err, "location", tmpl.Location.String())
}
