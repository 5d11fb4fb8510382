// Package scheduler turns requested targets and tasks into steps and runs them.
package scheduler

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/kballard/go-shellquote"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/macro"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
)

// Options configures how build steps invoke the build executor.
type Options struct {
	// Binary is the build executor, ninja unless overridden.
	Binary string
	// Args are passed to the executor before the phony names.
	Args []string
}

// Run is everything needed to execute planned steps.
type Run struct {
	Plan  *domain.Plan
	Steps []Step
	Eval  *macro.Evaluator
	Store *namespace.Store
	Ninja Options
}

// Command returns the executor invocation of a build step.
func (r Run) Command(step *StepBuild) domain.Command {
	binary := r.Ninja.Binary
	if binary == "" {
		binary = domain.DefaultNinjaBinary
	}
	args := make([]string, 0, 3+len(r.Ninja.Args)+len(step.Phonies))
	args = append(args, binary, "-f", r.Plan.BuildFile)
	args = append(args, r.Ninja.Args...)
	args = append(args, step.Phonies...)
	return domain.Command{Name: "ninja", Args: args, Dir: r.Plan.Root}
}

// Scheduler plans and executes runs. Steps are executed strictly in order.
type Scheduler struct {
	executor ports.Executor
	tracer   ports.Tracer
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(executor ports.Executor, tracer ports.Tracer) *Scheduler {
	return &Scheduler{executor: executor, tracer: tracer}
}

// Plan resolves names against the plan and orders the work needed to reach them.
//
// Required tasks run before the tasks that require them and every task runs once.
// Targets become build steps, consecutive build steps are merged.
// Without names the defaults of the build file are built.
func (s *Scheduler) Plan(plan *domain.Plan, names []string) ([]Step, error) {
	if len(names) == 0 {
		return []Step{&StepBuild{}}, nil
	}

	p := &planning{plan: plan, visited: make(map[domain.InternedString]bool)}
	for _, name := range names {
		node, ok := plan.Lookup(name)
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrNodeNotFound, "cannot run "+name), "name", name)
		}
		p.visit(node)
	}
	return p.steps, nil
}

type planning struct {
	plan    *domain.Plan
	visited map[domain.InternedString]bool
	steps   []Step
}

func (p *planning) visit(node *domain.Node) {
	if p.visited[node.ID] {
		return
	}
	p.visited[node.ID] = true

	if node.Kind == domain.KindTarget {
		p.build(node.ID.String())
		return
	}

	reachesTarget := false
	for _, id := range node.Deps {
		dep, ok := p.plan.Graph.Node(id)
		if !ok {
			continue
		}
		if dep.Kind == domain.KindTask {
			p.visit(dep)
		} else {
			reachesTarget = true
		}
	}
	if reachesTarget {
		p.build(node.ID.String())
	}
	p.steps = append(p.steps, &StepTask{Task: node.Task})
}

func (p *planning) build(phony string) {
	if n := len(p.steps); n > 0 {
		if last, ok := p.steps[n-1].(*StepBuild); ok {
			last.add(phony)
			return
		}
	}
	p.steps = append(p.steps, &StepBuild{Phonies: []string{phony}})
}

// Run executes the steps in order and stops at the first failure.
func (s *Scheduler) Run(ctx context.Context, run Run) error {
	descriptions := make([]string, len(run.Steps))
	for i, step := range run.Steps {
		descriptions[i] = step.String()
	}
	s.tracer.EmitPlan(ctx, descriptions)

	for _, step := range run.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch step := step.(type) {
		case *StepBuild:
			err = s.build(ctx, run, step)
		case *StepTask:
			err = s.task(ctx, run, step.Task)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) build(ctx context.Context, run Run, step *StepBuild) error {
	ctx, span := s.tracer.Start(ctx, "ninja", ports.WithAttribute("creator.phonies", step.Phonies))
	defer span.End()

	if err := s.executor.Execute(ctx, run.Command(step), span, span); err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrExternalExecutorFailure, err.Error()),
			"exit_code", domain.ExitCode(err)), "args", step.Phonies)
	}
	return nil
}

func (s *Scheduler) task(ctx context.Context, run Run, task *domain.Task) error {
	ctx, span := s.tracer.Start(ctx, "task:"+task.ID().String())
	defer span.End()

	err := s.runBody(ctx, run, task, span)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *Scheduler) runBody(ctx context.Context, run Run, task *domain.Task, span ports.Span) error {
	id := task.ID().String()
	scope, ok := run.Store.Unit(task.Unit)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrUnitNotFound, "no scope for "+task.Unit), "task", id)
	}
	dir := filepath.Join(run.Plan.Root, filepath.FromSlash(scope.Dir()))

	for i, line := range task.Body {
		text, err := run.Eval.ExpandText(scope, line, task.Location)
		if err != nil {
			return zerr.With(err, "task", id)
		}
		args, err := shellquote.Split(text)
		if err != nil {
			return zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrSyntax, err.Error()),
				"task", id), "line", i+1), "location", task.Location.String())
		}
		if len(args) == 0 {
			return zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrEmptyCommand, "cannot run "+strconv.Quote(line)),
				"task", id), "line", i+1), "location", task.Location.String())
		}

		cmd := domain.Command{Name: id, Args: args, Dir: dir, Terminal: true}
		if err := s.executor.Execute(ctx, cmd, span, span); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrTaskBodyFailure, err.Error()),
				"task", id), "line", i+1), "exit_code", domain.ExitCode(err))
		}
	}
	return nil
}
