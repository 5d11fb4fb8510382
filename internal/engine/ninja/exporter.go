// Package ninja renders a plan as a ninja build file.
package ninja

import (
	"bytes"
	"fmt"
	"strconv"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/zerr"
)

// RequiredVersion is the oldest ninja release that understands the generated file.
const RequiredVersion = "1.5"

const header = "This file is generated by creator. Do not edit."

// Exporter renders plans. It holds no state between renders.
type Exporter struct{}

// New creates an Exporter.
func New() *Exporter {
	return &Exporter{}
}

// Render returns the build file for the plan. The output depends only on the plan,
// so rendering the same plan twice yields identical bytes.
func (e *Exporter) Render(plan *domain.Plan) ([]byte, error) {
	var buf bytes.Buffer
	r := &render{
		plan:     plan,
		w:        NewWriter(&buf),
		commands: make(map[string]string),
		names:    make(map[string]struct{}),
	}
	if err := r.run(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type render struct {
	plan     *domain.Plan
	w        *Writer
	commands map[string]string
	names    map[string]struct{}
}

func (r *render) run() error {
	r.w.Comment(header)
	if r.plan.Main != nil {
		r.w.Comment("Entry unit: " + r.plan.Main.Identity)
	}
	r.w.BlankLine()
	r.w.Assign("ninja_required_version", RequiredVersion)
	r.w.BlankLine()

	var tasks []*domain.Node
	for node := range r.plan.Graph.Walk() {
		if node.Kind == domain.KindTask {
			tasks = append(tasks, node)
			continue
		}
		r.target(node)
		r.w.BlankLine()
	}

	for _, node := range tasks {
		r.w.Comment("Task: " + node.ID.String())
		r.w.Build(Build{Outputs: []string{node.ID.String()}, Rule: "phony", Inputs: depNames(node)})
		r.w.BlankLine()
	}

	var defaults []string
	for _, node := range r.plan.Defaults() {
		defaults = append(defaults, node.ID.String())
	}
	r.w.Default(defaults...)

	if err := r.w.Err(); err != nil {
		return zerr.Wrap(err, "failed to render build file")
	}
	return nil
}

func (r *render) target(node *domain.Node) {
	r.w.Comment("Target: " + node.ID.String())

	edges := r.plan.Edges(node.Target)
	introduced := 0
	var outputs []string
	for _, edge := range edges {
		command := EscapeCommand(edge.Command)
		rule, seen := r.commands[command]
		if !seen {
			rule = r.ruleName(node, introduced)
			introduced++
			r.commands[command] = rule
			r.w.Rule(rule,
				"command", command,
				"description", node.ID.String()+" $out")
		}
		r.w.Build(Build{
			Outputs:  edge.Outputs,
			Rule:     rule,
			Inputs:   edge.Inputs,
			Implicit: edge.Implicit,
		})
		outputs = append(outputs, edge.Outputs...)
	}

	// A target without edges stands for the targets it requires.
	if len(edges) == 0 {
		outputs = depNames(node)
	}
	r.w.Build(Build{Outputs: []string{node.ID.String()}, Rule: "phony", Inputs: outputs})
}

func (r *render) ruleName(node *domain.Node, n int) string {
	base := RuleName(fmt.Sprintf("%s_%s_%04d", node.Unit(), node.Name(), n))
	name := base
	for i := 1; ; i++ {
		if _, taken := r.names[name]; !taken {
			break
		}
		name = base + "_" + strconv.Itoa(i)
	}
	r.names[name] = struct{}{}
	return name
}

func depNames(node *domain.Node) []string {
	names := make([]string, 0, len(node.Deps))
	for _, dep := range node.Deps {
		names = append(names, dep.String())
	}
	return names
}
