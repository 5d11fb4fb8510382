// Package domain contains the core domain models of units, targets, tasks and their dependency graph.
package domain

import (
	"iter"
	"strings"

	"go.trai.ch/zerr"
)

// NodeKind distinguishes targets from tasks.
type NodeKind uint8

const (
	// KindTarget marks a node that produces build edges.
	KindTarget NodeKind = iota
	// KindTask marks a node with a runnable body.
	KindTask
)

// String returns the lower-case name of the kind.
func (k NodeKind) String() string {
	if k == KindTask {
		return "task"
	}
	return "target"
}

// Node is a target or task registered in the graph.
type Node struct {
	ID     InternedString
	Kind   NodeKind
	Target *Target
	Task   *Task
	Deps   []InternedString
}

// Unit returns the identity of the unit that declared the node.
func (n *Node) Unit() string {
	if n.Kind == KindTask {
		return n.Task.Unit
	}
	return n.Target.Unit
}

// Name returns the local name of the node within its unit.
func (n *Node) Name() string {
	if n.Kind == KindTask {
		return n.Task.Name
	}
	return n.Target.Name
}

// Location returns the declaration site of the node.
func (n *Node) Location() Location {
	if n.Kind == KindTask {
		return n.Task.Location
	}
	return n.Target.Location
}

func (n *Node) requires() []string {
	if n.Kind == KindTask {
		return n.Task.Requires
	}
	return n.Target.Requires
}

// Graph holds all loaded units and the dependency graph of their targets and tasks.
type Graph struct {
	units          []*Unit
	unitIndex      map[string]*Unit
	nodes          map[InternedString]*Node
	declared       []InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		unitIndex: make(map[string]*Unit),
		nodes:     make(map[InternedString]*Node),
	}
}

// AddUnit registers a fully loaded unit and all of its targets and tasks.
// Units must be added in load order.
func (g *Graph) AddUnit(u *Unit) error {
	if _, exists := g.unitIndex[u.Identity]; exists {
		return zerr.With(zerr.Wrap(ErrDuplicateUnitName, "cannot add unit"), "unit", u.Identity)
	}

	targets := make(map[string]*Target, len(u.Targets))
	for _, t := range u.Targets {
		targets[t.Name] = t
	}
	tasks := make(map[string]*Task, len(u.Tasks))
	for _, t := range u.Tasks {
		tasks[t.Name] = t
	}

	for _, name := range u.Declared() {
		node := &Node{ID: NodeName(u.Identity, name)}
		if t, ok := targets[name]; ok {
			node.Kind = KindTarget
			node.Target = t
		} else {
			node.Kind = KindTask
			node.Task = tasks[name]
		}
		if _, exists := g.nodes[node.ID]; exists {
			return zerr.With(zerr.Wrap(ErrDuplicateNode, "cannot add node"), "name", node.ID.String())
		}
		g.nodes[node.ID] = node
		g.declared = append(g.declared, node.ID)
	}

	g.units = append(g.units, u)
	g.unitIndex[u.Identity] = u
	return nil
}

// Unit returns the unit with the given identity.
func (g *Graph) Unit(identity string) (*Unit, bool) {
	u, ok := g.unitIndex[identity]
	return u, ok
}

// Units returns all units in load order.
func (g *Graph) Units() []*Unit {
	return g.units
}

// Node returns the node with the given fully qualified name.
func (g *Graph) Node(id InternedString) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Resolve turns a dependency reference made from within a unit into a fully qualified node name.
// References are either "alias:name", a name local to the unit, or a fully qualified "unit.name".
func (g *Graph) Resolve(from *Unit, ref string) (InternedString, error) {
	if alias, name, ok := strings.Cut(ref, ":"); ok {
		identity, known := from.Aliases[alias]
		if !known {
			return InternedString{}, zerr.With(zerr.With(zerr.Wrap(ErrUnknownAlias, "cannot resolve "+ref),
				"unit", from.Identity), "name", alias)
		}
		return NodeName(identity, name), nil
	}
	if from.Has(ref) || !strings.Contains(ref, ".") {
		return NodeName(from.Identity, ref), nil
	}
	return NewInternedString(ref), nil
}

// Link resolves the requirements of every node into graph edges.
func (g *Graph) Link() error {
	for _, id := range g.declared {
		node := g.nodes[id]
		from := g.unitIndex[node.Unit()]
		node.Deps = node.Deps[:0]
		for _, ref := range node.requires() {
			depID, err := g.Resolve(from, ref)
			if err != nil {
				return zerr.With(err, "location", node.Location().String())
			}
			dep, exists := g.nodes[depID]
			if !exists {
				return zerr.With(zerr.With(zerr.Wrap(ErrMissingDependency, "cannot link "+id.String()),
					"dependency", depID.String()), "location", node.Location().String())
			}
			if node.Kind == KindTarget && dep.Kind == KindTask {
				return zerr.With(zerr.With(zerr.Wrap(ErrInvalidDependency, "cannot link "+id.String()),
					"dependency", depID.String()), "location", node.Location().String())
			}
			node.Deps = append(node.Deps, depID)
		}
	}
	return nil
}

// Validate links the graph and checks it for cycles using a three-colour depth-first traversal.
// It populates the execution order: producers before consumers, ties broken by declaration
// order within a unit and then by unit load order.
func (g *Graph) Validate() error {
	if err := g.Link(); err != nil {
		return err
	}

	g.executionOrder = make([]InternedString, 0, len(g.nodes))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		for _, dep := range g.nodes[u].Deps {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, id := range g.declared {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	var b strings.Builder
	startIdx := 0
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		b.WriteString(path[i].String())
		b.WriteString(" -> ")
	}
	b.WriteString(dep.String())
	return zerr.With(zerr.With(zerr.Wrap(ErrCyclicDependency, "dependency graph is not acyclic"),
		"cycle", b.String()), "location", g.nodes[dep].Location().String())
}

// Walk returns an iterator that yields nodes in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, id := range g.executionOrder {
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}

// Closure returns the given nodes and everything they transitively require, in execution order.
func (g *Graph) Closure(ids []InternedString) []*Node {
	wanted := make(map[InternedString]bool)
	var mark func(id InternedString)
	mark = func(id InternedString) {
		if wanted[id] {
			return
		}
		wanted[id] = true
		if n, ok := g.nodes[id]; ok {
			for _, dep := range n.Deps {
				mark(dep)
			}
		}
	}
	for _, id := range ids {
		mark(id)
	}

	var result []*Node
	for n := range g.Walk() {
		if wanted[n.ID] {
			result = append(result, n)
		}
	}
	return result
}
