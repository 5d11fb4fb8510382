package domain

// Plan is the result of one load, plan and expand pass over a workspace.
type Plan struct {
	Graph     *Graph
	Main      *Unit
	Pass      uint64
	Root      string
	BuildFile string
}

// Edges returns the build edges materialized for a target during this pass.
func (p *Plan) Edges(t *Target) []BuildEdge {
	edges, _ := t.Edges(p.Pass)
	return edges
}

// Lookup resolves a name given on the command line.
// Bare names refer to the main unit; anything else must be fully qualified.
func (p *Plan) Lookup(name string) (*Node, bool) {
	if p.Main != nil && p.Main.Has(name) {
		return p.Graph.Node(NodeName(p.Main.Identity, name))
	}
	return p.Graph.Node(NewInternedString(name))
}

// Defaults returns the targets of the main unit in declaration order.
func (p *Plan) Defaults() []*Node {
	if p.Main == nil {
		return nil
	}
	var nodes []*Node
	for _, t := range p.Main.Targets {
		if n, ok := p.Graph.Node(t.ID()); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
