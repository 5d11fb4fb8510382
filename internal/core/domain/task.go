package domain

// BuildTemplate is one unexpanded build declaration of a Target.
// Inputs, Outputs and Command are raw macro strings evaluated in the owning unit's scope.
type BuildTemplate struct {
	Inputs   string
	Outputs  string
	Command  string
	Each     bool
	Location Location
}

// BuildEdge is a concrete input set to output set transformation bound to a rule command.
// Within Command, $< was bound to Inputs and $@ to Outputs.
type BuildEdge struct {
	Target   InternedString
	Inputs   []string
	Outputs  []string
	Implicit []string
	Command  string
}

// Target is a named graph node that produces one or more build edges.
type Target struct {
	Unit      string
	Name      string
	Requires  []string
	Templates []BuildTemplate
	Location  Location

	edges    []BuildEdge
	edgePass uint64
}

// ID returns the fully qualified name of the target.
func (t *Target) ID() InternedString {
	return NodeName(t.Unit, t.Name)
}

// Edges returns the edges materialized during the given pass.
// The second result is false when the cache belongs to another pass.
func (t *Target) Edges(pass uint64) ([]BuildEdge, bool) {
	if pass == 0 || t.edgePass != pass {
		return nil, false
	}
	return t.edges, true
}

// SetEdges caches the edges materialized during the given pass.
func (t *Target) SetEdges(pass uint64, edges []BuildEdge) {
	t.edges = edges
	t.edgePass = pass
}

// Outputs returns all outputs of the edges materialized during the given pass.
func (t *Target) Outputs(pass uint64) []string {
	edges, ok := t.Edges(pass)
	if !ok {
		return nil
	}
	var outputs []string
	for _, e := range edges {
		outputs = append(outputs, e.Outputs...)
	}
	return outputs
}

// Task is a named orchestration node with a runnable body and no build edges of its own.
type Task struct {
	Unit     string
	Name     string
	Requires []string
	Body     []string
	Location Location
}

// ID returns the fully qualified name of the task.
func (t *Task) ID() InternedString {
	return NodeName(t.Unit, t.Name)
}
