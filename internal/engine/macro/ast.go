package macro

// Node is one element of a parsed macro string.
type Node interface {
	node()
}

// Text is literal text. Escaped dollars are already resolved.
type Text struct {
	Value string
}

// Ref is a variable reference, $Name, ${Name} or ${ns:Name}.
type Ref struct {
	Name string
}

// Binding is an edge-local binding, $< for the inputs or $@ for the outputs of an edge.
type Binding struct {
	Outputs bool
}

// Call is a function call, $(name a, b) or $(ns:name a, b).
type Call struct {
	Namespace string
	Name      string
	Args      []*Expr
}

func (*Text) node()    {}
func (*Ref) node()     {}
func (*Binding) node() {}
func (*Call) node()    {}

// Expr is a parsed macro string.
type Expr struct {
	Source string
	Nodes  []Node
}

// QualifiedName returns the call target as written.
func (c *Call) QualifiedName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + ":" + c.Name
}

// Symbol returns the binding as written in a macro string.
func (b *Binding) Symbol() string {
	if b.Outputs {
		return "$@"
	}
	return "$<"
}
