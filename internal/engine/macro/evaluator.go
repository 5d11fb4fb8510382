// Package macro parses and evaluates the $ expansion language of unit scripts.
package macro

import (
	"errors"
	"strings"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
)

// Mode selects how literal text and sequences are combined.
type Mode uint8

const (
	// Sequence splits literal text on whitespace and glues adjacent values make-style.
	Sequence Mode = iota
	// Joined keeps literal text verbatim and joins sequences with single spaces into one element.
	Joined
)

// Bindings are the edge-local values of $< and $@.
type Bindings struct {
	Inputs  []string
	Outputs []string
	// HasOutputs is false while the outputs of an edge are still being derived.
	HasOutputs bool
}

type memoKey struct {
	raw   string
	scope *namespace.Scope
	prev  *namespace.Variable
	mode  Mode
}

// Evaluator expands macro strings against a namespace.Store.
//
// Results are memoized for the duration of one pass. A result is only memoized when
// its evaluation did not read the edge bindings, so values depending on $< or $@ are
// recomputed for every edge.
type Evaluator struct {
	snapshot ports.FileSnapshot
	pass     uint64
	memo     map[memoKey][]string
	parsed   map[string]*Expr
	active   map[any]bool
	chain    []string
	bindings *Bindings
	reads    int
}

// New creates an evaluator for the first pass.
func New(snapshot ports.FileSnapshot) *Evaluator {
	e := &Evaluator{parsed: make(map[string]*Expr)}
	e.Reset(0, snapshot)
	return e
}

// Reset starts a new pass. Memoized results of the previous pass are discarded.
func (e *Evaluator) Reset(pass uint64, snapshot ports.FileSnapshot) {
	e.pass = pass
	e.snapshot = snapshot
	e.memo = make(map[memoKey][]string)
	e.active = make(map[any]bool)
	e.chain = e.chain[:0]
	e.bindings = nil
}

// Invalidate drops memoized results of the current pass. It is called whenever the
// namespace changes while the pass is still running.
func (e *Evaluator) Invalidate() {
	clear(e.memo)
}

// Pass returns the pass the memo table belongs to.
func (e *Evaluator) Pass() uint64 {
	return e.pass
}

// Expand evaluates raw in scope without edge bindings.
func (e *Evaluator) Expand(scope *namespace.Scope, raw string, mode Mode, loc domain.Location) ([]string, error) {
	values, _, err := e.ExpandWith(scope, raw, mode, loc, nil)
	return values, err
}

// ExpandText evaluates raw in text mode and returns the single resulting string.
func (e *Evaluator) ExpandText(scope *namespace.Scope, raw string, loc domain.Location) (string, error) {
	values, err := e.Expand(scope, raw, Joined, loc)
	if err != nil {
		return "", err
	}
	return strings.Join(values, " "), nil
}

// ExpandWith evaluates raw in scope with the given edge bindings.
// The second result reports whether the evaluation read $< or $@.
func (e *Evaluator) ExpandWith(
	scope *namespace.Scope, raw string, mode Mode, loc domain.Location, b *Bindings,
) ([]string, bool, error) {
	saved := e.bindings
	e.bindings = b
	defer func() { e.bindings = saved }()

	before := e.reads
	values, err := e.expandRaw(scope, raw, nil, mode, loc)
	if err != nil {
		return nil, false, withLocation(err, loc)
	}
	return values, e.reads != before, nil
}

// Value evaluates a variable in the scope that defined it.
func (e *Evaluator) Value(v *namespace.Variable) ([]string, error) {
	values, err := e.variable(v)
	if err != nil {
		return nil, withLocation(err, v.Origin)
	}
	return values, nil
}

func (e *Evaluator) variable(v *namespace.Variable) ([]string, error) {
	if value, ok := v.Value(); ok {
		return value, nil
	}
	if e.active[v] {
		return nil, e.recursion(v.Qualified())
	}
	e.active[v] = true
	e.chain = append(e.chain, v.Qualified())
	defer func() {
		delete(e.active, v)
		e.chain = e.chain[:len(e.chain)-1]
	}()

	values, err := e.expandRaw(v.Scope, v.Raw, v.Prev, Sequence, v.Origin)
	if err != nil {
		return nil, withLocation(err, v.Origin)
	}
	return values, nil
}

func (e *Evaluator) expandRaw(
	scope *namespace.Scope, raw string, prev *namespace.Variable, mode Mode, loc domain.Location,
) ([]string, error) {
	key := memoKey{raw: raw, scope: scope, prev: prev, mode: mode}
	if cached, ok := e.memo[key]; ok {
		return cached, nil
	}

	before := e.reads
	var head []string
	if prev != nil {
		values, err := e.variable(prev)
		if err != nil {
			return nil, err
		}
		head = values
	}

	expr, err := e.parse(raw, loc)
	if err != nil {
		return nil, err
	}
	values, err := e.eval(scope, expr, mode)
	if err != nil {
		return nil, err
	}
	if len(head) > 0 {
		values = append(append([]string{}, head...), values...)
	}

	if e.reads == before {
		e.memo[key] = values
	}
	return values, nil
}

func (e *Evaluator) parse(raw string, loc domain.Location) (*Expr, error) {
	if expr, ok := e.parsed[raw]; ok {
		return expr, nil
	}
	expr, err := Parse(raw, loc)
	if err != nil {
		return nil, err
	}
	e.parsed[raw] = expr
	return expr, nil
}

func (e *Evaluator) eval(scope *namespace.Scope, expr *Expr, mode Mode) ([]string, error) {
	if mode == Joined {
		var b strings.Builder
		for _, n := range expr.Nodes {
			if t, ok := n.(*Text); ok {
				b.WriteString(t.Value)
				continue
			}
			values, err := e.node(scope, n)
			if err != nil {
				return nil, err
			}
			b.WriteString(strings.Join(values, " "))
		}
		return []string{b.String()}, nil
	}

	var w words
	for _, n := range expr.Nodes {
		if t, ok := n.(*Text); ok {
			w.text(t.Value)
			continue
		}
		values, err := e.node(scope, n)
		if err != nil {
			return nil, err
		}
		w.values(values)
	}
	return w.list, nil
}

func (e *Evaluator) node(scope *namespace.Scope, n Node) ([]string, error) {
	switch n := n.(type) {
	case *Ref:
		v, err := scope.Lookup(n.Name)
		if err != nil {
			return nil, err
		}
		return e.variable(v)
	case *Binding:
		return e.binding(n)
	case *Call:
		return e.call(scope, n)
	case *Text:
		return strings.Fields(n.Value), nil
	}
	return nil, nil
}

func (e *Evaluator) binding(b *Binding) ([]string, error) {
	if e.bindings == nil || (b.Outputs && !e.bindings.HasOutputs) {
		return nil, zerr.With(zerr.Wrap(domain.ErrUndefinedVariable, b.Symbol()+" is only bound inside a build"),
			"name", b.Symbol())
	}
	e.reads++
	if b.Outputs {
		return e.bindings.Outputs, nil
	}
	return e.bindings.Inputs, nil
}

func (e *Evaluator) call(scope *namespace.Scope, c *Call) ([]string, error) {
	if c.Namespace == "" {
		if c.Name == "if" {
			return e.conditional(scope, c)
		}
		if fn, ok := builtins[c.Name]; ok {
			if err := checkArity(c, fn.min, fn.max); err != nil {
				return nil, err
			}
			args, err := e.args(scope, c)
			if err != nil {
				return nil, err
			}
			return fn.run(&callContext{eval: e, scope: scope}, args)
		}
	}

	fn, err := scope.LookupFunction(c.Namespace, c.Name)
	if err != nil {
		return nil, err
	}
	if err := checkArity(c, len(fn.Params), len(fn.Params)); err != nil {
		return nil, err
	}
	if e.active[fn] {
		return nil, e.recursion(c.QualifiedName())
	}

	args, err := e.args(scope, c)
	if err != nil {
		return nil, err
	}

	local := fn.Scope.Child()
	for i, param := range fn.Params {
		local.DefineValue(param, args[i])
	}

	e.active[fn] = true
	e.chain = append(e.chain, c.QualifiedName()+"()")
	defer func() {
		delete(e.active, fn)
		e.chain = e.chain[:len(e.chain)-1]
	}()

	values, err := e.expandRaw(local, fn.Body, nil, Sequence, fn.Origin)
	if err != nil {
		return nil, withLocation(err, fn.Origin)
	}
	return values, nil
}

// conditional evaluates only the selected branch of $(if cond, then, else).
func (e *Evaluator) conditional(scope *namespace.Scope, c *Call) ([]string, error) {
	if err := checkArity(c, 2, 3); err != nil {
		return nil, err
	}
	cond, err := e.eval(scope, c.Args[0], Sequence)
	if err != nil {
		return nil, err
	}
	if truthy(cond) {
		return e.eval(scope, c.Args[1], Sequence)
	}
	if len(c.Args) == 3 {
		return e.eval(scope, c.Args[2], Sequence)
	}
	return nil, nil
}

func (e *Evaluator) args(scope *namespace.Scope, c *Call) ([][]string, error) {
	args := make([][]string, len(c.Args))
	for i, arg := range c.Args {
		values, err := e.eval(scope, arg, Sequence)
		if err != nil {
			return nil, err
		}
		args[i] = values
	}
	return args, nil
}

func (e *Evaluator) recursion(name string) error {
	cycle := strings.Join(append(append([]string{}, e.chain...), name), " -> ")
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrRecursiveExpansion, "cannot expand "+name),
		"name", name), "cycle", cycle)
}

func checkArity(c *Call, lo, hi int) error {
	n := len(c.Args)
	if n >= lo && (hi < 0 || n <= hi) {
		return nil
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrArityError, "cannot call "+c.QualifiedName()),
		"name", c.QualifiedName()), "args", n)
}

func truthy(values []string) bool {
	for _, v := range values {
		if v != "" {
			return true
		}
	}
	return false
}

// withLocation attaches the location of the innermost macro that failed.
func withLocation(err error, loc domain.Location) error {
	if loc.IsZero() {
		return err
	}
	if hasLocation(err) {
		return err
	}
	return zerr.With(err, "location", loc.String())
}

func hasLocation(err error) bool {
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if z, ok := cur.(*zerr.Error); ok {
			if _, found := z.Metadata()["location"]; found {
				return true
			}
		}
	}
	return false
}

// words accumulates a sequence. Text that touches a value without whitespace
// in between is glued to the neighbouring element.
type words struct {
	list []string
	open bool
}

func (w *words) text(s string) {
	if s == "" {
		return
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		w.open = false
		return
	}
	if w.open && !isSpace(s[0]) {
		w.list[len(w.list)-1] += fields[0]
		fields = fields[1:]
	}
	w.list = append(w.list, fields...)
	w.open = !isSpace(s[len(s)-1])
}

func (w *words) values(values []string) {
	if len(values) == 0 {
		return
	}
	if w.open {
		w.list[len(w.list)-1] += values[0]
		values = values[1:]
	}
	w.list = append(w.list, values...)
	w.open = true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
