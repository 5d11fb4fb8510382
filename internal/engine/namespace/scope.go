package namespace

import (
	"strings"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/zerr"
)

// Scope maps names to variables and functions.
// Lookups that miss fall back to the parent scope. Aliases name other units by identity;
// the store resolves them so that scopes never own each other.
type Scope struct {
	store   *Store
	parent  *Scope
	unit    string
	dir     string
	vars    map[string]*Variable
	funcs   map[string]*Function
	aliases map[string]string
}

func newScope(store *Store, parent *Scope, unit, dir string) *Scope {
	return &Scope{
		store:   store,
		parent:  parent,
		unit:    unit,
		dir:     dir,
		vars:    make(map[string]*Variable),
		funcs:   make(map[string]*Function),
		aliases: make(map[string]string),
	}
}

// Unit returns the identity of the unit owning the scope. It is empty for the global scope.
func (s *Scope) Unit() string {
	return s.unit
}

// Dir returns the directory of the owning unit, relative to the workspace root.
func (s *Scope) Dir() string {
	return s.dir
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Store returns the arena the scope belongs to.
func (s *Scope) Store() *Store {
	return s.store
}

// Child creates a scope that shadows s. It is used to bind function parameters.
func (s *Scope) Child() *Scope {
	return newScope(s.store, s, s.unit, s.dir)
}

// Define creates or overwrites a variable holding the raw macro text.
func (s *Scope) Define(name, raw string, origin domain.Location) *Variable {
	v := &Variable{Name: name, Raw: raw, Scope: s, Origin: origin}
	s.vars[name] = v
	return v
}

// DefineValue creates or overwrites a variable with an already evaluated value.
func (s *Scope) DefineValue(name string, value []string) *Variable {
	v := &Variable{Name: name, Scope: s, value: value, fixed: true}
	s.vars[name] = v
	return v
}

// Append redefines name so that it expands to its previous value followed by raw.
// If name is not visible yet, Append behaves like Define.
func (s *Scope) Append(name, raw string, origin domain.Location) *Variable {
	prev, _ := s.Lookup(name)
	v := s.Define(name, raw, origin)
	v.Prev = prev
	return v
}

// Import binds alias to the unit with the given identity.
func (s *Scope) Import(identity, alias string) {
	s.aliases[alias] = identity
}

// Aliases returns a copy of the import aliases declared directly in this scope.
func (s *Scope) Aliases() map[string]string {
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// Own returns the variable defined directly in this scope, without any fallback.
func (s *Scope) Own(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Defined reports whether name resolves without evaluating it.
func (s *Scope) Defined(name string) bool {
	_, err := s.Lookup(name)
	return err == nil
}

// Lookup resolves a possibly alias-qualified variable name.
//
// Unqualified names search this scope, then the parent chain up to the global scope,
// then the process environment if the store allows it. Qualified names "ns:Name"
// only search the own variables of the unit bound to ns.
func (s *Scope) Lookup(name string) (*Variable, error) {
	if ns, local, ok := strings.Cut(name, ":"); ok {
		target, err := s.resolveAlias(ns)
		if err != nil {
			return nil, err
		}
		if v, found := target.vars[local]; found {
			return v, nil
		}
		return nil, s.undefined(name)
	}

	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, nil
		}
	}

	if v, ok := s.store.fromEnvironment(name); ok {
		return v, nil
	}
	return nil, s.undefined(name)
}

// DefineFunction registers a user function in this scope.
func (s *Scope) DefineFunction(fn *Function) {
	fn.Scope = s
	s.funcs[fn.Name] = fn
}

// LookupFunction resolves a user function.
// With an empty namespace the scope chain is searched. Otherwise only exported
// functions of the unit bound to ns are visible, unless ns refers to the calling unit.
func (s *Scope) LookupFunction(ns, name string) (*Function, error) {
	if ns == "" {
		for cur := s; cur != nil; cur = cur.parent {
			if fn, ok := cur.funcs[name]; ok {
				return fn, nil
			}
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownFunction, "cannot call "+name), "name", name)
	}

	target, err := s.resolveAlias(ns)
	if err != nil {
		return nil, err
	}
	qualified := ns + ":" + name
	fn, ok := target.funcs[name]
	if !ok || (!fn.Exported && target.unit != s.unit) {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownFunction, "cannot call "+qualified), "name", qualified)
	}
	return fn, nil
}

func (s *Scope) resolveAlias(ns string) (*Scope, error) {
	for cur := s; cur != nil; cur = cur.parent {
		identity, ok := cur.aliases[ns]
		if !ok {
			continue
		}
		if target, found := s.store.Unit(identity); found {
			return target, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrUnitNotFound, "alias "+ns+" is not loaded"), "unit", identity)
	}
	return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnknownAlias, "cannot resolve "+ns), "name", ns),
		"unit", s.unit)
}

func (s *Scope) undefined(name string) error {
	err := zerr.With(zerr.Wrap(domain.ErrUndefinedVariable, "cannot resolve $"+name), "name", name)
	if s.unit != "" {
		err = zerr.With(err, "unit", s.unit)
	}
	return err
}
