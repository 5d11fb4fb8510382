// Package namespace implements the scope chain and variable storage of the macro language.
package namespace

import (
	"os"
	"runtime"
	"strings"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// SelfVariable holds the identity of the unit owning a scope.
	SelfVariable = "self"
	// ProjectPathVariable holds the directory of the unit owning a scope.
	ProjectPathVariable = "ProjectPath"
)

// Store is the arena of all scopes of a run.
// Unit scopes are indexed by identity so that importing units refer to each other by key.
type Store struct {
	global *Scope
	units  map[string]*Scope
	order  []*Scope
	env    func(string) (string, bool)
	pass   uint64
}

// Option configures a Store.
type Option func(*Store)

// WithEnvironment makes process environment variables visible as a last lookup resort.
func WithEnvironment(lookup func(string) (string, bool)) Option {
	return func(s *Store) {
		s.env = lookup
	}
}

// WithOSEnvironment is WithEnvironment backed by os.LookupEnv.
func WithOSEnvironment() Option {
	return WithEnvironment(os.LookupEnv)
}

// WithGlobals predefines evaluated global values, overriding the platform defaults.
func WithGlobals(values map[string]string) Option {
	return func(s *Store) {
		for k, v := range values {
			s.global.DefineValue(k, strings.Fields(v))
		}
	}
}

// WithMacros predefines raw global macros.
func WithMacros(macros map[string]string) Option {
	return func(s *Store) {
		for k, v := range macros {
			s.global.Define(k, v, domain.Location{File: "<command line>"})
		}
	}
}

// NewStore creates a store whose global scope holds the platform description.
func NewStore(opts ...Option) *Store {
	s := &Store{units: make(map[string]*Scope)}
	s.global = newScope(s, nil, "", ".")
	s.global.DefineValue("Platform", []string{runtime.GOOS})
	s.global.DefineValue("PlatformStandard", []string{PlatformStandard(runtime.GOOS)})
	s.global.DefineValue("Architecture", []string{runtime.GOARCH})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlatformStandard returns the family of the given GOOS.
func PlatformStandard(goos string) string {
	if goos == "windows" {
		return "nt"
	}
	return "posix"
}

// Global returns the process-wide root scope.
func (s *Store) Global() *Scope {
	return s.global
}

// NewUnitScope creates the top-level scope of a unit.
// The scope predefines self and ProjectPath and binds the alias self to the unit itself.
func (s *Store) NewUnitScope(identity, dir string) (*Scope, error) {
	if _, exists := s.units[identity]; exists {
		return nil, zerr.With(zerr.Wrap(domain.ErrDuplicateUnitName, "cannot create scope"), "unit", identity)
	}
	scope := newScope(s, s.global, identity, dir)
	scope.DefineValue(SelfVariable, []string{identity})
	scope.DefineValue(ProjectPathVariable, []string{dir})
	scope.Import(identity, SelfVariable)
	s.units[identity] = scope
	s.order = append(s.order, scope)
	return scope, nil
}

// Unit returns the scope of the unit with the given identity.
func (s *Store) Unit(identity string) (*Scope, bool) {
	scope, ok := s.units[identity]
	return scope, ok
}

// Units returns the unit scopes in creation order.
func (s *Store) Units() []*Scope {
	return s.order
}

// NextPass starts a new evaluation pass and returns its id. Pass ids start at 1.
func (s *Store) NextPass() uint64 {
	s.pass++
	return s.pass
}

// Pass returns the id of the current pass, or 0 before the first pass.
func (s *Store) Pass() uint64 {
	return s.pass
}

func (s *Store) fromEnvironment(name string) (*Variable, bool) {
	if s.env == nil {
		return nil, false
	}
	value, ok := s.env(name)
	if !ok {
		return nil, false
	}
	return &Variable{
		Name:   name,
		Scope:  s.global,
		Origin: domain.Location{File: "<environment>"},
		value:  strings.Fields(value),
		fixed:  true,
	}, true
}
