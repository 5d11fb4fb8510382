package domain

import (
	"regexp"

	"go.trai.ch/zerr"
)

var validNodeNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// ValidNodeName reports whether name can be used for a target or task.
// Dots are reserved as the separator between unit identity and name.
func ValidNodeName(name string) bool {
	return validNodeNameRegex.MatchString(name)
}

// Unit is a uniquely identified build-definition module.
type Unit struct {
	Identity string
	Path     string
	Dir      string
	Targets  []*Target
	Tasks    []*Task
	Aliases  map[string]string
	Location Location

	declared []string
	names    map[string]struct{}
}

// NewUnit creates an empty unit declared at the given script path.
func NewUnit(identity, path, dir string) *Unit {
	return &Unit{
		Identity: identity,
		Path:     path,
		Dir:      dir,
		Aliases:  map[string]string{"self": identity},
		Location: Location{File: path, Line: 1},
		names:    make(map[string]struct{}),
	}
}

// Has reports whether the unit already declares a target or task with the given name.
func (u *Unit) Has(name string) bool {
	_, ok := u.names[name]
	return ok
}

// AddTarget registers a target in declaration order.
func (u *Unit) AddTarget(t *Target) error {
	if err := u.declare(t.Name, t.Location); err != nil {
		return err
	}
	t.Unit = u.Identity
	u.Targets = append(u.Targets, t)
	return nil
}

// AddTask registers a task in declaration order.
func (u *Unit) AddTask(t *Task) error {
	if err := u.declare(t.Name, t.Location); err != nil {
		return err
	}
	t.Unit = u.Identity
	u.Tasks = append(u.Tasks, t)
	return nil
}

// Declared returns the names of all targets and tasks in declaration order.
func (u *Unit) Declared() []string {
	return u.declared
}

func (u *Unit) declare(name string, loc Location) error {
	if !ValidNodeName(name) {
		return zerr.With(zerr.With(zerr.Wrap(ErrInvalidNodeName, "cannot declare "+name), "unit", u.Identity),
			"location", loc.String())
	}
	if u.Has(name) {
		return zerr.With(zerr.With(zerr.Wrap(ErrDuplicateNode, "cannot declare "+name), "unit", u.Identity),
			"location", loc.String())
	}
	if u.names == nil {
		u.names = make(map[string]struct{})
	}
	u.names[name] = struct{}{}
	u.declared = append(u.declared, name)
	return nil
}
