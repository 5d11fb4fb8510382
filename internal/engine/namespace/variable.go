package namespace

import "go.trai.ch/creator/internal/core/domain"

// Variable is a named macro stored unevaluated together with the scope that defined it.
type Variable struct {
	Name   string
	Raw    string
	Scope  *Scope
	Origin domain.Location

	// Prev is the variable this one extends when it was created by Append.
	// Its expansion precedes the expansion of Raw.
	Prev *Variable

	value []string
	fixed bool
}

// Value returns the pre-evaluated value of the variable.
// The second result is false when the variable holds a raw macro instead.
func (v *Variable) Value() ([]string, bool) {
	return v.value, v.fixed
}

// Qualified returns the name prefixed with the identity of the defining unit.
func (v *Variable) Qualified() string {
	if v.Scope == nil || v.Scope.unit == "" {
		return v.Name
	}
	return v.Scope.unit + ":" + v.Name
}

// Function is a user function declared by a unit script.
type Function struct {
	Name     string
	Params   []string
	Body     string
	Scope    *Scope
	Exported bool
	Origin   domain.Location
}
