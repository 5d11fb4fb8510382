package domain

import (
	"strings"
	"unique"
)

// InternedString is a value object that wraps a unique.Handle[string].
// Node names are compared and used as map keys on every graph operation,
// so they are interned once when a unit registers its declarations.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString creates a new InternedString from a string.
func NewInternedString(s string) InternedString {
	return InternedString{
		h: unique.Make(s),
	}
}

// NodeName returns the fully qualified name of a target or task: <unit>.<name>.
func NodeName(unit, name string) InternedString {
	return NewInternedString(unit + "." + name)
}

// String returns the underlying string value.
func (is InternedString) String() string {
	return is.h.Value()
}

// IsZero reports whether the string was never set.
func (is InternedString) IsZero() bool {
	return is == InternedString{}
}

// Split separates a fully qualified node name into unit identity and local name.
// Unit identities may contain dots, local names may not.
func (is InternedString) Split() (unit, name string) {
	s := is.String()
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+1:]
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.h.Value()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}
