package domain

import "strconv"

// Location points at a declaration inside a unit script.
type Location struct {
	File string
	Line int
}

// IsZero reports whether the location is unknown.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

// String formats the location as file:line.
func (l Location) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	if l.Line == 0 {
		return l.File
	}
	return l.File + ":" + strconv.Itoa(l.Line)
}
