package ninja

import (
	"io"
	"strings"
)

const indent = "    "

// Build is one build statement. Paths are escaped by the Writer.
type Build struct {
	Outputs         []string
	ImplicitOutputs []string
	Rule            string
	Inputs          []string
	Implicit        []string
	OrderOnly       []string
}

// Writer emits ninja statements. The first write error is kept and returned by Err;
// later writes are dropped.
type Writer struct {
	w                io.Writer
	justDidBlankLine bool
	err              error
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first write error.
func (n *Writer) Err() error {
	return n.err
}

// Comment writes each line of text as a comment.
func (n *Writer) Comment(text string) {
	n.justDidBlankLine = false
	for _, line := range strings.Split(text, "\n") {
		n.write(strings.TrimRight("# "+line, " \t") + "\n")
	}
}

// Assign writes a top-level variable.
func (n *Writer) Assign(name, value string) {
	n.justDidBlankLine = false
	n.write(name + " = " + value + "\n")
}

// Rule writes a rule declaration followed by its indented variables, given as name/value pairs.
func (n *Writer) Rule(name string, vars ...string) {
	n.justDidBlankLine = false
	n.write("rule " + name + "\n")
	for i := 0; i+1 < len(vars); i += 2 {
		n.write(indent + vars[i] + " = " + vars[i+1] + "\n")
	}
}

// Build writes a build statement.
func (n *Writer) Build(b Build) {
	n.justDidBlankLine = false

	var sb strings.Builder
	sb.WriteString("build")
	for _, out := range b.Outputs {
		sb.WriteString(" " + EscapeOutput(out))
	}
	if len(b.ImplicitOutputs) > 0 {
		sb.WriteString(" |")
		for _, out := range b.ImplicitOutputs {
			sb.WriteString(" " + EscapeOutput(out))
		}
	}
	sb.WriteString(": " + b.Rule)
	for _, in := range b.Inputs {
		sb.WriteString(" " + EscapePath(in))
	}
	if len(b.Implicit) > 0 {
		sb.WriteString(" |")
		for _, in := range b.Implicit {
			sb.WriteString(" " + EscapePath(in))
		}
	}
	if len(b.OrderOnly) > 0 {
		sb.WriteString(" ||")
		for _, in := range b.OrderOnly {
			sb.WriteString(" " + EscapePath(in))
		}
	}
	sb.WriteString("\n")
	n.write(sb.String())
}

// Default writes the default statement. Nothing is written without targets.
func (n *Writer) Default(targets ...string) {
	if len(targets) == 0 {
		return
	}
	n.justDidBlankLine = false
	n.write("default " + strings.Join(escapeAll(targets, EscapeOutput), " ") + "\n")
}

// BlankLine writes an empty line unless the previous statement already was one.
func (n *Writer) BlankLine() {
	if !n.justDidBlankLine {
		n.justDidBlankLine = true
		n.write("\n")
	}
}

func (n *Writer) write(s string) {
	if n.err != nil {
		return
	}
	_, n.err = io.WriteString(n.w, s)
}
