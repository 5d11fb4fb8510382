package macro

import (
	"strings"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/zerr"
)

// Parse parses a macro string. loc is attached to syntax errors.
func Parse(src string, loc domain.Location) (*Expr, error) {
	p := &parser{src: src, loc: loc}
	nodes, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Expr{Source: src, Nodes: nodes}, nil
}

type parser struct {
	src string
	pos int
	loc domain.Location
}

func (p *parser) parse() ([]Node, error) {
	var nodes []Node
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, &Text{Value: text.String()})
			text.Reset()
		}
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c != '$' {
			text.WriteByte(c)
			p.pos++
			continue
		}

		start := p.pos
		p.pos++
		if p.pos >= len(p.src) {
			return nil, p.errorf(start, "dangling $")
		}

		switch c = p.src[p.pos]; {
		case c == '$':
			text.WriteByte('$')
			p.pos++
		case c == '<' || c == '@':
			flush()
			nodes = append(nodes, &Binding{Outputs: c == '@'})
			p.pos++
		case c == '{':
			flush()
			ref, err := p.parseBraced(start)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, ref)
		case c == '(':
			flush()
			call, err := p.parseCall(start)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, call)
		case isIdentStart(c):
			flush()
			nodes = append(nodes, &Ref{Name: p.scanName()})
		default:
			return nil, p.errorf(start, "unexpected character "+string(c)+" after $")
		}
	}

	flush()
	return nodes, nil
}

// scanName consumes an identifier, optionally qualified with "ns:".
func (p *parser) scanName() string {
	start := p.pos
	p.scanIdent()
	if p.pos+1 < len(p.src) && p.src[p.pos] == ':' && isIdentStart(p.src[p.pos+1]) {
		p.pos++
		p.scanIdent()
	}
	return p.src[start:p.pos]
}

func (p *parser) scanIdent() {
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) parseBraced(start int) (*Ref, error) {
	end := strings.IndexByte(p.src[p.pos:], '}')
	if end < 0 {
		return nil, p.errorf(start, "unterminated ${")
	}
	name := strings.TrimSpace(p.src[p.pos+1 : p.pos+end])
	p.pos += end + 1
	if !validName(name) {
		return nil, p.errorf(start, "malformed reference ${"+name+"}")
	}
	return &Ref{Name: name}, nil
}

func (p *parser) parseCall(start int) (*Call, error) {
	end := matchParen(p.src, p.pos)
	if end < 0 {
		return nil, p.errorf(start, "unterminated $(")
	}
	inner := strings.TrimLeft(p.src[p.pos+1:end], " \t\n")
	p.pos = end + 1

	nameEnd := strings.IndexAny(inner, " \t\n")
	if nameEnd < 0 {
		nameEnd = len(inner)
	}
	name := inner[:nameEnd]
	if !validName(name) {
		return nil, p.errorf(start, "malformed function name "+strings.TrimSpace(name))
	}

	call := &Call{Name: name}
	if ns, local, ok := strings.Cut(name, ":"); ok {
		call.Namespace, call.Name = ns, local
	}

	rest := strings.TrimSpace(inner[nameEnd:])
	if rest == "" {
		return call, nil
	}
	for _, raw := range splitArgs(rest) {
		arg, err := Parse(strings.TrimSpace(raw), p.loc)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

func (p *parser) errorf(offset int, msg string) error {
	err := zerr.With(zerr.Wrap(domain.ErrSyntax, msg), "macro", p.src)
	err = zerr.With(err, "offset", offset)
	if !p.loc.IsZero() {
		err = zerr.With(err, "location", p.loc.String())
	}
	return err
}

// matchParen returns the index of the parenthesis closing the one at open, or -1.
// Parentheses inside quotes do not count unless a quote is left open.
func matchParen(s string, open int) int {
	if end := scanParen(s, open, true); end >= 0 {
		return end
	}
	return scanParen(s, open, false)
}

func scanParen(s string, open int, quotes bool) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case quotes && (c == '"' || c == '\''):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits on commas that are neither nested in parentheses nor quoted.
func splitArgs(s string) []string {
	if args, ok := scanArgs(s, true); ok {
		return args
	}
	args, _ := scanArgs(s, false)
	return args
}

func scanArgs(s string, quotes bool) ([]string, bool) {
	var args []string
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case quotes && (c == '"' || c == '\''):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, s[last:i])
			last = i + 1
		}
	}
	return append(args, s[last:]), quote == 0
}

func validName(name string) bool {
	ns, local, qualified := strings.Cut(name, ":")
	if qualified {
		return validIdent(ns) && validIdent(local)
	}
	return validIdent(name)
}

func validIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
