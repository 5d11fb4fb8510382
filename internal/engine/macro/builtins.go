package macro

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/engine/namespace"
	"go.trai.ch/zerr"
)

type callContext struct {
	eval  *Evaluator
	scope *namespace.Scope
}

type builtin struct {
	min, max int
	run      func(c *callContext, args [][]string) ([]string, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"wildcard":  {min: 1, max: -1, run: wildcard},
		"move":      {min: 3, max: 4, run: move},
		"setsuffix": {min: 2, max: 2, run: setSuffix},
		"addprefix": {min: 2, max: 2, run: addPrefix},
		"addsuffix": {min: 2, max: 2, run: addSuffix},
		"dir":       {min: 1, max: 1, run: mapEach(filepath.Dir)},
		"notdir":    {min: 1, max: 1, run: mapEach(filepath.Base)},
		"join":      {min: 2, max: 2, run: join},
		"quote":     {min: 1, max: 1, run: quote},
		"quoteall":  {min: 1, max: 1, run: quoteAll},
		"eq":        {min: 2, max: 2, run: equal(true)},
		"ne":        {min: 2, max: 2, run: equal(false)},
		"defined":   {min: 1, max: 1, run: defined},
		// if is evaluated lazily by the evaluator; the entry only reserves the name.
		"if": {min: 2, max: 3},
	}
}

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// wildcard globs every pattern relative to the directory of the calling unit.
// The result is root-relative, deduplicated and sorted.
func wildcard(c *callContext, args [][]string) ([]string, error) {
	if c.eval.snapshot == nil {
		return nil, zerr.Wrap(domain.ErrGlobFailed, "no filesystem snapshot available")
	}
	seen := make(map[string]struct{})
	var matches []string
	for _, arg := range args {
		for _, pattern := range arg {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(c.scope.Dir(), pattern)
			}
			found, err := c.eval.snapshot.Glob(pattern)
			if err != nil {
				return nil, err
			}
			for _, m := range found {
				if _, dup := seen[m]; dup {
					continue
				}
				seen[m] = struct{}{}
				matches = append(matches, m)
			}
		}
	}
	slices.Sort(matches)
	return matches, nil
}

// move re-roots every path from one directory to another and optionally replaces its extension.
func move(_ *callContext, args [][]string) ([]string, error) {
	from := filepath.Clean(scalar(args[1]))
	to := scalar(args[2])
	ext, hasExt := "", len(args) == 4
	if hasExt {
		ext = scalar(args[3])
	}

	out := make([]string, 0, len(args[0]))
	for _, p := range args[0] {
		rel, err := filepath.Rel(from, filepath.Clean(p))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrPathOutsideRoot, "cannot move "+p),
				"path", p), "root", from)
		}
		moved := filepath.Join(to, rel)
		if hasExt {
			moved = replaceExt(moved, ext)
		}
		out = append(out, filepath.ToSlash(moved))
	}
	return out, nil
}

func setSuffix(_ *callContext, args [][]string) ([]string, error) {
	ext := scalar(args[1])
	out := make([]string, len(args[0]))
	for i, p := range args[0] {
		out[i] = replaceExt(p, ext)
	}
	return out, nil
}

func addPrefix(_ *callContext, args [][]string) ([]string, error) {
	prefix := scalar(args[0])
	out := make([]string, len(args[1]))
	for i, v := range args[1] {
		out[i] = prefix + v
	}
	return out, nil
}

func addSuffix(_ *callContext, args [][]string) ([]string, error) {
	suffix := scalar(args[0])
	out := make([]string, len(args[1]))
	for i, v := range args[1] {
		out[i] = v + suffix
	}
	return out, nil
}

func mapEach(fn func(string) string) func(*callContext, [][]string) ([]string, error) {
	return func(_ *callContext, args [][]string) ([]string, error) {
		out := make([]string, len(args[0]))
		for i, v := range args[0] {
			out[i] = filepath.ToSlash(fn(v))
		}
		return out, nil
	}
}

func join(_ *callContext, args [][]string) ([]string, error) {
	return []string{strings.Join(args[0], scalar(args[1]))}, nil
}

// quote shell-quotes the whole sequence as a single token.
func quote(_ *callContext, args [][]string) ([]string, error) {
	return []string{shellquote.Join(strings.Join(args[0], " "))}, nil
}

// quoteAll shell-quotes every element as an independent token.
func quoteAll(_ *callContext, args [][]string) ([]string, error) {
	out := make([]string, len(args[0]))
	for i, v := range args[0] {
		out[i] = shellquote.Join(v)
	}
	return out, nil
}

func equal(want bool) func(*callContext, [][]string) ([]string, error) {
	return func(_ *callContext, args [][]string) ([]string, error) {
		if slices.Equal(args[0], args[1]) == want {
			return []string{"true"}, nil
		}
		return nil, nil
	}
}

func defined(c *callContext, args [][]string) ([]string, error) {
	if c.scope.Defined(scalar(args[0])) {
		return []string{"true"}, nil
	}
	return nil, nil
}

func scalar(values []string) string {
	return strings.Join(values, " ")
}

func replaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}
