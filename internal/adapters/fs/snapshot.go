package fs

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.Snapshotter  = (*Snapshotter)(nil)
	_ ports.FileSnapshot = (*Snapshot)(nil)
)

// Snapshotter hands out one Snapshot per pass.
type Snapshotter struct {
	walker *Walker
}

// NewSnapshotter creates a new Snapshotter.
func NewSnapshotter(walker *Walker) *Snapshotter {
	return &Snapshotter{walker: walker}
}

// Snapshot starts a new snapshot rooted at root.
func (s *Snapshotter) Snapshot(root string) ports.FileSnapshot {
	return &Snapshot{
		root:    root,
		walker:  s.walker,
		globs:   make(map[string][]string),
		listing: make(map[string][]string),
	}
}

// Snapshot answers glob queries relative to a root and remembers every answer,
// so a pass sees one consistent view of the filesystem.
//
// Patterns use filepath.Match syntax per path element. A "**" element matches any
// number of directories and is served from a walk of the directory before it.
type Snapshot struct {
	root   string
	walker *Walker

	mu      sync.Mutex
	globs   map[string][]string
	listing map[string][]string
}

// Glob returns the sorted, root-relative, slash-separated matches of pattern.
func (s *Snapshot) Glob(pattern string) ([]string, error) {
	pattern = filepath.ToSlash(filepath.Clean(pattern))

	s.mu.Lock()
	defer s.mu.Unlock()

	if matches, ok := s.globs[pattern]; ok {
		return matches, nil
	}

	var (
		matches []string
		err     error
	)
	if strings.Contains(pattern, "**") {
		matches, err = s.recursive(pattern)
	} else {
		matches, err = s.glob(pattern)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrGlobFailed, err.Error()), "path", pattern)
	}
	slices.Sort(matches)
	matches = slices.Compact(matches)
	s.globs[pattern] = matches
	return matches, nil
}

func (s *Snapshot) glob(pattern string) ([]string, error) {
	found, err := filepath.Glob(s.abs(pattern))
	if err != nil {
		return nil, err
	}
	matches := make([]string, 0, len(found))
	for _, f := range found {
		matches = append(matches, s.rel(f))
	}
	return matches, nil
}

func (s *Snapshot) recursive(pattern string) ([]string, error) {
	// Validate every element up front, filepath.Match only reports bad patterns it reaches.
	for _, elem := range strings.Split(pattern, "/") {
		if elem == "**" {
			continue
		}
		if _, err := filepath.Match(elem, ""); err != nil {
			return nil, err
		}
	}

	base := staticPrefix(pattern)
	var matches []string
	for _, file := range s.files(base) {
		if matchElements(strings.Split(pattern, "/"), strings.Split(file, "/")) {
			matches = append(matches, file)
		}
	}
	return matches, nil
}

// files returns the root-relative files below dir, walking it at most once.
func (s *Snapshot) files(dir string) []string {
	if files, ok := s.listing[dir]; ok {
		return files
	}
	var files []string
	for path := range s.walker.WalkFiles(s.abs(dir), nil) {
		files = append(files, s.rel(path))
	}
	s.listing[dir] = files
	return files
}

func (s *Snapshot) abs(p string) string {
	if filepath.IsAbs(filepath.FromSlash(p)) {
		return filepath.FromSlash(p)
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

func (s *Snapshot) rel(p string) string {
	r, err := filepath.Rel(s.root, p)
	if err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}

// staticPrefix returns the leading pattern elements that contain no metacharacters.
func staticPrefix(pattern string) string {
	elems := strings.Split(pattern, "/")
	var prefix []string
	for _, elem := range elems[:len(elems)-1] {
		if strings.ContainsAny(elem, "*?[\\") {
			break
		}
		prefix = append(prefix, elem)
	}
	if len(prefix) == 0 {
		return "."
	}
	if prefix[0] == "" {
		return "/" + strings.Join(prefix[1:], "/")
	}
	return strings.Join(prefix, "/")
}

func matchElements(pattern, path []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(path); i++ {
				if matchElements(rest, path[i:]) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 {
			return false
		}
		if ok, _ := filepath.Match(pattern[0], path[0]); !ok {
			return false
		}
		pattern, path = pattern[1:], path[1:]
	}
	return len(path) == 0
}
