package fs

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.UnitLocator = (*Locator)(nil)

// Locator finds unit scripts by the identity declared in their leading unit block.
// Identities are read once per file.
type Locator struct {
	mu         sync.Mutex
	identities map[string]string
}

// NewLocator creates a new Locator.
func NewLocator() *Locator {
	return &Locator{identities: make(map[string]string)}
}

// Discover returns the unit scripts directly inside dir, sorted by path.
func (l *Locator) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnitReadFailed, err.Error()), "path", dir)
	}
	var scripts []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), domain.UnitFileExt) {
			scripts = append(scripts, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(scripts)
	return scripts, nil
}

// Locate scans each search path and its immediate subdirectories, in order,
// and returns the first script that declares identity.
func (l *Locator) Locate(searchPaths []string, identity string) (string, error) {
	for _, dir := range searchPaths {
		for _, candidate := range l.candidates(dir) {
			if l.identity(candidate) == identity {
				return candidate, nil
			}
		}
	}
	return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrUnitNotFound, "cannot locate "+identity),
		"unit", identity), "path", strings.Join(searchPaths, string(filepath.ListSeparator)))
}

// candidates lists the scripts in dir followed by those in its subdirectories.
func (l *Locator) candidates(dir string) []string {
	scripts, err := l.Discover(dir)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return scripts
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		nested, err := l.Discover(filepath.Join(dir, e.Name()))
		if err == nil {
			scripts = append(scripts, nested...)
		}
	}
	return scripts
}

// identity returns the identity declared by the script at path, or "" if it declares none.
func (l *Locator) identity(path string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id, ok := l.identities[path]; ok {
		return id
	}

	id := readIdentity(path)
	l.identities[path] = id
	return id
}

func readIdentity(path string) string {
	src, err := os.ReadFile(path) //nolint:gosec // Path comes from a search path listing
	if err != nil {
		return ""
	}
	// A partially broken script still yields the blocks parsed before the error.
	file, _ := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if file == nil {
		return ""
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok || len(body.Blocks) == 0 {
		return ""
	}
	first := body.Blocks[0]
	if first.Type != "unit" || len(first.Labels) != 1 {
		return ""
	}
	return first.Labels[0]
}
