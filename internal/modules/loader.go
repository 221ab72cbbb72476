package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kotoscript/koto/internal/compiler"
	"github.com/kotoscript/koto/internal/exec"
	"github.com/kotoscript/koto/internal/frontend"
	"github.com/kotoscript/koto/internal/value"
)

// sourceExt is this module system's recognized source file extension,
// adapted from funxy's config.SourceFileExt convention.
const sourceExt = ".koto"

// FileLoader resolves `import`/`from..import` module names (§6.5) against a
// search path of directories, the way funxy's modules.Loader resolves
// package paths: a cache keyed by resolved absolute path, and a
// currently-loading set for import-cycle detection.
type FileLoader struct {
	Roots []string

	mu      sync.Mutex
	entries map[string]*entry
}

// NewFileLoader builds a loader that searches roots, in order, for a file
// or directory named after the imported module. Each root's own
// koto.mod.yaml, if present, is read immediately and its declared roots
// folded in, so a project can vendor a library directory without every
// embedder call site knowing about it.
func NewFileLoader(roots ...string) *FileLoader {
	l := &FileLoader{entries: make(map[string]*entry)}
	all := append([]string{}, roots...)
	for _, root := range roots {
		m, err := LoadManifest(root)
		if err != nil || m == nil {
			continue
		}
		all = expandManifestRoots(all, root, m)
	}
	l.Roots = all
	return l
}

// ResolveAll resolves several independent module names concurrently, each
// on its own fresh VM (safe, since runChunk never shares a register file
// across goroutines - only the loader's cache map is shared, guarded by
// l.mu). Mirrors funxy's own use of errgroup for concurrent module loading;
// useful when a script's import list names more than one module up front.
func (l *FileLoader) ResolveAll(names []string) ([]*value.Map, error) {
	results := make([]*value.Map, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			m, err := l.Resolve(name)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Resolve implements exec.Resolver.
func (l *FileLoader) Resolve(name string) (*value.Map, error) {
	path, err := l.findSource(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if e, ok := l.entries[path]; ok {
		if e.loading {
			l.mu.Unlock()
			return nil, fmt.Errorf("import cycle detected loading %q", name)
		}
		l.mu.Unlock()
		return e.exports, nil
	}
	l.entries[path] = &entry{loading: true}
	l.mu.Unlock()

	exports, err := l.loadFile(path)

	l.mu.Lock()
	if err != nil {
		delete(l.entries, path)
	} else {
		l.entries[path] = &entry{exports: exports}
	}
	l.mu.Unlock()

	return exports, err
}

func (l *FileLoader) loadFile(path string) (*value.Map, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module %q: %w", path, err)
	}
	block, err := frontend.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing module %q: %w", path, err)
	}
	chunk, err := compiler.CompileMain(block, path)
	if err != nil {
		return nil, fmt.Errorf("compiling module %q: %w", path, err)
	}

	vm := exec.New()
	vm.SetResolver(l)
	if _, err := vm.Run(chunk); err != nil {
		return nil, fmt.Errorf("running module %q: %w", path, err)
	}
	exports := vm.Exports()
	if exports == nil {
		exports = value.NewMap()
	}
	return exports, nil
}

// findSource locates the source file for a module name, following the same
// two conventions funxy's detectPackageExtension/hasSourceFiles did: a
// direct "name.koto" file, or a directory "name/" whose own main file is
// "name/name.koto".
func (l *FileLoader) findSource(name string) (string, error) {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator))
	candidates := make([]string, 0, len(l.Roots)*2)
	for _, root := range l.Roots {
		candidates = append(candidates,
			filepath.Join(root, rel+sourceExt),
			filepath.Join(root, rel, filepath.Base(rel)+sourceExt),
		)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(c)
			if err != nil {
				return "", err
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("module %q not found (searched %d candidate paths)", name, len(candidates))
}
