package modules

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// manifestFile is the optional per-root module manifest, the same shape
// funxy's own project config uses YAML for. It lets a module root declare
// additional search roots (e.g. a vendored lib directory) without the
// embedder having to know about them up front.
const manifestFile = "koto.mod.yaml"

// Manifest describes one root directory's module metadata.
type Manifest struct {
	Name  string   `yaml:"name"`
	Roots []string `yaml:"roots"`
}

// LoadManifest reads dir/koto.mod.yaml if present; a missing manifest is
// not an error; a malformed one is.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// expandManifestRoots resolves a manifest's declared roots relative to the
// directory it was found in and appends any not already present.
func expandManifestRoots(roots []string, baseDir string, m *Manifest) []string {
	if m == nil {
		return roots
	}
	for _, r := range m.Roots {
		abs := r
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(baseDir, r)
		}
		found := false
		for _, existing := range roots {
			if existing == abs {
				found = true
				break
			}
		}
		if !found {
			roots = append(roots, abs)
		}
	}
	return roots
}
