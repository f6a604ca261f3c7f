// Package registry implements the module registry and routing component
// (C4): handler discovery from a directory layout, and scored routing of an
// utterance to a handler when type-based routing does not apply.
package registry

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModuleInfo is the metadata loaded for one handler directory under apps/.
type ModuleInfo struct {
	Name        string   `yaml:"name"`
	PackageID   string   `yaml:"package_id"`
	Keywords    []string `yaml:"keywords"`
	Patterns    []string `yaml:"patterns"`
	Description string   `yaml:"description"`

	// Dir is the absolute path to the handler's directory, populated by the
	// loader rather than read from the manifest itself.
	Dir string `yaml:"-"`
}

const manifestFileName = "manifest.yaml"

// loadManifest reads and parses one handler's manifest.yaml.
func loadManifest(dir string) (ModuleInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return ModuleInfo{}, err
	}
	var info ModuleInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return ModuleInfo{}, err
	}
	info.Dir = dir
	if info.Name == "" {
		info.Name = filepath.Base(dir)
	}
	return info, nil
}

// DiscoverModules walks appsRoot's immediate sub-directories, loading a
// ModuleInfo for every one that carries a manifest.yaml. Sub-directories
// without a manifest are silently skipped — not every directory under apps/
// need be a handler (e.g. shared asset directories).
func DiscoverModules(appsRoot string) ([]ModuleInfo, error) {
	entries, err := os.ReadDir(appsRoot)
	if err != nil {
		return nil, err
	}
	var modules []ModuleInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(appsRoot, e.Name())
		info, err := loadManifest(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		modules = append(modules, info)
	}
	return modules, nil
}
