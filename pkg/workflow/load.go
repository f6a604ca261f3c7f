package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile parses a single workflow YAML file.
func LoadFile(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, err
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("workflow: parse %s: %w", path, err)
	}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(wf.ValidStartScreens) == 0 {
		wf.ValidStartScreens = []string{HomeState}
	}
	return wf, nil
}

// LoadDir parses every *.yaml / *.yml file directly under dir (a handler's
// "workflows/" sub-directory) into a name-keyed map.
func LoadDir(dir string) (map[string]Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	workflows := make(map[string]Workflow, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		wf, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		workflows[wf.Name] = wf
	}
	return workflows, nil
}

// LoadScreens parses a screens.yaml describing an app's screen-state
// enumeration and their visual indicators.
func LoadScreens(path string) (Screens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Screens{}, err
	}
	var s Screens
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Screens{}, fmt.Errorf("workflow: parse screens %s: %w", path, err)
	}
	return s, nil
}
