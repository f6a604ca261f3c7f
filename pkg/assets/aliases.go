package assets

import (
	"os"

	"gopkg.in/yaml.v3"
)

// aliasFile mirrors an app's aliases.yaml: a flat map from a human-language
// display name to the reference name it resolves to.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads an app's aliases.yaml. A missing file is not an error —
// an app with no aliases simply resolves names directly.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Aliases == nil {
		return map[string]string{}, nil
	}
	return f.Aliases, nil
}
