package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// resolveName picks the project name from manifest declarations, trying each
// format in a fixed priority order and falling back to the directory name.
func resolveName(root string) string {
	resolvers := []func(string) string{
		nameFromPackageJSON,
		nameFromCargoToml,
		nameFromPyproject,
		nameFromPubspec,
		nameFromGoMod,
	}

	for _, resolve := range resolvers {
		if name := resolve(root); name != "" {
			return name
		}
	}

	return filepath.Base(root)
}

func nameFromPackageJSON(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}

	var manifest struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Name
}

func nameFromCargoToml(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return ""
	}

	var manifest struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := gotoml.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Package.Name
}

func nameFromPyproject(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return ""
	}

	var manifest struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
	}
	if err := gotoml.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Project.Name
}

func nameFromPubspec(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "pubspec.yaml"))
	if err != nil {
		return ""
	}

	var manifest struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Name
}

func nameFromGoMod(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			modulePath := strings.TrimSpace(strings.TrimPrefix(line, "module "))
			if modulePath == "" {
				return ""
			}
			parts := strings.Split(modulePath, "/")
			return parts[len(parts)-1]
		}
	}
	return ""
}
