package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File is the optional on-disk configuration. All fields are optional; zero
// values fall back to the built-in defaults.
type File struct {
	InstallDir string `yaml:"install_dir" toml:"install_dir"`
	SourceDir  string `yaml:"source_dir" toml:"source_dir"`
	Strict     *bool  `yaml:"strict" toml:"strict"`

	Packages       FilePackages       `yaml:"packages" toml:"packages"`
	PackageManager FilePackageManager `yaml:"package_manager" toml:"package_manager"`
	Paths          FilePaths          `yaml:"paths" toml:"paths"`
}

// FilePackages overrides package lists.
type FilePackages struct {
	Base        []string `yaml:"base" toml:"base"`
	Dev         []string `yaml:"dev" toml:"dev"`
	Extra       []string `yaml:"extra" toml:"extra"`
	Python      []string `yaml:"python" toml:"python"`
	Interpreter string   `yaml:"interpreter" toml:"interpreter"`
}

// FilePackageManager overrides the package manager invocations.
type FilePackageManager struct {
	Update  []string `yaml:"update" toml:"update"`
	Install []string `yaml:"install" toml:"install"`
	Env     []string `yaml:"env" toml:"env"`
}

// FilePaths overrides registration directories.
type FilePaths struct {
	ApplicationsDir  string `yaml:"applications_dir" toml:"applications_dir"`
	PolkitActionsDir string `yaml:"polkit_actions_dir" toml:"polkit_actions_dir"`
}

// LoadFile reads a configuration file. When required is false a missing file
// yields an empty File.
func LoadFile(path string, required bool) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes configuration bytes. ext selects the format: ".toml" for TOML,
// anything else is YAML.
func Parse(data []byte, ext string) (*File, error) {
	f := &File{}
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), f); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}
	return f, nil
}
