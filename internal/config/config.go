// Package config builds the installer's RunConfiguration from command-line
// options, an optional YAML or TOML file and built-in defaults.
package config

import "path/filepath"

// Fixed locations inside an installation root.
const (
	DefaultInstallDir = "/opt/moinsy"
	DefaultFile       = "/etc/moinsy/setup.yaml"

	MarkerPath       = "src/moinsy.py"
	UsernamePath     = "src/resources/texts/username.txt"
	DesktopPath      = "src/resources/desktops/moinsy.desktop"
	PolicyPath       = "src/resources/policies/com.ubuntu.pkexec.moinsy.policy"
	VenvPath         = "venv"
	RunScriptName    = "run-moinsy.sh"
	DevRunScriptName = "dev-run-moinsy.sh"
	LogFileName      = "setup.log"
)

// ElevatedEnv is the program run through pkexec to start Moinsy with the
// caller's display variables. The polkit policy names it as exec.path.
const ElevatedEnv = "/usr/bin/env"

// RequirementsCandidates are checked in order for a Python requirements manifest.
var RequirementsCandidates = []string{"requirements.py", "src/requirements.py"}

// Layout holds the OS-level registration directories.
type Layout struct {
	ApplicationsDir  string `json:"applications_dir"`
	PolkitActionsDir string `json:"polkit_actions_dir"`
}

// DefaultLayout is where desktop launchers and PolKit policies are registered.
var DefaultLayout = Layout{
	ApplicationsDir:  "/usr/share/applications",
	PolkitActionsDir: "/usr/share/polkit-1/actions",
}

// PackageManager describes how system packages are installed.
type PackageManager struct {
	Update  []string `json:"update"`
	Install []string `json:"install"`
	Env     []string `json:"env,omitempty"`
}

// Packages lists what the installer puts on the system.
type Packages struct {
	Base    []string       `json:"base"`
	Dev     []string       `json:"dev"`
	Python  []string       `json:"python"` // used when no requirements manifest exists
	Manager PackageManager `json:"manager"`
	// Interpreter creates the virtual environment.
	Interpreter string `json:"interpreter"`
}

// DefaultPackages is the built-in package set.
var DefaultPackages = Packages{
	Base: []string{"python3", "python3-pip", "python3-venv", "policykit-1", "libxcb-cursor0"},
	Dev:  []string{"python3-dev", "build-essential", "git"},
	Python: []string{
		"PyQt6", "psutil", "humanize",
	},
	Manager: PackageManager{
		Update:  []string{"apt-get", "update"},
		Install: []string{"apt-get", "install", "-y"},
		Env:     []string{"DEBIAN_FRONTEND=noninteractive"},
	},
	Interpreter: "python3",
}

// RunConfiguration is built once at startup and passed by value to every
// step. Nothing mutates it after Build returns.
type RunConfiguration struct {
	RunID         string   `json:"run_id"`
	InstallDir    string   `json:"install_dir"`
	SourceDir     string   `json:"source_dir"`
	Strict        bool     `json:"strict"`
	SkipDeps      bool     `json:"skip_deps"`
	SkipVenv      bool     `json:"skip_venv"`
	DevDeps       bool     `json:"dev_deps"`
	Debug         bool     `json:"debug"`
	DryRun        bool     `json:"dry_run"`
	ExtraPackages []string `json:"extra_packages,omitempty"`
	RunDir        string   `json:"run_dir"`
	LogFile       string   `json:"log_file"`
	Packages      Packages `json:"packages"`
	Layout        Layout   `json:"layout"`
}

// Installed joins rel onto the installation root.
func (c RunConfiguration) Installed(rel string) string {
	return filepath.Join(c.InstallDir, filepath.FromSlash(rel))
}

// SourceMarker is the file whose presence proves SourceDir is a Moinsy tree.
func (c RunConfiguration) SourceMarker() string {
	return filepath.Join(c.SourceDir, filepath.FromSlash(MarkerPath))
}

func (c RunConfiguration) VenvDir() string    { return c.Installed(VenvPath) }
func (c RunConfiguration) VenvPython() string { return filepath.Join(c.VenvDir(), "bin", "python") }

func (c RunConfiguration) DesktopTarget() string {
	return filepath.Join(c.Layout.ApplicationsDir, filepath.Base(DesktopPath))
}

func (c RunConfiguration) PolicyTarget() string {
	return filepath.Join(c.Layout.PolkitActionsDir, filepath.Base(PolicyPath))
}

// SameTree reports whether the source and installation directories coincide.
func (c RunConfiguration) SameTree() bool {
	return filepath.Clean(c.SourceDir) == filepath.Clean(c.InstallDir)
}
