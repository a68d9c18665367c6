package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
)

var packageNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+_:=<>~-]*$`)

// unsafePathChars may not appear in the install directory: it is written
// unescaped into the generated bash scripts and the desktop entry's Exec line.
const unsafePathChars = "\"'`$\\ \t\n\r"

// Validate checks a configuration for structural correctness.
func Validate(c RunConfiguration) error {
	if !filepath.IsAbs(c.InstallDir) {
		return dagerrors.NewValidationError(
			fmt.Sprintf("install directory %q is not absolute", c.InstallDir),
			"Pass --install-dir=/absolute/path")
	}
	if filepath.Clean(c.InstallDir) == "/" {
		return dagerrors.NewValidationError("refusing to install into /", "Pass --install-dir=/opt/moinsy")
	}
	if i := strings.IndexAny(c.InstallDir, unsafePathChars); i >= 0 {
		return dagerrors.NewValidationError(
			fmt.Sprintf("install directory %q contains %q", c.InstallDir, c.InstallDir[i:i+1]),
			"Choose a path without spaces, quotes, backslashes or '$'")
	}

	lists := map[string][]string{
		"base":   c.Packages.Base,
		"dev":    c.Packages.Dev,
		"extra":  c.ExtraPackages,
		"python": c.Packages.Python,
	}
	for set, names := range lists {
		for _, name := range names {
			if !packageNameRe.MatchString(name) {
				return dagerrors.NewValidationError(
					fmt.Sprintf("invalid package name %q in %s packages", name, set),
					"Package names must start with a letter or digit and contain no spaces or shell characters")
			}
		}
	}

	if len(c.Packages.Manager.Install) == 0 || len(c.Packages.Manager.Update) == 0 {
		return dagerrors.NewValidationError("package manager commands must not be empty",
			"Set package_manager.update and package_manager.install in the config file")
	}
	for _, kv := range c.Packages.Manager.Env {
		if !strings.Contains(kv, "=") {
			return dagerrors.NewValidationError(
				fmt.Sprintf("package manager env entry %q is not KEY=VALUE", kv), "")
		}
	}
	if c.Packages.Interpreter == "" {
		return dagerrors.NewValidationError("python interpreter must not be empty", "")
	}

	for name, dir := range map[string]string{
		"applications_dir":   c.Layout.ApplicationsDir,
		"polkit_actions_dir": c.Layout.PolkitActionsDir,
	} {
		if !filepath.IsAbs(dir) {
			return dagerrors.NewValidationError(fmt.Sprintf("%s %q is not absolute", name, dir), "")
		}
	}
	return nil
}
