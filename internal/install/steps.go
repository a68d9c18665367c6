// Package install defines the ordered installation pipeline. Every step is
// idempotent: running the installer again over an existing installation
// converges on the same tree.
package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	"github.com/stevehiehn/moinsy-setup/internal/engine"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// Step IDs, in pipeline order.
const (
	StepVerifySource = "verify-source"
	StepDependencies = "dependencies"
	StepCopyFiles    = "copy-files"
	StepUsername     = "stamp-username"
	StepPythonEnv    = "python-env"
	StepDesktop      = "desktop-integration"
	StepRunScripts   = "run-scripts"
	StepPermissions  = "permissions"
)

const pythonFilePattern = "*.py"

// command is one executor invocation with its log messages.
type command struct {
	cmd    runner.Command
	errMsg string
	okMsg  string
}

// Steps returns the installation pipeline.
func Steps() []engine.Step {
	return []engine.Step{
		{ID: StepVerifySource, Description: "Verify source tree", Fatal: true, Run: verifySource},
		{
			ID: StepDependencies, Description: "Install system dependencies", Run: installDependencies,
			Enabled: func(c config.RunConfiguration) bool { return !c.SkipDeps }, DisabledNote: "--skip-deps",
		},
		{ID: StepCopyFiles, Description: "Copy application files", Run: copyFiles},
		{ID: StepUsername, Description: "Record invoking user", Run: stampUsername},
		{
			ID: StepPythonEnv, Description: "Create Python virtual environment", Run: pythonEnv,
			Enabled: func(c config.RunConfiguration) bool { return !c.SkipVenv }, DisabledNote: "--skip-venv",
		},
		{ID: StepDesktop, Description: "Register desktop entry and polkit policy", Run: desktopIntegration},
		{ID: StepRunScripts, Description: "Prepare run scripts", Run: runScripts},
		{ID: StepPermissions, Description: "Set permissions", Run: permissions},
	}
}

func verifySource(_ context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	info, err := os.Stat(cfg.SourceDir)
	if err != nil || !info.IsDir() {
		return dagerrors.NewPreconditionError(
			fmt.Sprintf("source directory %s not found", cfg.SourceDir),
			"Run moinsy-setup from the Moinsy checkout or pass --source",
		)
	}
	if _, err := os.Stat(cfg.SourceMarker()); err != nil {
		return dagerrors.NewPreconditionError(
			fmt.Sprintf("%s is not a Moinsy source tree: %s is missing", cfg.SourceDir, config.MarkerPath),
			"Pass --source pointing at the directory that contains src/moinsy.py",
		)
	}
	rc.Log.Success("Source tree found at %s", cfg.SourceDir)

	free, err := freeBytes(cfg.InstallDir)
	switch {
	case err != nil:
		rc.Log.Debug("Could not determine free space for %s: %v", cfg.InstallDir, err)
	case free < MinFreeBytes:
		rc.Log.Warning("Only %s free on the filesystem holding %s", humanize.IBytes(free), cfg.InstallDir)
	default:
		rc.Log.Debug("%s free on the filesystem holding %s", humanize.IBytes(free), cfg.InstallDir)
	}
	return nil
}

func installDependencies(ctx context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	pm := cfg.Packages.Manager

	if _, err := rc.Exec.Execute(ctx, managerCmd(pm, pm.Update), "Failed to update package lists", "Package lists updated"); err != nil {
		return err
	}

	base := append(append([]string{}, cfg.Packages.Base...), cfg.ExtraPackages...)
	if _, err := rc.Exec.Execute(ctx, managerCmd(pm, pm.Install, base...), "Failed to install system dependencies", "System dependencies installed"); err != nil {
		return err
	}

	if cfg.DevDeps && len(cfg.Packages.Dev) > 0 {
		if _, err := rc.Exec.Execute(ctx, managerCmd(pm, pm.Install, cfg.Packages.Dev...), "Failed to install development dependencies", "Development dependencies installed"); err != nil {
			return err
		}
	}
	return nil
}

func managerCmd(pm config.PackageManager, argv []string, pkgs ...string) runner.Command {
	args := append(append([]string{}, argv[1:]...), pkgs...)
	return runner.Cmd(argv[0], args...).WithEnv(pm.Env...)
}

func copyFiles(ctx context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	if cfg.SameTree() {
		rc.Log.Info("Source is the installation directory, nothing to copy")
	} else {
		params := map[string]string{"src": cfg.SourceDir, "dst": cfg.InstallDir}
		sr, err := rc.Exec.Apply(ctx, "dir.copy", params, "Failed to copy files to "+cfg.InstallDir, "")
		if err != nil {
			return err
		}
		if sr.Success && !sr.DryRun {
			rc.Log.Success("Copied %s files (%s) to %s", sr.Outputs["files"], sr.Outputs["size"], cfg.InstallDir)
		}
	}
	return chown(ctx, rc, cfg.InstallDir, true, "")
}

func stampUsername(ctx context.Context, rc *engine.RunContext) error {
	name := rc.User.Username
	if name == "" {
		return dagerrors.NewStepError(StepUsername, "invoking user is unknown", "Run moinsy-setup through sudo from your own account")
	}
	path := rc.Config.Installed(config.UsernamePath)
	params := map[string]string{"path": path, "content": name + "\n", "mode": "644"}
	if _, err := rc.Exec.Apply(ctx, "file.write", params, "Failed to write "+path, "Recorded user "+name); err != nil {
		return err
	}
	return chown(ctx, rc, path, false, "")
}

func pythonEnv(ctx context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	venv, python := cfg.VenvDir(), cfg.VenvPython()

	cmds := []command{
		{runner.Cmd(cfg.Packages.Interpreter, "-m", "venv", venv), "Failed to create virtual environment", "Virtual environment ready at " + venv},
		{runner.Cmd(python, "-m", "pip", "install", "--upgrade", "pip"), "Failed to upgrade pip", ""},
	}
	if manifest, ok := findManifest(cfg); ok {
		cmds = append(cmds, command{runner.Cmd(python, "-m", "pip", "install", "-r", manifest),
			"Failed to install Python requirements", "Python requirements installed from " + manifest})
	} else {
		args := append([]string{"-m", "pip", "install"}, cfg.Packages.Python...)
		cmds = append(cmds, command{runner.Cmd(python, args...), "Failed to install Python packages", "Python packages installed"})
	}

	for _, c := range cmds {
		if _, err := rc.Exec.Execute(ctx, c.cmd, c.errMsg, c.okMsg); err != nil {
			return err
		}
	}
	return nil
}

// findManifest returns the first requirements file present in the
// installation. A dry run also looks in the source tree, since nothing has
// been copied yet.
func findManifest(cfg config.RunConfiguration) (string, bool) {
	for _, rel := range config.RequirementsCandidates {
		if present(cfg, rel) {
			return cfg.Installed(rel), true
		}
	}
	return "", false
}

func present(cfg config.RunConfiguration, rel string) bool {
	if _, err := os.Stat(cfg.Installed(rel)); err == nil {
		return true
	}
	if cfg.DryRun {
		_, err := os.Stat(filepath.Join(cfg.SourceDir, filepath.FromSlash(rel)))
		return err == nil
	}
	return false
}

func desktopIntegration(ctx context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	files := []struct {
		rel, target, mode, tmpl, what string
	}{
		{config.DesktopPath, cfg.DesktopTarget(), "755", desktopTemplate, "desktop entry"},
		{config.PolicyPath, cfg.PolicyTarget(), "644", policyTemplate, "polkit policy"},
	}
	for _, f := range files {
		errMsg := fmt.Sprintf("Failed to install %s to %s", f.what, f.target)
		okMsg := fmt.Sprintf("Installed %s to %s", f.what, f.target)
		var err error
		if present(cfg, f.rel) {
			params := map[string]string{"src": cfg.Installed(f.rel), "dst": f.target, "mode": f.mode}
			_, err = rc.Exec.Apply(ctx, "file.copy", params, errMsg, okMsg)
		} else {
			rc.Log.Warning("%s not found in the installation, using the built-in %s", f.rel, f.what)
			err = writeRendered(ctx, rc, f.target, f.tmpl, f.mode, false, errMsg, okMsg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func runScripts(ctx context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	script := cfg.Installed(config.RunScriptName)
	if present(cfg, config.RunScriptName) {
		params := map[string]string{"path": script, "mode": "755"}
		if _, err := rc.Exec.Apply(ctx, "file.chmod", params, "Failed to make "+script+" executable", "Run script ready at "+script); err != nil {
			return err
		}
	} else {
		if err := writeRendered(ctx, rc, script, runScriptTemplate, "755", false,
			"Failed to write "+script, "Generated run script at "+script); err != nil {
			return err
		}
	}
	if err := chown(ctx, rc, script, false, ""); err != nil {
		return err
	}

	if !cfg.DevDeps {
		return nil
	}
	dev := cfg.Installed(config.DevRunScriptName)
	if err := writeRendered(ctx, rc, dev, runScriptTemplate, "755", true,
		"Failed to write "+dev, "Generated developer run script at "+dev); err != nil {
		return err
	}
	return chown(ctx, rc, dev, false, "")
}

func writeRendered(ctx context.Context, rc *engine.RunContext, path, tmpl, mode string, dev bool, errMsg, okMsg string) error {
	content, err := Render(tmpl, rc.TmplCtx, dev)
	if err != nil {
		return dagerrors.NewStepError("", err.Error(), "")
	}
	params := map[string]string{"path": path, "content": content, "mode": mode}
	_, err = rc.Exec.Apply(ctx, "file.write", params, errMsg, okMsg)
	return err
}

func permissions(ctx context.Context, rc *engine.RunContext) error {
	cfg := rc.Config
	if err := chown(ctx, rc, cfg.InstallDir, true, fmt.Sprintf("Ownership of %s set to %s", cfg.InstallDir, rc.User.Username)); err != nil {
		return err
	}
	params := map[string]string{"root": cfg.InstallDir, "pattern": pythonFilePattern, "add": "111"}
	_, err := rc.Exec.Apply(ctx, "glob.chmod", params, "Failed to make Python files executable", "Python files marked executable")
	return err
}

func chown(ctx context.Context, rc *engine.RunContext, path string, recursive bool, okMsg string) error {
	params := map[string]string{
		"path":      path,
		"uid":       strconv.Itoa(rc.User.UID),
		"gid":       strconv.Itoa(rc.User.GID),
		"recursive": strconv.FormatBool(recursive),
	}
	_, err := rc.Exec.Apply(ctx, "path.chown", params, fmt.Sprintf("Failed to set ownership of %s", path), okMsg)
	return err
}
