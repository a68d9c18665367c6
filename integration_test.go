package main

import (
	"context"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stevehiehn/moinsy-setup/internal/artifact"
	"github.com/stevehiehn/moinsy-setup/internal/config"
	"github.com/stevehiehn/moinsy-setup/internal/engine"
	"github.com/stevehiehn/moinsy-setup/internal/install"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
	"github.com/stevehiehn/moinsy-setup/internal/privilege"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// checkout writes a minimal Moinsy source tree and returns its path.
func checkout(t *testing.T, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "moinsy")
	for rel, content := range map[string]string{
		"src/moinsy.py":                                          "import sys\nprint('moinsy')\n",
		"src/core/tools/update_tool.py":                          "pass\n",
		"src/resources/texts/about.txt":                          "Moinsy\n",
		"src/resources/desktops/moinsy.desktop":                  "[Desktop Entry]\nName=Moinsy\nExec=/opt/moinsy/run-moinsy.sh\n",
		"src/resources/policies/com.ubuntu.pkexec.moinsy.policy": "<policyconfig/>\n",
		"src/requirements.py":                                    "PyQt6\npsutil\n",
	} {
		writeFile(t, filepath.Join(src, filepath.FromSlash(rel)), content)
	}
	return src
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// buildConfig builds a configuration whose package manager is echo, so the
// real runner can execute it without touching the system.
func buildConfig(t *testing.T, dir, src string, opts config.Options, fileText string) config.RunConfiguration {
	t.Helper()
	t.Setenv("TMPDIR", filepath.Join(dir, "tmp"))
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		t.Fatal(err)
	}
	if fileText == "" {
		fileText = `
package_manager:
  update: [echo, update]
  install: [echo, install]
paths:
  applications_dir: ` + filepath.Join(dir, "applications") + `
  polkit_actions_dir: ` + filepath.Join(dir, "polkit") + `
`
	}
	file, err := config.Parse([]byte(fileText), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	opts.SourceDir = src
	opts.InstallDir = filepath.Join(dir, "opt", "moinsy")
	cfg, err := config.Build(opts, file, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func currentUser(t *testing.T) privilege.Context {
	t.Helper()
	u, err := user.Current()
	if err != nil {
		t.Fatal(err)
	}
	return privilege.Context{Username: u.Username, UID: os.Getuid(), GID: os.Getgid(), HomeDir: u.HomeDir}
}

func runInstaller(t *testing.T, cfg config.RunConfiguration) *engine.Result {
	t.Helper()
	log := logger.New(cfg.LogFile, cfg.Debug, io.Discard)
	defer log.Close()
	ex := engine.NewExecutor(runner.Exec{}, log, cfg.Strict, cfg.DryRun)
	rc := engine.NewRunContext(cfg, currentUser(t), ex, log)
	store, err := artifact.New(cfg.RunID, cfg.RunDir)
	if err != nil {
		t.Fatal(err)
	}
	rc.Store = store
	return engine.Execute(context.Background(), install.Steps(), rc, engine.ModeRun)
}

func TestInstallerE2E(t *testing.T) {
	dir := t.TempDir()
	src := checkout(t, dir)
	cfg := buildConfig(t, dir, src, config.Options{SkipVenv: true, ExtraPackages: []string{"htop"}}, "")

	result := runInstaller(t, cfg)
	if !result.Success {
		t.Fatalf("expected success, got failure at step %s: %v", result.FailedStepID, result.Errors)
	}
	if len(result.Steps) != 8 {
		t.Fatalf("expected 8 steps, got %d", len(result.Steps))
	}

	name, _ := os.ReadFile(cfg.Installed(config.UsernamePath))
	if string(name) != currentUser(t).Username+"\n" {
		t.Fatalf("unexpected username file %q", string(name))
	}
	if _, err := os.Stat(cfg.DesktopTarget()); err != nil {
		t.Fatalf("desktop entry not installed: %v", err)
	}
	info, err := os.Stat(cfg.Installed("src/core/tools/update_tool.py"))
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable python file, got %v %v", info, err)
	}

	// run record: log, per-step output, result
	log, _ := os.ReadFile(cfg.LogFile)
	if !strings.Contains(string(log), "[SUCCESS] System dependencies installed") {
		t.Fatalf("log file missing success record:\n%s", log)
	}
	deps, _ := os.ReadFile(filepath.Join(cfg.RunDir, "steps", install.StepDependencies+".out"))
	if !strings.Contains(string(deps), "install python3 python3-pip python3-venv policykit-1 libxcb-cursor0 htop") {
		t.Fatalf("unexpected dependency output %q", string(deps))
	}
	if _, err := os.Stat(filepath.Join(cfg.RunDir, "result.json")); err != nil {
		t.Fatalf("result.json not written: %v", err)
	}
}

func TestInstallerTwiceE2E(t *testing.T) {
	dir := t.TempDir()
	src := checkout(t, dir)
	if err := os.Symlink("moinsy.py", filepath.Join(src, "src", "main.py")); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(filepath.Join(src, "src/resources/texts/about.txt"), 0o444); err != nil {
		t.Fatal(err)
	}
	cfg := buildConfig(t, dir, src, config.Options{SkipVenv: true, SkipDeps: true}, "")

	for i := 0; i < 2; i++ {
		if result := runInstaller(t, cfg); !result.Success {
			t.Fatalf("run %d failed at %s: %v", i+1, result.FailedStepID, result.Errors)
		}
	}
	script, err := os.ReadFile(cfg.Installed(config.RunScriptName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(script), `INSTALL_DIR="`+cfg.InstallDir+`"`) {
		t.Fatalf("generated run script does not point at the installation:\n%s", script)
	}
	if target, err := os.Readlink(cfg.Installed("src/main.py")); err != nil || target != "moinsy.py" {
		t.Fatalf("expected src/main.py -> moinsy.py, got %q %v", target, err)
	}
	info, err := os.Stat(cfg.Installed("src/resources/texts/about.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o444 {
		t.Fatalf("expected read-only about.txt, got %v", info.Mode().Perm())
	}
}

func TestStrictFailureE2E(t *testing.T) {
	dir := t.TempDir()
	src := checkout(t, dir)
	cfg := buildConfig(t, dir, src, config.Options{SkipVenv: true}, `
package_manager:
  update: ["false"]
  install: [echo, install]
`)

	result := runInstaller(t, cfg)
	if !result.Halted || result.FailedStepID != install.StepDependencies {
		t.Fatalf("expected halt at dependencies, got %+v", result)
	}
	if _, err := os.Stat(cfg.InstallDir); !os.IsNotExist(err) {
		t.Fatal("nothing should be copied after a strict failure")
	}
}

func TestLenientFailureE2E(t *testing.T) {
	dir := t.TempDir()
	src := checkout(t, dir)
	cfg := buildConfig(t, dir, src, config.Options{SkipVenv: true, NoStrict: true}, `
package_manager:
  update: ["false"]
  install: [echo, install]
paths:
  applications_dir: `+filepath.Join(dir, "applications")+`
  polkit_actions_dir: `+filepath.Join(dir, "polkit")+`
`)

	result := runInstaller(t, cfg)
	if result.Halted {
		t.Fatalf("lenient run halted at %s", result.FailedStepID)
	}
	if result.Success {
		t.Fatal("expected the failed update to be reported")
	}
	if _, err := os.Stat(cfg.Installed(config.UsernamePath)); err != nil {
		t.Fatalf("later steps should still run: %v", err)
	}
}

func TestMissingToolE2E(t *testing.T) {
	dir := t.TempDir()
	src := checkout(t, dir)
	cfg := buildConfig(t, dir, src, config.Options{SkipDeps: true, NoStrict: true}, `
packages:
  interpreter: moinsy-no-such-python
paths:
  applications_dir: `+filepath.Join(dir, "applications")+`
  polkit_actions_dir: `+filepath.Join(dir, "polkit")+`
`)

	result := runInstaller(t, cfg)
	var venv engine.StepRecord
	for _, s := range result.Steps {
		if s.ID == install.StepPythonEnv {
			venv = s
		}
	}
	if venv.Status != engine.StatusFailed {
		t.Fatalf("expected python-env to fail, got %q", venv.Status)
	}
	if venv.Results[0].ExitCode != 127 {
		t.Fatalf("expected exit code 127 for a missing interpreter, got %d", venv.Results[0].ExitCode)
	}
}

func TestGeneratedRunScriptChecksDisplayE2E(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	dir := t.TempDir()
	src := checkout(t, dir)
	cfg := buildConfig(t, dir, src, config.Options{SkipVenv: true, SkipDeps: true}, "")
	if result := runInstaller(t, cfg); !result.Success {
		t.Fatalf("install failed: %v", result.Errors)
	}

	script := cfg.Installed(config.RunScriptName)
	cmd := exec.Command("bash", script)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir}
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatal("expected the run script to fail without a display")
	}
	if !strings.Contains(string(out), "no display server found") {
		t.Fatalf("unexpected output %q", out)
	}

	cmd = exec.Command("bash", script)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir, "DISPLAY=:0"}
	out, _ = cmd.CombinedOutput()
	if !strings.Contains(string(out), "virtual environment not found") {
		t.Fatalf("expected venv check, got %q", out)
	}
}

func TestRunIDsAreUniqueE2E(t *testing.T) {
	dir := t.TempDir()
	src := checkout(t, dir)
	a := buildConfig(t, dir, src, config.Options{}, "")
	b := buildConfig(t, dir, src, config.Options{}, "")
	if a.RunID == b.RunID || a.RunDir == b.RunDir {
		t.Fatalf("expected distinct runs, got %s and %s", a.RunDir, b.RunDir)
	}
	if !strings.HasPrefix(filepath.Base(a.RunDir), "moinsy-setup-") {
		t.Fatalf("unexpected run dir %s", a.RunDir)
	}
}
