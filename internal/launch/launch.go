// Package launch starts an installed Moinsy with the privileges it needs,
// carrying the caller's display session across pkexec.
package launch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// Options tune the launched application.
type Options struct {
	Debug bool
	Env   []string // extra KEY=VALUE pairs
	Args  []string // passed through to moinsy.py
}

// Plan checks that the installation can start and returns the command that
// starts it. getenv supplies the caller's environment.
func Plan(cfg config.RunConfiguration, getenv func(string) string, euid int, opts Options) (runner.Command, error) {
	display := getenv("DISPLAY")
	if display == "" {
		return runner.Command{}, dagerrors.NewPreconditionError(
			"no display server found: DISPLAY is not set",
			"Start Moinsy from a graphical session",
		)
	}
	python := cfg.VenvPython()
	if _, err := os.Stat(python); err != nil {
		return runner.Command{}, dagerrors.NewPreconditionError(
			fmt.Sprintf("virtual environment not found at %s", cfg.VenvDir()),
			"Re-run moinsy-setup without --skip-venv",
		)
	}
	script := cfg.Installed(config.MarkerPath)
	if _, err := os.Stat(script); err != nil {
		return runner.Command{}, dagerrors.NewPreconditionError(
			fmt.Sprintf("%s not found", script),
			"Re-run moinsy-setup to install the application files",
		)
	}

	env := []string{"DISPLAY=" + display}
	if xauth := xauthority(getenv); xauth != "" {
		env = append(env, "XAUTHORITY="+xauth)
	}
	if opts.Debug {
		env = append(env, "MOINSY_DEBUG=1")
	}
	env = append(env, opts.Env...)

	args := []string{script}
	if opts.Debug {
		args = append(args, "--debug")
	}
	args = append(args, opts.Args...)

	if euid == 0 {
		return runner.Cmd(python, args...).WithEnv(env...), nil
	}
	argv := append(append(append([]string{config.ElevatedEnv}, env...), python), args...)
	return runner.Cmd("pkexec", argv...), nil
}

func xauthority(getenv func(string) string) string {
	if v := getenv("XAUTHORITY"); v != "" {
		return v
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".Xauthority")
	}
	return ""
}
