// Package privilege decides whether the installer already runs as root and,
// if not, relaunches it under sudo. The real invoking user is resolved once so
// installed files can be handed back to them instead of staying root-owned.
package privilege

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// Context identifies the real user behind an elevated run.
type Context struct {
	Username string `json:"username"`
	UID      int    `json:"uid"`
	GID      int    `json:"gid"`
	HomeDir  string `json:"home_dir"`
}

// Status is the outcome of Check: exactly one of Elevated or NeedsRelaunch is set.
type Status struct {
	Elevated      bool
	NeedsRelaunch bool
	Context       Context
}

// Escalator holds the process facts the elevation gate depends on.
type Escalator struct {
	Geteuid    func() int
	Getenv     func(string) string
	LookupUser func(name string) (*user.User, error)
	Current    func() (*user.User, error)
	Executable func() (string, error)
	Attach     func(ctx context.Context, c runner.Command) (int, error)
	Sudo       string
}

// New returns an Escalator bound to the running process.
func New() *Escalator {
	return &Escalator{
		Geteuid:    unix.Geteuid,
		Getenv:     os.Getenv,
		LookupUser: user.Lookup,
		Current:    user.Current,
		Executable: os.Executable,
		Attach:     runner.Attach,
		Sudo:       "sudo",
	}
}

// Check reports whether the process is privileged. When it is, the real user
// is resolved from SUDO_USER, then USER, then the current account.
func (e *Escalator) Check() (Status, error) {
	if e.Geteuid() != 0 {
		return Status{NeedsRelaunch: true}, nil
	}
	ctx, err := e.RealUser()
	if err != nil {
		return Status{}, err
	}
	return Status{Elevated: true, Context: ctx}, nil
}

// RealUser resolves the invoking user without requiring privilege.
func (e *Escalator) RealUser() (Context, error) {
	for _, env := range []string{"SUDO_USER", "USER"} {
		name := e.Getenv(env)
		if name == "" {
			continue
		}
		// USER is root under a plain root login; only trust it when it names someone else.
		if env == "USER" && name == "root" && e.Geteuid() == 0 {
			break
		}
		u, err := e.LookupUser(name)
		if err != nil {
			return Context{}, fmt.Errorf("looking up %s=%q: %w", env, name, err)
		}
		return fromUser(u)
	}
	u, err := e.Current()
	if err != nil {
		return Context{}, fmt.Errorf("resolving current user: %w", err)
	}
	return fromUser(u)
}

// Relaunch re-invokes the running binary under sudo with args unchanged and
// waits for it. A nil error means the privileged child finished with exit 0.
func (e *Escalator) Relaunch(ctx context.Context, args []string) error {
	exe, err := e.executablePath()
	if err != nil {
		return &dagerrors.RunError{
			Type:    dagerrors.ElevationFailed,
			Message: fmt.Sprintf("resolving installer path: %v", err),
		}
	}

	cmd := e.RelaunchCommand(exe, args)
	code, err := e.Attach(ctx, cmd)
	if err != nil {
		return &dagerrors.RunError{
			Type:    dagerrors.ElevationFailed,
			Code:    code,
			Message: fmt.Sprintf("running %s: %v", e.Sudo, err),
			Hint:    "Install sudo or run the installer as root",
		}
	}
	if code != 0 {
		return &dagerrors.RunError{
			Type:    dagerrors.ElevationFailed,
			Code:    code,
			Message: fmt.Sprintf("elevated installer exited with code %d", code),
			Hint:    "See the log file of the elevated run for details",
		}
	}
	return nil
}

// RelaunchCommand is the command Relaunch runs for exe.
func (e *Escalator) RelaunchCommand(exe string, args []string) runner.Command {
	return runner.Cmd(e.Sudo, append([]string{exe}, args...)...)
}

func (e *Escalator) executablePath() (string, error) {
	exe, err := e.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Abs(exe)
}

func fromUser(u *user.User) (Context, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Context{}, fmt.Errorf("user %q has non-numeric uid %q", u.Username, u.Uid)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Context{}, fmt.Errorf("user %q has non-numeric gid %q", u.Username, u.Gid)
	}
	return Context{Username: u.Username, UID: uid, GID: gid, HomeDir: u.HomeDir}, nil
}
