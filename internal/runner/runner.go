package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// exitNotFound mirrors the shell's exit status for a missing binary.
const exitNotFound = 127

// Command is a structured command descriptor: a binary plus its argv, never a
// shell string.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // KEY=VALUE pairs appended to the inherited environment
}

// Cmd builds a Command from a binary name and arguments.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// WithEnv returns a copy of c with extra environment variables.
func (c Command) WithEnv(kv ...string) Command {
	c.Env = append(append([]string(nil), c.Env...), kv...)
	return c
}

// Argv returns the full argument vector including the binary name.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command shell-quoted, environment first.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Env)+len(c.Args)+1)
	for _, kv := range c.Env {
		parts = append(parts, quote(kv))
	}
	for _, a := range c.Argv() {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Result holds the outcome of a command with stdout and stderr merged.
type Result struct {
	Output   string
	ExitCode int
}

// Runner executes command descriptors.
type Runner interface {
	Run(ctx context.Context, c Command) *Result
}

// Exec is the Runner backed by os/exec.
type Exec struct{}

// Run executes c and captures combined output regardless of exit status.
func (Exec) Run(ctx context.Context, c Command) *Result {
	cmd := build(ctx, c)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return &Result{Output: out.String(), ExitCode: exitCode(err, &out)}
}

// Attach runs c with the current process's stdio and returns its exit code.
func Attach(ctx context.Context, c Command) (int, error) {
	cmd := build(ctx, c)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return exitNotFound, err
}

func build(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func exitCode(err error, out *bytes.Buffer) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		// killed by a signal
		return 1
	}
	// Binary not found or other exec error.
	out.WriteString(err.Error())
	return exitNotFound
}
