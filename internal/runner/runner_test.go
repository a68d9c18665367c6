package runner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunEchoHello(t *testing.T) {
	r := Exec{}.Run(context.Background(), Cmd("echo", "hello"))
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	if strings.TrimSpace(r.Output) != "hello" {
		t.Errorf("expected output 'hello', got %q", r.Output)
	}
}

func TestRunMergesStderr(t *testing.T) {
	r := Exec{}.Run(context.Background(), Cmd("sh", "-c", "echo out; echo err >&2"))
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	if !strings.Contains(r.Output, "out") || !strings.Contains(r.Output, "err") {
		t.Errorf("expected merged output, got %q", r.Output)
	}
}

func TestRunNonZeroExitCodeKeepsOutput(t *testing.T) {
	r := Exec{}.Run(context.Background(), Cmd("sh", "-c", "echo broken; exit 42"))
	if r.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", r.ExitCode)
	}
	if strings.TrimSpace(r.Output) != "broken" {
		t.Errorf("expected output 'broken', got %q", r.Output)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := Exec{}.Run(context.Background(), Cmd("definitely-not-a-real-binary-xyz"))
	if r.ExitCode != exitNotFound {
		t.Errorf("expected exit code %d, got %d", exitNotFound, r.ExitCode)
	}
	if r.Output == "" {
		t.Error("expected lookup error in output")
	}
}

func TestRunPassesEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	c := Command{Name: "sh", Args: []string{"-c", "echo $GREETING; pwd"}, Dir: dir}
	r := Exec{}.Run(context.Background(), c.WithEnv("GREETING=hi"))
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	lines := strings.Split(strings.TrimSpace(r.Output), "\n")
	if len(lines) != 2 || lines[0] != "hi" {
		t.Fatalf("unexpected output %q", r.Output)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if lines[1] != want {
		t.Errorf("expected cwd %q, got %q", want, lines[1])
	}
}

func TestCommandString(t *testing.T) {
	c := Cmd("pip", "install", "PyQt6", "psutil", "humanize").WithEnv("DEBIAN_FRONTEND=noninteractive")
	want := "DEBIAN_FRONTEND=noninteractive pip install PyQt6 psutil humanize"
	if c.String() != want {
		t.Errorf("expected %q, got %q", want, c.String())
	}

	c = Cmd("sh", "-c", "echo it's")
	if c.String() != `sh -c 'echo it'\''s'` {
		t.Errorf("unexpected quoting %q", c.String())
	}
}

func TestWithEnvDoesNotAlias(t *testing.T) {
	base := Cmd("env").WithEnv("A=1")
	a := base.WithEnv("B=2")
	b := base.WithEnv("C=3")
	if len(base.Env) != 1 {
		t.Fatalf("base env mutated: %v", base.Env)
	}
	if a.Env[1] != "B=2" || b.Env[1] != "C=3" {
		t.Errorf("expected independent env slices, got %v and %v", a.Env, b.Env)
	}
}
