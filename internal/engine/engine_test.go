package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stevehiehn/moinsy-setup/internal/artifact"
	"github.com/stevehiehn/moinsy-setup/internal/config"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
	"github.com/stevehiehn/moinsy-setup/internal/privilege"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// fakeRunner fails any command whose name is in fail.
type fakeRunner struct {
	fail map[string]bool
	ran  []string
}

func (f *fakeRunner) Run(_ context.Context, c runner.Command) *runner.Result {
	f.ran = append(f.ran, c.String())
	if f.fail[c.Name] {
		return &runner.Result{Output: c.Name + ": boom\n", ExitCode: 2}
	}
	return &runner.Result{Output: "ok\n"}
}

func makeCtx(t *testing.T, strict, dryRun bool, r runner.Runner) (*RunContext, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.RunConfiguration{
		RunID:      "test-run",
		InstallDir: filepath.Join(dir, "opt", "moinsy"),
		Strict:     strict,
		DryRun:     dryRun,
		RunDir:     dir,
		LogFile:    filepath.Join(dir, "setup.log"),
		Packages:   config.DefaultPackages,
	}
	var console bytes.Buffer
	log := logger.New(cfg.LogFile, false, &console)
	t.Cleanup(func() { log.Close() })
	exec := NewExecutor(r, log, strict, dryRun)
	return NewRunContext(cfg, privilege.Context{Username: "alice", UID: 1000, GID: 1000}, exec, log), &console
}

func cmdStep(id string, names ...string) Step {
	return Step{
		ID:          id,
		Description: "Run " + id,
		Run: func(ctx context.Context, rc *RunContext) error {
			for _, n := range names {
				if _, err := rc.Exec.Execute(ctx, runner.Cmd(n), "Failed to run "+n, ""); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func TestExplainModeDoesNotRun(t *testing.T) {
	fr := &fakeRunner{}
	rc, _ := makeCtx(t, true, false, fr)
	steps := []Step{cmdStep("s1", "apt-get"), cmdStep("s2", "pip")}

	result := Execute(context.Background(), steps, rc, ModeExplain)
	if len(result.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(result.Steps))
	}
	for _, sr := range result.Steps {
		if sr.Status != StatusExplain {
			t.Errorf("expected status 'explain', got %q", sr.Status)
		}
	}
	if len(fr.ran) != 0 {
		t.Errorf("expected nothing to run, got %v", fr.ran)
	}
}

func TestRunModeSuccess(t *testing.T) {
	fr := &fakeRunner{}
	rc, _ := makeCtx(t, true, false, fr)

	result := Execute(context.Background(), []Step{cmdStep("s1", "true", "echo")}, rc, ModeRun)
	if !result.Success || result.Halted {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Steps[0].Status != StatusSuccess {
		t.Errorf("expected status 'success', got %q", result.Steps[0].Status)
	}
	if len(result.Steps[0].Results) != 2 {
		t.Errorf("expected 2 command results, got %d", len(result.Steps[0].Results))
	}
}

func TestStrictFailureHalts(t *testing.T) {
	fr := &fakeRunner{fail: map[string]bool{"apt-get": true}}
	rc, _ := makeCtx(t, true, false, fr)
	steps := []Step{cmdStep("s1", "apt-get", "echo"), cmdStep("s2", "echo")}

	result := Execute(context.Background(), steps, rc, ModeRun)
	if result.Success || !result.Halted {
		t.Fatal("expected halted failure")
	}
	if result.FailedStepID != "s1" {
		t.Errorf("expected failed step s1, got %q", result.FailedStepID)
	}
	if result.Steps[1].Status != StatusSkipped {
		t.Errorf("expected s2 skipped, got %q", result.Steps[1].Status)
	}
	if len(fr.ran) != 1 {
		t.Errorf("expected only the failing command to run, got %v", fr.ran)
	}
	if result.Errors[0].Type != dagerrors.StepFailed || result.Errors[0].StepID != "s1" {
		t.Errorf("unexpected error %+v", result.Errors[0])
	}
}

func TestLenientFailureContinues(t *testing.T) {
	fr := &fakeRunner{fail: map[string]bool{"apt-get": true}}
	rc, console := makeCtx(t, false, false, fr)
	steps := []Step{cmdStep("s1", "apt-get", "echo"), cmdStep("s2", "echo")}

	result := Execute(context.Background(), steps, rc, ModeRun)
	if result.Halted {
		t.Fatal("lenient run must not halt")
	}
	if result.Success {
		t.Fatal("expected failures to be reported")
	}
	if result.Steps[0].Status != StatusFailed || result.Steps[1].Status != StatusSuccess {
		t.Errorf("unexpected statuses %q, %q", result.Steps[0].Status, result.Steps[1].Status)
	}
	if len(fr.ran) != 3 {
		t.Errorf("expected all commands to run, got %v", fr.ran)
	}
	if !strings.Contains(console.String(), "Failed to run apt-get") {
		t.Errorf("expected failure logged, got %q", console.String())
	}
}

func TestFatalStepHaltsInLenientMode(t *testing.T) {
	fr := &fakeRunner{}
	rc, _ := makeCtx(t, false, false, fr)
	steps := []Step{
		{ID: "verify", Description: "Verify", Fatal: true, Run: func(context.Context, *RunContext) error {
			return errors.New("source missing")
		}},
		cmdStep("s2", "echo"),
	}

	result := Execute(context.Background(), steps, rc, ModeRun)
	if !result.Halted {
		t.Fatal("expected fatal step to halt")
	}
	if result.Steps[1].Status != StatusSkipped {
		t.Errorf("expected s2 skipped, got %q", result.Steps[1].Status)
	}
}

func TestPreconditionErrorHaltsInLenientMode(t *testing.T) {
	rc, _ := makeCtx(t, false, false, &fakeRunner{})
	steps := []Step{
		{ID: "s1", Description: "Check", Run: func(context.Context, *RunContext) error {
			return dagerrors.NewPreconditionError("no marker", "")
		}},
		cmdStep("s2", "echo"),
	}

	result := Execute(context.Background(), steps, rc, ModeRun)
	if !result.Halted {
		t.Fatal("expected precondition failure to halt")
	}
	if result.Errors[0].Type != dagerrors.PreconditionFailed || result.Errors[0].StepID != "s1" {
		t.Errorf("unexpected error %+v", result.Errors[0])
	}
}

func TestDisabledStep(t *testing.T) {
	fr := &fakeRunner{}
	rc, _ := makeCtx(t, true, false, fr)
	step := cmdStep("deps", "apt-get")
	step.Enabled = func(cfg config.RunConfiguration) bool { return !cfg.SkipDeps }
	step.DisabledNote = "--skip-deps"
	rc.Config.SkipDeps = true

	result := Execute(context.Background(), []Step{step}, rc, ModeRun)
	if result.Steps[0].Status != StatusDisabled || result.Steps[0].Note != "--skip-deps" {
		t.Errorf("unexpected record %+v", result.Steps[0])
	}
	if len(fr.ran) != 0 {
		t.Errorf("expected nothing to run, got %v", fr.ran)
	}
}

func TestDryRunRecordsWithoutRunning(t *testing.T) {
	fr := &fakeRunner{}
	rc, _ := makeCtx(t, true, true, fr)

	result := Execute(context.Background(), []Step{cmdStep("s1", "apt-get")}, rc, ModeDryRun)
	if result.Steps[0].Status != StatusDryRun {
		t.Fatalf("expected dry-run, got %q", result.Steps[0].Status)
	}
	if len(fr.ran) != 0 {
		t.Errorf("expected nothing to run, got %v", fr.ran)
	}
	got := result.Steps[0].Results[0]
	if !got.DryRun || got.Output != "Would run: apt-get" {
		t.Errorf("unexpected dry-run result %+v", got)
	}

	data, err := os.ReadFile(rc.Log.Path())
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "Starting 1 steps (dry-run mode, strict: true)") {
		t.Errorf("expected mode in log, got %q", data)
	}
}

func TestCancelledContextHalts(t *testing.T) {
	rc, _ := makeCtx(t, false, false, &fakeRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Execute(ctx, []Step{cmdStep("s1", "echo"), cmdStep("s2", "echo")}, rc, ModeRun)
	if !result.Halted || result.Errors[0].Type != dagerrors.Cancelled {
		t.Fatalf("expected cancelled halt, got %+v", result)
	}
	if result.Steps[1].Status != StatusSkipped {
		t.Errorf("expected s2 skipped, got %q", result.Steps[1].Status)
	}
}

func TestRunModeWritesRunRecord(t *testing.T) {
	rc, _ := makeCtx(t, true, false, &fakeRunner{})
	store, err := artifact.New(rc.RunID, rc.Config.RunDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc.Store = store

	result := Execute(context.Background(), []Step{cmdStep("s1", "echo")}, rc, ModeRun)
	if len(result.Artifacts) != 1 || result.Artifacts[0] != store.BaseDir {
		t.Errorf("unexpected artifacts %v", result.Artifacts)
	}

	out, err := os.ReadFile(store.StepPath("s1"))
	if err != nil {
		t.Fatalf("step output not written: %v", err)
	}
	if string(out) != "$ echo\nok\n" {
		t.Errorf("unexpected step output %q", string(out))
	}

	data, err := os.ReadFile(filepath.Join(store.BaseDir, "result.json"))
	if err != nil {
		t.Fatalf("result not written: %v", err)
	}
	var saved Result
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("invalid result json: %v", err)
	}
	if saved.RunID != "test-run" || !saved.Success {
		t.Errorf("unexpected saved result %+v", saved)
	}
}
