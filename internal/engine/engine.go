package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
)

// Mode controls execution behavior.
type Mode int

const (
	ModeExplain Mode = iota
	ModeDryRun
	ModeRun
)

func (m Mode) String() string {
	switch m {
	case ModeExplain:
		return "explain"
	case ModeDryRun:
		return "dry-run"
	default:
		return "run"
	}
}

// Step is one stage of the installation pipeline.
type Step struct {
	ID          string
	Description string
	// Fatal steps stop the pipeline on failure even in lenient mode.
	Fatal bool
	// Enabled reports whether the step applies to cfg. Nil means always.
	Enabled func(cfg config.RunConfiguration) bool
	// DisabledNote explains a disabled step in the summary, e.g. "--skip-deps".
	DisabledNote string
	Run          func(ctx context.Context, rc *RunContext) error
}

// Execute runs steps in order in the given mode.
//
// A step failure halts the pipeline when the run is strict, when the step is
// Fatal, or when the error itself is fatal. Otherwise the failure is recorded
// and the next step starts. Steps after a halt are reported as skipped.
func Execute(ctx context.Context, steps []Step, rc *RunContext, mode Mode) *Result {
	start := time.Now()
	result := &Result{
		RunID:   rc.RunID,
		Success: true,
		LogFile: rc.Log.Path(),
	}
	if mode == ModeRun && rc.Store != nil {
		result.Artifacts = []string{rc.Store.BaseDir}
	}
	if mode != ModeExplain {
		rc.Log.Debug("Starting %d steps (%s mode, strict: %t)", len(steps), mode, rc.Config.Strict)
	}

	for _, step := range steps {
		rec := StepRecord{ID: step.ID, Description: step.Description}

		switch {
		case result.Halted:
			rec.Status = StatusSkipped
		case step.Enabled != nil && !step.Enabled(rc.Config):
			rec.Status = StatusDisabled
			rec.Note = step.DisabledNote
			if mode != ModeExplain {
				rc.Log.Info("Skipping %s (%s)", strings.ToLower(step.Description), step.DisabledNote)
			}
		case mode == ModeExplain:
			rec.Status = StatusExplain
		default:
			runStep(ctx, step, rc, mode, &rec, result)
		}

		result.Steps = append(result.Steps, rec)
	}

	result.Duration = time.Since(start).Round(time.Millisecond).String()
	if mode == ModeRun && rc.Store != nil {
		if err := rc.Store.WriteResult(result); err != nil {
			rc.Log.Warning("Could not write run record: %v", err)
		}
	}
	return result
}

func runStep(ctx context.Context, step Step, rc *RunContext, mode Mode, rec *StepRecord, result *Result) {
	if err := ctx.Err(); err != nil {
		fail(rec, result, step.ID, &dagerrors.RunError{Type: dagerrors.Cancelled, Message: "installation interrupted"})
		result.Halted = true
		return
	}

	rc.Log.Info("==> %s", step.Description)
	before := rc.Exec.Failures()
	begin := time.Now()
	err := step.Run(ctx, rc)
	rec.Duration = time.Since(begin).Round(time.Millisecond).String()
	rec.Results = rc.Exec.Drain()

	if mode == ModeRun && rc.Store != nil {
		if werr := rc.Store.WriteStepOutput(step.ID, combinedOutput(rec.Results)); werr != nil {
			rc.Log.Warning("Could not save output of step %s: %v", step.ID, werr)
		}
	}

	switch {
	case err != nil:
		re := toRunError(step.ID, err)
		fail(rec, result, step.ID, re)
		if step.Fatal || re.Fatal() || rc.Config.Strict {
			result.Halted = true
			rc.Log.Error("Step %s failed, stopping installation", step.ID)
		} else {
			rc.Log.Warning("Step %s failed, continuing", step.ID)
		}
	case rc.Exec.Failures() > before:
		n := rc.Exec.Failures() - before
		fail(rec, result, step.ID, &dagerrors.RunError{
			Type:    dagerrors.StepFailed,
			StepID:  step.ID,
			Message: fmt.Sprintf("%d command(s) failed in step %q", n, step.ID),
			Hint:    "See the log file for the failing commands",
		})
		rc.Log.Warning("Step %s finished with %d failure(s), continuing", step.ID, n)
	case mode == ModeDryRun:
		rec.Status = StatusDryRun
	default:
		rec.Status = StatusSuccess
	}
}

func fail(rec *StepRecord, result *Result, stepID string, re *dagerrors.RunError) {
	rec.Status = StatusFailed
	rec.Error = re.Message
	result.Success = false
	if result.FailedStepID == "" {
		result.FailedStepID = stepID
	}
	result.Errors = append(result.Errors, *re)
}

func toRunError(stepID string, err error) *dagerrors.RunError {
	if re, ok := dagerrors.As(err); ok {
		cp := *re
		if cp.StepID == "" {
			cp.StepID = stepID
		}
		return &cp
	}
	return dagerrors.NewStepError(stepID, err.Error(), "")
}

func combinedOutput(results []StepResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "$ %s\n", r.Command)
		if r.Output != "" {
			b.WriteString(r.Output)
			if !strings.HasSuffix(r.Output, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
