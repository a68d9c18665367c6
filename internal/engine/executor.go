package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/stevehiehn/moinsy-setup/internal/action"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// Executor runs commands and file actions under the run's failure policy.
//
// In strict mode a failure is returned as a StepFailed error and the caller
// must stop. In lenient mode the failure is logged and counted, and nil is
// returned so the caller carries on.
type Executor struct {
	Runner runner.Runner
	Log    *logger.Logger
	Strict bool
	DryRun bool

	results  []StepResult
	failures int
}

// NewExecutor returns an Executor using r.
func NewExecutor(r runner.Runner, log *logger.Logger, strict, dryRun bool) *Executor {
	return &Executor{Runner: r, Log: log, Strict: strict, DryRun: dryRun}
}

// Execute runs c. errMsg is logged on failure, okMsg (when non-empty) on success.
func (e *Executor) Execute(ctx context.Context, c runner.Command, errMsg, okMsg string) (*StepResult, error) {
	sr := &StepResult{Command: c.String()}
	if e.DryRun {
		return e.dryRun(sr, "Would run: "+sr.Command), nil
	}

	e.Log.Debug("Executing: %s", sr.Command)
	res := e.Runner.Run(ctx, c)
	sr.Output = res.Output
	sr.ExitCode = res.ExitCode
	if err := ctx.Err(); err != nil {
		return e.cancelled(sr, err)
	}
	return e.finish(sr, res.ExitCode == 0, fmt.Sprintf("exit code %d", res.ExitCode), errMsg, okMsg)
}

// Apply runs the named file action with params under the same policy as Execute.
func (e *Executor) Apply(ctx context.Context, name string, params map[string]string, errMsg, okMsg string) (*StepResult, error) {
	act, err := action.Get(name)
	if err != nil {
		return nil, &dagerrors.RunError{
			Type:    dagerrors.ToolNotFound,
			Message: err.Error(),
			Hint:    "Available actions: " + strings.Join(action.Names(), ", "),
		}
	}
	sr := &StepResult{Command: describeAction(name, params)}
	if e.DryRun {
		return e.dryRun(sr, act.DryRun(params)), nil
	}
	if err := ctx.Err(); err != nil {
		return e.cancelled(sr, err)
	}

	e.Log.Debug("Applying: %s", sr.Command)
	outputs, err := act.Execute(params)
	sr.Outputs = outputs
	detail := ""
	if err != nil {
		sr.Output = err.Error()
		detail = err.Error()
	}
	return e.finish(sr, err == nil, detail, errMsg, okMsg)
}

// Failures returns how many commands or actions have failed so far.
func (e *Executor) Failures() int { return e.failures }

// Drain returns the results recorded since the last call and resets them.
func (e *Executor) Drain() []StepResult {
	out := e.results
	e.results = nil
	return out
}

func (e *Executor) finish(sr *StepResult, ok bool, detail, errMsg, okMsg string) (*StepResult, error) {
	out := strings.TrimSpace(sr.Output)
	if !ok {
		if errMsg == "" {
			errMsg = "command failed: " + sr.Command
		}
		sr.Error = errMsg
		e.failures++
		e.results = append(e.results, *sr)
		if out != "" {
			e.Log.Error("%s\n%s", errMsg, out)
		} else {
			e.Log.Error("%s", errMsg)
		}
		if e.Strict {
			return sr, &dagerrors.RunError{
				Type:    dagerrors.StepFailed,
				Message: fmt.Sprintf("%s (%s)", errMsg, detail),
				Hint:    "Re-run with --no-strict to continue past failing commands",
			}
		}
		return sr, nil
	}

	sr.Success = true
	e.results = append(e.results, *sr)
	if out != "" {
		e.Log.Debug("%s", out)
	}
	if okMsg != "" {
		e.Log.Success("%s", okMsg)
	}
	return sr, nil
}

func (e *Executor) dryRun(sr *StepResult, info string) *StepResult {
	sr.Success = true
	sr.DryRun = true
	sr.Output = info
	e.results = append(e.results, *sr)
	e.Log.Info("[dry-run] %s", info)
	return sr
}

func (e *Executor) cancelled(sr *StepResult, err error) (*StepResult, error) {
	sr.Error = err.Error()
	e.failures++
	e.results = append(e.results, *sr)
	return sr, &dagerrors.RunError{Type: dagerrors.Cancelled, Message: fmt.Sprintf("interrupted while running %s", sr.Command)}
}

func describeAction(name string, params map[string]string) string {
	keys := []string{"src", "dst", "path", "root", "pattern", "mode", "add", "uid", "gid"}
	parts := []string{name}
	for _, k := range keys {
		if v, ok := params[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
