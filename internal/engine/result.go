package engine

import dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"

// Step statuses.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"  // not reached because an earlier step halted the run
	StatusDisabled = "disabled" // turned off by a flag
	StatusDryRun   = "dry-run"
	StatusExplain  = "explain"
)

// Result is the structured output of a pipeline execution.
type Result struct {
	RunID        string               `json:"run_id"`
	Success      bool                 `json:"success"`
	Halted       bool                 `json:"halted"`
	FailedStepID string               `json:"failed_step_id,omitempty"`
	LogFile      string               `json:"log_file,omitempty"`
	Artifacts    []string             `json:"artifacts,omitempty"`
	Duration     string               `json:"duration,omitempty"`
	Steps        []StepRecord         `json:"steps"`
	Errors       []dagerrors.RunError `json:"errors,omitempty"`
}

// StepRecord describes the outcome of a single pipeline step.
type StepRecord struct {
	ID          string       `json:"id"`
	Description string       `json:"description,omitempty"`
	Status      string       `json:"status"`
	Note        string       `json:"note,omitempty"`
	Duration    string       `json:"duration,omitempty"`
	Error       string       `json:"error,omitempty"`
	Results     []StepResult `json:"results,omitempty"`
}

// StepResult is the outcome of one command or action run by the Executor.
type StepResult struct {
	Command  string            `json:"command"`
	Success  bool              `json:"success"`
	ExitCode int               `json:"exit_code,omitempty"`
	Output   string            `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
	DryRun   bool              `json:"dry_run,omitempty"`
	Outputs  map[string]string `json:"outputs,omitempty"`
}
