package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store keeps the on-disk record of one installer run: the log file, the
// combined output of each step and the final result.
type Store struct {
	RunID   string
	BaseDir string // <tmp>/moinsy-setup-<timestamp>-<id>
}

// New creates the run directory layout under dir.
func New(runID, dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "steps"), 0o755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}
	return &Store{RunID: runID, BaseDir: dir}, nil
}

// StepPath returns where the output of stepID is kept.
func (s *Store) StepPath(stepID string) string {
	return filepath.Join(s.BaseDir, "steps", stepID+".out")
}

// WriteStepOutput writes the combined output of a step. Empty output
// leaves no file behind.
func (s *Store) WriteStepOutput(stepID, output string) error {
	if output == "" {
		return nil
	}
	return os.WriteFile(s.StepPath(stepID), []byte(output), 0o644)
}

// WriteResult writes the final result JSON.
func (s *Store) WriteResult(result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.BaseDir, "result.json"), data, 0o644)
}
