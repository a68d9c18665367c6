package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Options are the raw command-line settings.
type Options struct {
	InstallDir    string
	SourceDir     string
	ConfigFile    string
	NoStrict      bool
	SkipVenv      bool
	SkipDeps      bool
	DevDeps       bool
	Debug         bool
	DryRun        bool
	ExtraPackages []string
}

// Build merges options over file over defaults and validates the result.
// Flags win over the file; the file wins over defaults.
func Build(opts Options, file *File, now time.Time) (RunConfiguration, error) {
	if file == nil {
		file = &File{}
	}

	cfg := RunConfiguration{
		RunID:    uuid.New().String(),
		Strict:   true,
		SkipDeps: opts.SkipDeps,
		SkipVenv: opts.SkipVenv,
		DevDeps:  opts.DevDeps,
		Debug:    opts.Debug,
		DryRun:   opts.DryRun,
		Packages: mergePackages(file),
		Layout:   mergeLayout(file.Paths),
	}
	if file.Strict != nil {
		cfg.Strict = *file.Strict
	}
	if opts.NoStrict {
		cfg.Strict = false
	}

	installDir := first(opts.InstallDir, file.InstallDir, DefaultInstallDir)
	abs, err := filepath.Abs(installDir)
	if err != nil {
		return RunConfiguration{}, fmt.Errorf("resolving install directory: %w", err)
	}
	cfg.InstallDir = abs

	sourceDir := first(opts.SourceDir, file.SourceDir, ".")
	if abs, err = filepath.Abs(sourceDir); err != nil {
		return RunConfiguration{}, fmt.Errorf("resolving source directory: %w", err)
	}
	cfg.SourceDir = abs

	cfg.ExtraPackages = append(clone(file.Packages.Extra), opts.ExtraPackages...)

	cfg.RunDir = RunDir(os.TempDir(), now, cfg.RunID)
	cfg.LogFile = filepath.Join(cfg.RunDir, LogFileName)

	if err := Validate(cfg); err != nil {
		return RunConfiguration{}, err
	}
	return cfg, nil
}

// RunDir is the per-invocation directory holding the log file and run record.
func RunDir(tmp string, now time.Time, runID string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(tmp, fmt.Sprintf("moinsy-setup-%s-%s", now.Format("20060102-150405"), short))
}

func mergePackages(f *File) Packages {
	p := Packages{
		Base:        clone(DefaultPackages.Base),
		Dev:         clone(DefaultPackages.Dev),
		Python:      clone(DefaultPackages.Python),
		Manager:     PackageManager{Update: clone(DefaultPackages.Manager.Update), Install: clone(DefaultPackages.Manager.Install), Env: clone(DefaultPackages.Manager.Env)},
		Interpreter: first(f.Packages.Interpreter, DefaultPackages.Interpreter),
	}
	if len(f.Packages.Base) > 0 {
		p.Base = clone(f.Packages.Base)
	}
	if len(f.Packages.Dev) > 0 {
		p.Dev = clone(f.Packages.Dev)
	}
	if len(f.Packages.Python) > 0 {
		p.Python = clone(f.Packages.Python)
	}
	if len(f.PackageManager.Update) > 0 {
		p.Manager.Update = clone(f.PackageManager.Update)
	}
	if len(f.PackageManager.Install) > 0 {
		p.Manager.Install = clone(f.PackageManager.Install)
	}
	if f.PackageManager.Env != nil {
		p.Manager.Env = clone(f.PackageManager.Env)
	}
	return p
}

func mergeLayout(p FilePaths) Layout {
	return Layout{
		ApplicationsDir:  first(p.ApplicationsDir, DefaultLayout.ApplicationsDir),
		PolkitActionsDir: first(p.PolkitActionsDir, DefaultLayout.PolkitActionsDir),
	}
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
