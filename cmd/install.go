package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/moinsy-setup/internal/artifact"
	"github.com/stevehiehn/moinsy-setup/internal/config"
	"github.com/stevehiehn/moinsy-setup/internal/engine"
	"github.com/stevehiehn/moinsy-setup/internal/install"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
	"github.com/stevehiehn/moinsy-setup/internal/privilege"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

// Process-facing dependencies, replaced in tests.
var (
	newEscalator = privilege.New
	newRunner    = func() runner.Runner { return runner.Exec{} }
)

func runInstall(cmd *cobra.Command, opts config.Options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	console := cmd.OutOrStdout()
	if jsonOutput {
		console = cmd.ErrOrStderr()
	}

	esc := newEscalator()
	var user privilege.Context
	if cfg.DryRun {
		if user, err = esc.RealUser(); err != nil {
			return err
		}
	} else {
		st, err := esc.Check()
		if err != nil {
			return err
		}
		if st.NeedsRelaunch {
			rlog := logger.New(cfg.LogFile, cfg.Debug, console)
			defer rlog.Close()
			rlog.Info("Root privileges required, relaunching with sudo")
			if err := esc.Relaunch(ctx, forwardedArgs(cmd.Flags())); err != nil {
				rlog.Error("Could not complete the installation with root privileges")
				return err
			}
			return nil
		}
		user = st.Context
	}

	log := logger.New(cfg.LogFile, cfg.Debug, console)
	defer log.Close()

	subtitle := fmt.Sprintf("Installing into %s for %s", cfg.InstallDir, user.Username)
	if cfg.DryRun {
		subtitle += " (dry run)"
	}
	log.Banner("Moinsy Setup", subtitle)
	log.Info("Log file: %s", cfg.LogFile)
	logSettings(log, cfg)

	exec := engine.NewExecutor(newRunner(), log, cfg.Strict, cfg.DryRun)
	rc := engine.NewRunContext(cfg, user, exec, log)
	mode := engine.ModeRun
	if cfg.DryRun {
		mode = engine.ModeDryRun
	} else if store, err := artifact.New(cfg.RunID, cfg.RunDir); err != nil {
		log.Warning("Could not create run record: %v", err)
	} else {
		rc.Store = store
	}

	result := engine.Execute(ctx, install.Steps(), rc, mode)

	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		renderSummary(console, log.Palette(), cfg, result)
	}
	reportOutcome(log, cfg, result)

	if result.Halted {
		return fmt.Errorf("installation stopped at step %s", result.FailedStepID)
	}
	return nil
}

func logSettings(log *logger.Logger, cfg config.RunConfiguration) {
	log.Debug("Run ID: %s", cfg.RunID)
	log.Debug("Source: %s", cfg.SourceDir)
	log.Debug("Install directory: %s", cfg.InstallDir)
	log.Debug("Strict: %t, skip deps: %t, skip venv: %t, dev deps: %t", cfg.Strict, cfg.SkipDeps, cfg.SkipVenv, cfg.DevDeps)
	if len(cfg.ExtraPackages) > 0 {
		log.Debug("Extra packages: %v", cfg.ExtraPackages)
	}
}

func reportOutcome(log *logger.Logger, cfg config.RunConfiguration, result *engine.Result) {
	switch {
	case result.Halted:
		log.Error("Installation stopped at step %s. See %s", result.FailedStepID, cfg.LogFile)
	case !result.Success:
		log.Warning("Installation finished with %d failed step(s). See %s", len(result.Errors), cfg.LogFile)
	case cfg.DryRun:
		log.Success("Dry run complete, nothing was changed")
	default:
		log.Success("Moinsy installed to %s", cfg.InstallDir)
		log.Info("Start it with %s or 'moinsy-setup launch'", cfg.Installed(config.RunScriptName))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
