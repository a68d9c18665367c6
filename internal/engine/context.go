package engine

import (
	"github.com/stevehiehn/moinsy-setup/internal/artifact"
	"github.com/stevehiehn/moinsy-setup/internal/config"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
	"github.com/stevehiehn/moinsy-setup/internal/privilege"
	"github.com/stevehiehn/moinsy-setup/internal/template"
)

// RunContext holds state shared by the steps of one installer run.
type RunContext struct {
	RunID   string
	Config  config.RunConfiguration
	User    privilege.Context
	Exec    *Executor
	Log     *logger.Logger
	Store   *artifact.Store // nil outside ModeRun
	TmplCtx *template.Context
}

// NewRunContext wires an Executor over exec for cfg's failure policy.
func NewRunContext(cfg config.RunConfiguration, user privilege.Context, exec *Executor, log *logger.Logger) *RunContext {
	return &RunContext{
		RunID:  cfg.RunID,
		Config: cfg,
		User:   user,
		Exec:   exec,
		Log:    log,
		TmplCtx: template.NewContext(map[string]string{
			"install_dir": cfg.InstallDir,
			"venv_dir":    cfg.VenvDir(),
			"interpreter": cfg.Packages.Interpreter,
			"username":    user.Username,
		}),
	}
}
