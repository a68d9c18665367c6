package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
	"github.com/stevehiehn/moinsy-setup/internal/launch"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
	"github.com/stevehiehn/moinsy-setup/internal/runner"
)

var launchEnv []string

// attach runs the launched application; replaced in tests.
var attach = runner.Attach

var launchCmd = &cobra.Command{
	Use:   "launch [-- moinsy args...]",
	Short: "Start the installed Moinsy with elevated privileges",
	Long: `launch checks the display session and the virtual environment, then starts
Moinsy through pkexec, passing DISPLAY and XAUTHORITY along.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		env, err := parseEnv(launchEnv)
		if err != nil {
			return err
		}

		c, err := launch.Plan(cfg, os.Getenv, newEscalator().Geteuid(), launch.Options{Debug: cfg.Debug, Env: env, Args: args})
		if err != nil {
			return err
		}
		log := logger.New("", cfg.Debug, cmd.ErrOrStderr())
		log.Info("Starting Moinsy")
		log.Debug("Command: %s", c)
		if cfg.DryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Would run: %s\n", c)
			return nil
		}

		code, err := attach(cmd.Context(), c)
		if err != nil {
			return fmt.Errorf("starting Moinsy: %w", err)
		}
		if code != 0 {
			return &dagerrors.RunError{
				Type:    dagerrors.StepFailed,
				Code:    code,
				Message: fmt.Sprintf("Moinsy exited with code %d", code),
				Hint:    "Run 'moinsy-setup launch --debug' for verbose output",
			}
		}
		return nil
	},
}

func init() {
	launchCmd.Flags().StringArrayVar(&launchEnv, "env", nil, "Extra environment variable for Moinsy (KEY=VALUE)")
	rootCmd.AddCommand(launchCmd)
}
