package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/moinsy-setup/internal/engine"
	"github.com/stevehiehn/moinsy-setup/internal/install"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
)

var explainCommands bool

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show the installation steps without executing",
	Long: `explain lists the installation steps in order for the given flags. With
--commands it also shows every command and file operation each step would run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := opts
		o.DryRun = true
		cfg, err := loadConfig(o)
		if err != nil {
			return err
		}

		mode := engine.ModeExplain
		if explainCommands {
			mode = engine.ModeDryRun
		}
		user, err := newEscalator().RealUser()
		if err != nil {
			return err
		}
		log := logger.New("", false, io.Discard)
		exec := engine.NewExecutor(newRunner(), log, cfg.Strict, true)
		rc := engine.NewRunContext(cfg, user, exec, log)
		result := engine.Execute(context.Background(), install.Steps(), rc, mode)

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, result)
		}

		fmt.Fprintf(out, "Install %s into %s (strict: %t)\n", cfg.SourceDir, cfg.InstallDir, cfg.Strict)
		if !explainCommands {
			fmt.Fprintln(out)
			for i, sr := range result.Steps {
				fmt.Fprintf(out, "%d. %s: %s", i+1, sr.ID, sr.Description)
				if sr.Note != "" {
					fmt.Fprintf(out, " [disabled by %s]", sr.Note)
				}
				fmt.Fprintln(out)
			}
			return nil
		}
		printPlan(out, result)
		return nil
	},
}

func init() {
	explainCmd.Flags().BoolVar(&explainCommands, "commands", false, "Also show the commands each step would run")
	rootCmd.AddCommand(explainCmd)
}
