package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
)

var (
	jsonOutput bool
	opts       config.Options
)

var rootCmd = &cobra.Command{
	Use:   "moinsy-setup",
	Short: "Install the Moinsy desktop application",
	Long: `moinsy-setup installs Moinsy into /opt/moinsy: system packages, application
files, a Python virtual environment, the desktop entry and the polkit policy.
It relaunches itself through sudo when not started as root.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runInstall(cmd, opts)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.Debug, "debug", "d", false, "Show debug output on the console")
	flags.StringVar(&opts.InstallDir, "install-dir", "", "Installation directory (default /opt/moinsy)")
	flags.StringVar(&opts.SourceDir, "source", "", "Moinsy source tree to install from (default current directory)")
	flags.StringVar(&opts.ConfigFile, "config", "", "Configuration file, YAML or TOML (default /etc/moinsy/setup.yaml if present)")
	flags.BoolVar(&opts.NoStrict, "no-strict", false, "Log failing commands and continue instead of stopping")
	flags.BoolVar(&opts.SkipVenv, "skip-venv", false, "Do not create the Python virtual environment")
	flags.BoolVar(&opts.SkipDeps, "skip-deps", false, "Do not install system packages")
	flags.BoolVar(&opts.DevDeps, "dev-deps", false, "Install development packages and a debug run script")
	flags.StringArrayVar(&opts.ExtraPackages, "extra-package", nil, "Additional system package to install (repeatable)")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be done without changing anything")
	flags.BoolVar(&jsonOutput, "json", false, "Output the run result as JSON")
}

// Execute runs the root command and exits 1 on failure.
func Execute() {
	if err := runRoot(rootCmd); err != nil {
		os.Exit(1)
	}
}

// runRoot executes root and prints a failure once, followed by its hint.
func runRoot(root *cobra.Command) error {
	err := root.Execute()
	if err != nil {
		root.PrintErrln("Error:", err)
		if re, ok := dagerrors.As(err); ok && re.Hint != "" {
			root.PrintErrf("Hint: %s\n", re.Hint)
		}
	}
	return err
}
