package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	dagerrors "github.com/stevehiehn/moinsy-setup/internal/errors"
)

// loadConfig reads the optional configuration file and builds the run
// configuration from it and opts. An explicit --config must exist.
func loadConfig(opts config.Options) (config.RunConfiguration, error) {
	path, required := config.DefaultFile, false
	if opts.ConfigFile != "" {
		path, required = opts.ConfigFile, true
	}
	file, err := config.LoadFile(path, required)
	if err != nil {
		return config.RunConfiguration{}, err
	}
	return config.Build(opts, file, time.Now())
}

// parseEnv checks ["KEY=value", ...] and returns it unchanged.
func parseEnv(raw []string) ([]string, error) {
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, &dagerrors.RunError{
				Type:    dagerrors.UnknownInput,
				Message: fmt.Sprintf("invalid environment entry %q", kv),
				Hint:    "Use --env KEY=VALUE",
			}
		}
	}
	return raw, nil
}

// forwardedArgs rebuilds the flags the user set, for the elevated relaunch.
func forwardedArgs(flags *pflag.FlagSet) []string {
	var args []string
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed || f.Name == "help" {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			for _, v := range sv.GetSlice() {
				args = append(args, "--"+f.Name+"="+v)
			}
			return
		}
		if f.Value.Type() == "bool" && f.Value.String() == "true" {
			args = append(args, "--"+f.Name)
			return
		}
		args = append(args, "--"+f.Name+"="+f.Value.String())
	})
	return args
}
