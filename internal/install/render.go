package install

import (
	"fmt"
	"maps"
	"strings"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	"github.com/stevehiehn/moinsy-setup/internal/template"
)

// Render resolves one of the built-in templates against tc. dev selects the
// developer flavour of the run script. The run script and the policy both
// name config.ElevatedEnv so polkit applies the policy to the launch.
func Render(text string, tc *template.Context, dev bool) (string, error) {
	inputs := maps.Clone(tc.Inputs)
	if inputs == nil {
		inputs = map[string]string{}
	}
	inputs["env_program"] = config.ElevatedEnv
	inputs["debug_env"], inputs["debug_args"] = "", ""
	if dev {
		inputs["debug_env"], inputs["debug_args"] = devEnv, devArgs
	}

	var missing []string
	for _, name := range template.Inputs(text) {
		if _, ok := inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("rendering template: missing %s", strings.Join(missing, ", "))
	}

	out, err := template.Resolve(text, template.NewContext(inputs))
	if err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return out, nil
}
