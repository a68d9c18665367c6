package cmd

import (
	"fmt"
	"io"

	"github.com/stevehiehn/moinsy-setup/internal/engine"
)

// printPlan lists what each step would do, as recorded by a dry run.
func printPlan(w io.Writer, result *engine.Result) {
	fmt.Fprintln(w)
	for _, sr := range result.Steps {
		fmt.Fprintf(w, "Step: %s [%s]\n", sr.ID, sr.Status)
		if sr.Note != "" {
			fmt.Fprintf(w, "  Disabled by %s\n", sr.Note)
		}
		if sr.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", sr.Error)
		}
		for _, r := range sr.Results {
			fmt.Fprintf(w, "  %s\n", r.Output)
		}
		fmt.Fprintln(w)
	}
}
