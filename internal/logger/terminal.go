package logger

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// colorProfile picks the color profile for console output written to w.
// NO_COLOR disables colors, FORCE_COLOR enables them even when piped.
func colorProfile(w io.Writer) termenv.Profile {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	if v := os.Getenv("FORCE_COLOR"); v != "" && v != "0" {
		return termenv.ANSI256
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	if os.Getenv("TERM") == "dumb" {
		return termenv.Ascii
	}
	return termenv.NewOutput(f).EnvColorProfile()
}
