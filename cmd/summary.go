package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stevehiehn/moinsy-setup/internal/config"
	"github.com/stevehiehn/moinsy-setup/internal/engine"
	"github.com/stevehiehn/moinsy-setup/internal/logger"
)

var statusLevels = map[string]logger.Level{
	engine.StatusSuccess: logger.LevelSuccess,
	engine.StatusDryRun:  logger.LevelInfo,
	engine.StatusExplain: logger.LevelInfo,
	engine.StatusFailed:  logger.LevelError,
	engine.StatusSkipped: logger.LevelWarning,
}

func statusStyle(p logger.Palette, status string) lipgloss.Style {
	if l, ok := statusLevels[status]; ok {
		return p.Level(l)
	}
	return p.Dim
}

// renderSummary prints the boxed end-of-run report.
func renderSummary(w io.Writer, p logger.Palette, cfg config.RunConfiguration, result *engine.Result) {
	var b strings.Builder
	b.WriteString(p.Title.Render("Installation summary"))
	b.WriteString("\n\n")

	for _, s := range result.Steps {
		status := statusStyle(p, s.Status).Render(fmt.Sprintf("%-8s", s.Status))
		detail := s.Duration
		switch {
		case s.Note != "":
			detail = "(" + s.Note + ")"
		case s.Error != "":
			detail = s.Error
		}
		fmt.Fprintf(&b, "%s %-42s %s\n", status, s.Description, p.Dim.Render(detail))
	}
	b.WriteString("\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s%s\n", p.Label.Render(label), value)
	}
	row("Install directory", cfg.InstallDir)
	row("Strict mode", fmt.Sprintf("%t", cfg.Strict))
	row("Log file", cfg.LogFile)
	if len(result.Artifacts) > 0 {
		row("Run record", result.Artifacts[0])
	}
	if result.Duration != "" {
		row("Duration", result.Duration)
	}
	row("Result", outcome(p, result))

	fmt.Fprintln(w, p.Box.Render(strings.TrimRight(b.String(), "\n")))
}

func outcome(p logger.Palette, result *engine.Result) string {
	switch {
	case result.Halted:
		return p.Level(logger.LevelError).Render("stopped at " + result.FailedStepID)
	case !result.Success:
		return p.Level(logger.LevelWarning).Render(fmt.Sprintf("completed with %d failure(s)", len(result.Errors)))
	default:
		return p.Level(logger.LevelSuccess).Render("success")
	}
}
