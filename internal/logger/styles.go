package logger

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds the console styles, bound to one renderer so colors follow the
// destination writer rather than the process's stdout.
type Palette struct {
	Title   lipgloss.Style
	Dim     lipgloss.Style
	Box     lipgloss.Style
	Label   lipgloss.Style
	levels  map[Level]lipgloss.Style
	message lipgloss.Style
}

func newPalette(w io.Writer) Palette {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(colorProfile(w))

	return Palette{
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")), // Cyan
		Dim: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2),
		Label: r.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(22),
		levels: map[Level]lipgloss.Style{
			LevelError:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			LevelWarning: r.NewStyle().Foreground(lipgloss.Color("214")),
			LevelSuccess: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
			LevelInfo:    r.NewStyle().Foreground(lipgloss.Color("39")),
			LevelDebug:   r.NewStyle().Foreground(lipgloss.Color("245")),
		},
		message: r.NewStyle(),
	}
}

// Level returns the style used for the given level's prefix.
func (p Palette) Level(l Level) lipgloss.Style {
	if s, ok := p.levels[l]; ok {
		return s
	}
	return p.message
}
