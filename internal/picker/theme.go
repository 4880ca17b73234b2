package picker

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

type colorPalette struct {
	Name     string
	Cursor   lipgloss.Color
	CursorFg lipgloss.Color
	From     lipgloss.Color
	To       lipgloss.Color
	Graph    lipgloss.Color
	Border   lipgloss.Color
	Notice   lipgloss.Color
	Dim      lipgloss.Color
}

var (
	lightPalette = colorPalette{
		Name:     "light",
		Cursor:   lipgloss.Color("153"),
		CursorFg: lipgloss.Color("16"),
		From:     lipgloss.Color("124"),
		To:       lipgloss.Color("28"),
		Graph:    lipgloss.Color("244"),
		Border:   lipgloss.Color("250"),
		Notice:   lipgloss.Color("25"),
		Dim:      lipgloss.Color("245"),
	}
	darkPalette = colorPalette{
		Name:     "dark",
		Cursor:   lipgloss.Color("25"),
		CursorFg: lipgloss.Color("255"),
		From:     lipgloss.Color("203"),
		To:       lipgloss.Color("42"),
		Graph:    lipgloss.Color("242"),
		Border:   lipgloss.Color("238"),
		Notice:   lipgloss.Color("39"),
		Dim:      lipgloss.Color("242"),
	}
	detectDarkMode = darkmode.IsDarkMode
)

func paletteForPreference(pref ThemePreference) colorPalette {
	switch pref {
	case ThemeDark:
		return darkPalette
	case ThemeLight:
		return lightPalette
	default:
		if detectDarkMode != nil {
			if dark, err := detectDarkMode(); err == nil {
				if dark {
					return darkPalette
				}
			} else {
				slog.Debug("detect dark-mode", slog.Any("error", err))
			}
		}
		return lightPalette
	}
}

type styles struct {
	cursor lipgloss.Style
	from   lipgloss.Style
	to     lipgloss.Style
	both   lipgloss.Style
	graph  lipgloss.Style
	panel  lipgloss.Style
	notice lipgloss.Style
	help   lipgloss.Style
}

func newStyles(p colorPalette) styles {
	return styles{
		cursor: lipgloss.NewStyle().Background(p.Cursor).Foreground(p.CursorFg),
		from:   lipgloss.NewStyle().Foreground(p.From).Bold(true),
		to:     lipgloss.NewStyle().Foreground(p.To).Bold(true),
		both:   lipgloss.NewStyle().Foreground(p.Notice).Bold(true),
		graph:  lipgloss.NewStyle().Foreground(p.Graph),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(p.Border),
		notice: lipgloss.NewStyle().Foreground(p.Notice),
		help:   lipgloss.NewStyle().Foreground(p.Dim),
	}
}
