// Package theme holds the terminal palette and styles used by the CLI.
package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/phishshift/internal/outcome"
)

// Palette.
var (
	Primary = lipgloss.Color("#2563EB") // blue
	Accent  = lipgloss.Color("#F59E0B") // amber
	Safe    = lipgloss.Color("#16A34A") // green
	Danger  = lipgloss.Color("#DC2626") // red
	Warn    = lipgloss.Color("#EA580C") // orange
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
	Border  = lipgloss.Color("#475569")
	Track   = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Good = lipgloss.NewStyle().
		Foreground(Safe).
		Bold(true)

	Bad = lipgloss.NewStyle().
		Foreground(Danger).
		Bold(true)

	Badge = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Outcome returns the style for a decision outcome.
func Outcome(o outcome.Outcome) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch o {
	case outcome.Safe:
		return base.Foreground(Safe)
	case outcome.Compromised:
		return base.Foreground(Danger)
	case outcome.DelayedWork:
		return base.Foreground(Accent)
	case outcome.FalseAlarm:
		return base.Foreground(Warn)
	default:
		return base.Foreground(Text)
	}
}
