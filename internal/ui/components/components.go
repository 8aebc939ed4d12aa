// Package components renders the pieces of CLI output that recur across
// commands.
package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
	"github.com/abhisek/phishshift/internal/ui/theme"
)

// ProgressBar renders a labelled bar. Percent is clamped to [0,1].
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int
}

func (p ProgressBar) View() string {
	var sb strings.Builder
	if p.Label != "" {
		sb.WriteString(theme.Label.Render(p.Label))
		sb.WriteString("  ")
	}

	bar := p.Width - lipgloss.Width(sb.String())
	if p.ShowPercent {
		bar -= 6
	}
	bar = max(bar, 4)

	pct := min(max(p.Percent, 0), 1)
	filled := int(float64(bar) * pct)
	sb.WriteString(lipgloss.NewStyle().Background(theme.Primary).Render(strings.Repeat(" ", filled)))
	sb.WriteString(lipgloss.NewStyle().Background(theme.Track).Render(strings.Repeat(" ", bar-filled)))

	if p.ShowPercent {
		sb.WriteString(theme.Label.Render(fmt.Sprintf("  %3d%%", int(pct*100))))
	}
	return sb.String()
}

// MessageCard renders a scenario the way the learner sees it. Ground
// truth and cues are never shown.
func MessageCard(s scenario.Scenario, index, total, width int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n",
		theme.Title.Render(fmt.Sprintf("Message %d of %d", index, total)),
		theme.Label.Render(strings.ToUpper(string(s.Channel))))
	fmt.Fprintf(&sb, "%s %s\n", theme.Label.Render("From:"), theme.Body.Render(s.Sender))
	if s.Subject != "" {
		fmt.Fprintf(&sb, "%s %s\n", theme.Label.Render("Subject:"), theme.Body.Render(s.Subject))
	}
	sb.WriteString("\n")
	sb.WriteString(theme.Body.Render(s.Body))
	return theme.Card.Width(width).Render(sb.String())
}

// Verdict renders the feedback line after a decision.
func Verdict(o outcome.Outcome, points int, correct bool) string {
	mark := theme.Bad.Render("✗")
	if correct {
		mark = theme.Good.Render("✓")
	}
	return fmt.Sprintf("%s %s %s", mark,
		theme.Outcome(o).Render(strings.ReplaceAll(string(o), "_", " ")),
		theme.Label.Render(fmt.Sprintf("(%+d)", points)))
}

// Debrief renders the explanation and the cues a learner should have
// spotted.
func Debrief(s scenario.Scenario, width int) string {
	var sb strings.Builder
	if s.Explanation != "" {
		sb.WriteString(theme.Hint.Width(width).Render(s.Explanation))
		sb.WriteString("\n")
	}
	if len(s.Cues) > 0 {
		sb.WriteString(theme.Label.Render("Cues: "))
		sb.WriteString(theme.Body.Render(strings.Join(s.Cues, ", ")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Table renders rows with left-aligned columns padded to the widest cell.
// Header is styled; an empty header is skipped.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	measure := func(row []string) {
		for i, c := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	measure(header)
	for _, r := range rows {
		measure(r)
	}

	line := func(row []string) string {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	var sb strings.Builder
	if len(header) > 0 {
		sb.WriteString(theme.Label.Render(line(header)))
		sb.WriteString("\n")
	}
	for _, r := range rows {
		sb.WriteString(line(r))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
