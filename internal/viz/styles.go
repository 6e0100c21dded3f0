package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/rtmsim/internal/sim"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("242"))

	ParentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("209"))

	ChildStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(0, 1)
)

// SummaryPanel renders the summary text in a bordered panel, followed by
// the threshold, selection count and reliability.
func SummaryPanel(s sim.Summary) string {
	var b strings.Builder
	b.WriteString(s.Text())
	b.WriteString("\n\n")
	b.WriteString(MetricLabel.Render("threshold   ") + MetricValue.Render(fmt.Sprintf("%.2f", s.Threshold)) + "\n")
	b.WriteString(MetricLabel.Render("selected    ") + MetricValue.Render(fmt.Sprintf("%d", s.Selected)) + "\n")
	b.WriteString(MetricLabel.Render("reliability ") + MetricValue.Render(fmt.Sprintf("%.3f", s.Reliability)))
	return Panel.Render(b.String())
}

// ErrorPanel renders a failed run in place of the summary.
func ErrorPanel(err error) string {
	return Panel.Render(ErrorStyle.Render(err.Error()))
}

// SideBySide joins rendered blocks horizontally with a gap.
func SideBySide(blocks ...string) string {
	spaced := make([]string, 0, 2*len(blocks))
	for i, blk := range blocks {
		if i > 0 {
			spaced = append(spaced, "  ")
		}
		spaced = append(spaced, blk)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, spaced...)
}
