package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/rtmsim/internal/config"
	"github.com/san-kum/rtmsim/internal/sim"
	"github.com/san-kum/rtmsim/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	minPlotWidth  = 20
	minPlotHeight = 8
)

type model struct {
	engine *sim.Engine
	params sim.Params
	cursor int

	result *sim.Result
	err    error
	runs   int

	width  int
	height int
}

// NewApp returns the interactive model, already holding a first run of p.
// p is snapped onto the slider ranges first.
func NewApp(engine *sim.Engine, p sim.Params) model {
	for _, r := range config.Ranges {
		config.Set(&p, r.Name, r.Clamp(config.Get(p, r.Name)))
	}
	m := model{
		engine: engine,
		params: p,
		width:  100,
		height: 32,
	}
	m.rerun()
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(config.Ranges)-1 {
			m.cursor++
		}
	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(1)
	case "r", " ":
		m.rerun()
	}
	return m, nil
}

// adjust moves the selected slider by dir steps and reruns when the value
// actually changed.
func (m *model) adjust(dir float64) {
	r := config.Ranges[m.cursor]
	old := config.Get(m.params, r.Name)
	v := r.Clamp(old + dir*r.Step)
	if v == old {
		return
	}
	config.Set(&m.params, r.Name, v)
	m.rerun()
}

func (m *model) rerun() {
	m.runs++
	m.result, m.err = m.engine.Run(m.params)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("  " + cyan.Render("r e g r e s s i o n   t o   t h e   m e a n") + dim.Render(fmt.Sprintf("   run #%d", m.runs)) + "\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", 46)) + "\n\n")

	b.WriteString(m.viewSliders())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(viz.ErrorPanel(m.err) + "\n")
	} else if m.result != nil {
		w, h := m.plotSize()
		plots := viz.SideBySide(
			viz.Scatter(m.result, w, h),
			viz.Extremes(m.result, w, h),
			viz.Strip(m.result, w, h),
		)
		b.WriteString(plots + "\n")
		b.WriteString(viz.SummaryPanel(m.result.Summary) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("  ↑↓ select  ←→ adjust  r rerun  q quit") + "\n")
	return b.String()
}

func (m model) viewSliders() string {
	var b strings.Builder
	for i, r := range config.Ranges {
		v := config.Get(m.params, r.Name)
		bar := sliderBar(r, v, 20)
		val := fmt.Sprintf("%6g", v)
		if i == m.cursor {
			b.WriteString("  " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-18s", r.Label)) + magenta.Render(bar) + " " + white.Render(val) + "\n")
		} else {
			b.WriteString("    " + dim.Render(fmt.Sprintf("%-18s", r.Label)) + dimmer.Render(bar) + " " + dim.Render(val) + "\n")
		}
	}
	return b.String()
}

// plotSize splits the terminal between the three side-by-side plots.
func (m model) plotSize() (int, int) {
	w := (m.width - 8) / 3
	h := m.height - 22
	return max(w, minPlotWidth), max(h, minPlotHeight)
}

func sliderBar(r config.Range, v float64, width int) string {
	pos := 0
	if r.Max > r.Min {
		pos = int((v - r.Min) / (r.Max - r.Min) * float64(width-1))
	}
	pos = max(0, min(pos, width-1))
	return strings.Repeat("─", pos) + "●" + strings.Repeat("─", width-1-pos)
}

// Run starts the interactive program on the alternate screen.
func Run(engine *sim.Engine, p sim.Params) error {
	prog := tea.NewProgram(NewApp(engine, p), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
