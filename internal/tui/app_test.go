package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/rtmsim/internal/config"
	"github.com/san-kum/rtmsim/internal/sim"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(model)
	}
	return m
}

func newTestApp() model {
	return NewApp(sim.New(sim.WithSeed(5)), sim.DefaultParams())
}

func TestNewAppRunsOnce(t *testing.T) {
	m := newTestApp()
	if m.err != nil {
		t.Fatalf("initial run failed: %v", m.err)
	}
	if m.result == nil || m.runs != 1 {
		t.Fatalf("runs = %d, result = %v", m.runs, m.result)
	}
}

func TestNewAppClampsParams(t *testing.T) {
	p := sim.DefaultParams()
	p.PopulationMean = 400
	p.PopulationSize = 1020
	m := NewApp(sim.New(sim.WithSeed(1)), p)

	if m.params.PopulationMean != 190 {
		t.Errorf("mean = %v, want 190", m.params.PopulationMean)
	}
	if m.params.PopulationSize != 1000 {
		t.Errorf("size = %v, want 1000", m.params.PopulationSize)
	}
}

func TestCursorMovement(t *testing.T) {
	m := newTestApp()
	m = press(t, m, "up")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	m = press(t, m, "down", "down", "down", "down", "down", "down")
	if m.cursor != len(config.Ranges)-1 {
		t.Errorf("cursor = %d, want %d", m.cursor, len(config.Ranges)-1)
	}
}

func TestAdjustReruns(t *testing.T) {
	m := newTestApp()
	m = press(t, m, "right")
	if m.params.PopulationMean != 171 {
		t.Errorf("mean = %v, want 171", m.params.PopulationMean)
	}
	if m.runs != 2 {
		t.Errorf("runs = %d, want 2", m.runs)
	}
	if m.result.Params.PopulationMean != 171 {
		t.Error("result not rerun with new params")
	}

	m = press(t, m, "down", "down", "down", "down", "left")
	if m.params.PopulationSize != 950 {
		t.Errorf("size = %v, want 950", m.params.PopulationSize)
	}
}

func TestAdjustStopsAtBounds(t *testing.T) {
	m := newTestApp()
	m = press(t, m, "down")
	for i := 0; i < 20; i++ {
		m = press(t, m, "left")
	}
	if m.params.PopulationSD != 0 {
		t.Errorf("sd = %v, want 0", m.params.PopulationSD)
	}
	runs := m.runs
	m = press(t, m, "left")
	if m.runs != runs {
		t.Error("pinned slider should not rerun")
	}
}

func TestRerunKey(t *testing.T) {
	m := newTestApp()
	before := m.result
	m = press(t, m, "r")
	if m.runs != 2 || m.result == before {
		t.Error("r should rerun")
	}
	if m.params != sim.DefaultParams() {
		t.Error("rerun changed params")
	}
}

func TestEmptySelectionShowsError(t *testing.T) {
	m := newTestApp()
	m = press(t, m, "down", "down", "down")
	for i := 0; i < sim.DefaultSelectionCount; i++ {
		m = press(t, m, "left")
	}
	if m.params.SelectionCount != 0 {
		t.Fatalf("count = %d, want 0", m.params.SelectionCount)
	}
	if m.err == nil {
		t.Fatal("expected an error at zero selection")
	}
	if !strings.Contains(m.View(), m.err.Error()) {
		t.Error("view should show the error text")
	}
}

func TestViewShowsPlotsAndSummary(t *testing.T) {
	m := newTestApp()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(model)

	out := m.View()
	for _, want := range []string{"Full Population", "Extremes", "Height Distributions", "means  P", "Regression Effect", "Extreme Count"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuit(t *testing.T) {
	m := newTestApp()
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
