package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/rtmsim/internal/sim"
)

// frameSDs is how many primary standard deviations the plots show on each
// side of the population mean.
const frameSDs = 4

// FrameFor returns the square frame used by every plot of a run.
func FrameFor(p sim.Params) Frame {
	half := frameSDs * math.Hypot(p.PopulationSD, p.MeasurementError)
	if half < 1 {
		half = 1
	}
	return SquareFrame(p.PopulationMean, half)
}

// Scatter plots every individual's parent (x) against child (y)
// measurement together with the identity line.
func Scatter(res *sim.Result, w, h int) string {
	c := NewCanvas(w, h)
	f := FrameFor(res.Params)

	f.Line(c, f.XMin, f.YMin, f.XMax, f.YMax)
	for i := range res.Primary {
		f.Plot(c, res.Primary[i], res.Secondary[i])
	}
	return withAxes("Full Population", c, f, "parent", "child")
}

// Extremes plots only the selected individuals with a horizontal line at
// the population mean.
func Extremes(res *sim.Result, w, h int) string {
	c := NewCanvas(w, h)
	f := FrameFor(res.Params)

	mean := res.Params.PopulationMean
	f.Line(c, f.XMin, mean, f.XMax, mean)
	for i, sel := range res.Mask {
		if sel {
			f.Plot(c, res.Primary[i], res.Secondary[i])
		}
	}
	title := fmt.Sprintf("Top %d Extremes", res.Params.SelectionCount)
	return withAxes(title, c, f, "parent", "child")
}

// StripCanvas draws each selected parent (left) joined to its child
// (right), with horizontal lines at the selected parents' mean, the
// selected children's mean and the population mean.
func StripCanvas(res *sim.Result, w, h int) *Canvas {
	c := NewCanvas(w, h)
	f := stripFrame(res)

	for _, m := range []float64{
		res.Summary.SelectedPrimaryMean,
		res.Summary.SelectedSecondaryMean,
		res.Summary.PopulationMean,
	} {
		f.Line(c, 0, m, 1, m)
	}
	for i, sel := range res.Mask {
		if sel {
			f.Line(c, 0, res.Primary[i], 1, res.Secondary[i])
		}
	}
	return c
}

// Strip renders [StripCanvas] with labels, so the drift toward the mean
// shows as lines sloping back to it.
func Strip(res *sim.Result, w, h int) string {
	c := StripCanvas(res, w, h)
	f := stripFrame(res)
	s := res.Summary

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Height Distributions") + "\n")
	b.WriteString(c.String())
	gap := w - len("Parents") - len("Children")
	if gap < 1 {
		gap = 1
	}
	b.WriteString(ParentStyle.Render("Parents") + strings.Repeat(" ", gap) + ChildStyle.Render("Children") + "\n")
	b.WriteString(Subtle.Render(fmt.Sprintf("means  P %.1f  C %.1f  pop %.1f",
		s.SelectedPrimaryMean, s.SelectedSecondaryMean, s.PopulationMean)) + "\n")
	b.WriteString(Subtle.Render(fmt.Sprintf("y: %.1f .. %.1f", f.YMin, f.YMax)) + "\n")
	return b.String()
}

func stripFrame(res *sim.Result) Frame {
	sq := FrameFor(res.Params)
	return Frame{XMin: 0, XMax: 1, YMin: sq.YMin, YMax: sq.YMax}
}

func withAxes(title string, c *Canvas, f Frame, xName, yName string) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title) + "\n")
	b.WriteString(c.String())
	b.WriteString(Subtle.Render(fmt.Sprintf("%s: %.1f .. %.1f   %s: %.1f .. %.1f",
		xName, f.XMin, f.XMax, yName, f.YMin, f.YMax)) + "\n")
	return b.String()
}
