package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// TrendPlot draws the mean regression effect across a measurement error
// sweep. xs and ys must be the same length; fewer than two points yield
// an empty string.
func TrendPlot(xs, ys []float64, width, height int) string {
	if len(xs) != len(ys) || len(ys) < 2 {
		return ""
	}
	caption := fmt.Sprintf("mean regression effect vs measurement error (%g .. %g)", xs[0], xs[len(xs)-1])
	return asciigraph.Plot(ys,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// Sparkline renders values as a single row of block characters.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}
