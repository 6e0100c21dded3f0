package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/rtmsim/internal/sim"
)

const (
	svgBackground = "#0a0a0a"
	svgPopulation = "#7f8c8d"
	svgSelected   = "#e67e22"
	svgGuide      = "#3498db"
)

// CanvasToSVG converts a braille canvas to an SVG document with one
// circle per lit dot.
func CanvasToSVG(canvas *Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	var sb strings.Builder
	writeSVGHeader(&sb, canvas, scale)
	writeDots(&sb, canvas, scale, "#00ff00")
	sb.WriteString("</svg>")
	return sb.String()
}

// ScatterSVG renders the full population scatter as SVG. Selected
// individuals and the identity line each get their own layer and colour.
func ScatterSVG(res *sim.Result, w, h int, scale float64) string {
	f := FrameFor(res.Params)

	guide := NewCanvas(w, h)
	f.Line(guide, f.XMin, f.YMin, f.XMax, f.YMax)

	population := NewCanvas(w, h)
	selected := NewCanvas(w, h)
	for i := range res.Primary {
		if res.Mask[i] {
			f.Plot(selected, res.Primary[i], res.Secondary[i])
		} else {
			f.Plot(population, res.Primary[i], res.Secondary[i])
		}
	}

	var sb strings.Builder
	writeSVGHeader(&sb, guide, scale)
	writeDots(&sb, guide, scale, svgGuide)
	writeDots(&sb, population, scale, svgPopulation)
	writeDots(&sb, selected, scale, svgSelected)
	sb.WriteString("</svg>")
	return sb.String()
}

func writeSVGHeader(sb *strings.Builder, canvas *Canvas, scale float64) {
	width := float64(canvas.PixelWidth()) * scale
	height := float64(canvas.PixelHeight()) * scale
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, svgBackground)
}

func writeDots(sb *strings.Builder, canvas *Canvas, scale float64, fill string) {
	fmt.Fprintf(sb, "<g fill=%q>\n", fill)
	radius := scale * 0.4
	for y := 0; y < canvas.PixelHeight(); y++ {
		for x := 0; x < canvas.PixelWidth(); x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius)
		}
	}
	sb.WriteString("</g>\n")
}
