package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBlank = 0x2800

var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// PixelWidth and PixelHeight give the canvas size in dots.
func (c *Canvas) PixelWidth() int  { return c.Width * 2 }
func (c *Canvas) PixelHeight() int { return c.Height * 4 }

// Set turns on the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.PixelWidth() || y >= c.PixelHeight() {
		return
	}
	c.Grid[y/4][x/2] |= rune(pixelMap[y%4][x%2])
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x >= c.PixelWidth() || y >= c.PixelHeight() {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Frame maps data coordinates onto canvas dots. Y grows upward.
type Frame struct {
	XMin, XMax float64
	YMin, YMax float64
}

// SquareFrame is centered on (center, center) with the given half-width on
// both axes.
func SquareFrame(center, half float64) Frame {
	return Frame{XMin: center - half, XMax: center + half, YMin: center - half, YMax: center + half}
}

func (f Frame) Pixel(c *Canvas, x, y float64) (int, int) {
	px := scale(x, f.XMin, f.XMax, c.PixelWidth())
	py := c.PixelHeight() - 1 - scale(y, f.YMin, f.YMax, c.PixelHeight())
	return px, py
}

// Plot sets the dot for a data point; points outside the frame are dropped.
func (f Frame) Plot(c *Canvas, x, y float64) {
	if x < f.XMin || x > f.XMax || y < f.YMin || y > f.YMax {
		return
	}
	c.Set(f.Pixel(c, x, y))
}

// Line draws between two data points, clipped by the canvas.
func (f Frame) Line(c *Canvas, x0, y0, x1, y1 float64) {
	px0, py0 := f.Pixel(c, x0, y0)
	px1, py1 := f.Pixel(c, x1, y1)
	c.DrawLine(px0, py0, px1, py1)
}

func scale(v, lo, hi float64, dots int) int {
	if hi <= lo {
		return 0
	}
	return int(math.Round((v - lo) / (hi - lo) * float64(dots-1)))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
