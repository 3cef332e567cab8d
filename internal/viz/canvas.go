package viz

import (
	"math"
	"strings"
)

// Braille cells are 2x4 dots, offset from 0x2800:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a Braille dot grid of Width x Height characters, addressable
// in sub-pixels (Width*2 x Height*4).
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

// Set lights the sub-pixel at (x, y). Out-of-range points are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine plots the sub-pixels nearest to the segment, one per step
// along its longer axis.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := float64(x1-x0), float64(y1-y0)
	n := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if n == 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		c.Set(x0+int(math.Round(f*dx)), y0+int(math.Round(f*dy)))
	}
}

// DrawCircle plots a circle of radius r sub-pixels around (cx, cy).
func (c *Canvas) DrawCircle(cx, cy, r int) {
	steps := 8 * r
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		c.Set(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))))
	}
}

// DrawWheel draws a rim with spokes rotated by angle (rad, counter-clockwise
// on screen) and ticks marking the hall count positions.
func (c *Canvas) DrawWheel(angle float64, spokes, counts int) {
	cx, cy := c.Width, c.Height*2
	r := min(cx, cy) - 2
	if r < 4 {
		return
	}

	c.DrawCircle(cx, cy, r)
	for i := 0; i < counts; i++ {
		a := 2 * math.Pi * float64(i) / float64(counts)
		x := cx + int(math.Round(float64(r+1)*math.Cos(a)))
		y := cy - int(math.Round(float64(r+1)*math.Sin(a)))
		c.Set(x, y)
	}
	for i := 0; i < spokes; i++ {
		a := angle + 2*math.Pi*float64(i)/float64(spokes)
		x := cx + int(math.Round(float64(r-1)*math.Cos(a)))
		y := cy - int(math.Round(float64(r-1)*math.Sin(a)))
		c.DrawLine(cx, cy, x, y)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}
