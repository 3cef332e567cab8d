// Package export renders recorded runs to standalone files.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

// Series is one named trace over a shared time axis.
type Series struct {
	Name  string
	Color string
	X, Y  []float64
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func seriesBounds(series []Series) (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	found := false
	for _, s := range series {
		for i := range s.X {
			if i >= len(s.Y) {
				break
			}
			b.minX = math.Min(b.minX, s.X[i])
			b.maxX = math.Max(b.maxX, s.X[i])
			b.minY = math.Min(b.minY, s.Y[i])
			b.maxY = math.Max(b.maxY, s.Y[i])
			found = true
		}
	}
	if !found {
		return b, false
	}

	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	b.maxX = b.minX + rangeX
	return b, true
}

// TracesToSVG draws every series as a polyline with a legend.
func TracesToSVG(series []Series, width, height int) string {
	b, ok := seriesBounds(series)
	if !ok {
		return ""
	}
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if b.minY < 0 && b.maxY > 0 {
		zero := float64(height) - (0-b.minY)/rangeY*float64(height)
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#333333" stroke-width="1"/>
`, zero, width, zero))
	}

	for _, s := range series {
		n := min(len(s.X), len(s.Y))
		if n < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color))
		for i := 0; i < n; i++ {
			x := (s.X[i] - b.minX) / rangeX * float64(width)
			y := float64(height) - (s.Y[i]-b.minY)/rangeY*float64(height)

			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for i, s := range series {
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*i, s.Color, s.Name))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SamplesToSVG plots reference, estimated velocity and, when recorded, the
// true plant velocity.
func SamplesToSVG(samples []dynamo.Sample, width, height int) string {
	n := len(samples)
	t := make([]float64, n)
	ref := make([]float64, n)
	est := make([]float64, n)
	plant := make([]float64, 0, n)
	for i, s := range samples {
		t[i] = s.Time
		ref[i] = s.Reference
		est[i] = s.VelocitySens
		if len(s.Plant) > 1 {
			plant = append(plant, s.Plant[1])
		}
	}

	series := []Series{
		{Name: "reference", Color: "#ffd75f", X: t, Y: ref},
		{Name: "velocity_sens", Color: "#5fff87", X: t, Y: est},
	}
	if len(plant) == n {
		series = append(series, Series{Name: "plant", Color: "#5fd7ff", X: t, Y: plant})
	}
	return TracesToSVG(series, width, height)
}
