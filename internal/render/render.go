// Package render draws polygon collections as character plots for a terminal.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"nwszones/internal/types"
)

// Terminal cells are roughly twice as tall as they are wide.
const cellAspect = 2.0

const glyphs = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var palette = []string{
	"\033[31m", "\033[32m", "\033[33m", "\033[34m", "\033[35m", "\033[36m",
	"\033[91m", "\033[92m", "\033[93m", "\033[94m", "\033[95m", "\033[96m",
}

const (
	colorReset = "\033[0m"
	reverse    = "\033[7m"
)

// Group is one plotted record.
type Group struct {
	Key   string
	Glyph byte
	Area  float64
	Cells int
}

// Canvas is a rasterised collection. cells holds a group index plus one, or
// zero for empty space.
type Canvas struct {
	Width  int
	Height int
	Bounds orb.Bound
	Groups []Group
	cells  [][]int
}

type shape struct {
	geom  orb.Geometry
	bound orb.Bound
}

// Plot rasterises c into at most width x height cells, keeping the map's
// proportions. Each record becomes a group labelled by its key attribute.
func Plot(c *types.Collection, key string, width, height int) Canvas {
	var cv Canvas
	if width < 1 || height < 1 {
		return cv
	}

	var shapes []shape
	first := true
	for i, r := range c.Records {
		cv.Groups = append(cv.Groups, Group{
			Key:   types.FormatValue(r.Attrs[key]),
			Glyph: glyphs[i%len(glyphs)],
			Area:  planar.Area(r.Geometry),
		})
		if r.Geometry == nil {
			shapes = append(shapes, shape{})
			continue
		}
		b := r.Geometry.Bound()
		shapes = append(shapes, shape{geom: r.Geometry, bound: b})
		if first {
			cv.Bounds, first = b, false
		} else {
			cv.Bounds = cv.Bounds.Union(b)
		}
	}
	if first {
		return cv
	}

	bw := cv.Bounds.Right() - cv.Bounds.Left()
	bh := cv.Bounds.Top() - cv.Bounds.Bottom()
	scale := math.Max(bw/float64(width), bh/(float64(height)*cellAspect))
	if scale == 0 {
		scale = 1
	}
	cv.Width = clamp(int(math.Ceil(bw/scale)), 1, width)
	cv.Height = clamp(int(math.Ceil(bh/(scale*cellAspect))), 1, height)

	cv.cells = make([][]int, cv.Height)
	for row := 0; row < cv.Height; row++ {
		cv.cells[row] = make([]int, cv.Width)
		y := cv.Bounds.Top() - (float64(row)+0.5)*scale*cellAspect
		for col := 0; col < cv.Width; col++ {
			pt := orb.Point{cv.Bounds.Left() + (float64(col)+0.5)*scale, y}
			for i, s := range shapes {
				if s.geom == nil || !s.bound.Contains(pt) {
					continue // quick bbox reject
				}
				if contains(s.geom, pt) {
					cv.cells[row][col] = i + 1
					cv.Groups[i].Cells++
					break
				}
			}
		}
	}
	return cv
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch t := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(t, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(t, pt)
	}
	return false
}

// At returns the group index drawn at a cell, or -1 for empty space.
func (cv Canvas) At(col, row int) int {
	if row < 0 || row >= len(cv.cells) || col < 0 || col >= len(cv.cells[row]) {
		return -1
	}
	return cv.cells[row][col] - 1
}

// Lines renders the canvas. highlight selects a group to draw in reverse
// video (-1 for none); color adds one ANSI colour per group.
func (cv Canvas) Lines(highlight int, color bool) []string {
	lines := make([]string, 0, len(cv.cells))
	for _, row := range cv.cells {
		var sb strings.Builder
		for _, cell := range row {
			if cell == 0 {
				sb.WriteByte(' ')
				continue
			}
			g := cell - 1
			if !color && g != highlight {
				sb.WriteByte(cv.Groups[g].Glyph)
				continue
			}
			if color {
				sb.WriteString(palette[g%len(palette)])
			}
			if g == highlight {
				sb.WriteString(reverse)
			}
			sb.WriteByte(cv.Groups[g].Glyph)
			sb.WriteString(colorReset)
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))
	}
	return lines
}

// Legend lists each group's glyph, key and planar area.
func (cv Canvas) Legend(highlight int) []string {
	lines := make([]string, 0, len(cv.Groups))
	for i, g := range cv.Groups {
		marker := "  "
		if i == highlight {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%c  %-12s area %.4f", marker, g.Glyph, g.Key, g.Area))
	}
	return lines
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
