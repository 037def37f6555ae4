package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/symplot/internal/dynamo"
)

// Limits is a closed 2D box [XMin, XMax] x [YMin, YMax].
type Limits struct {
	XMin, XMax float64
	YMin, YMax float64
}

// UnitLimits is the box used when nothing else determines a view.
var UnitLimits = Limits{0, 1, 0, 1}

func (l Limits) Valid() bool {
	return l.XMax > l.XMin && l.YMax > l.YMin &&
		!math.IsInf(l.XMin, 0) && !math.IsInf(l.XMax, 0) &&
		!math.IsInf(l.YMin, 0) && !math.IsInf(l.YMax, 0)
}

// PhasePortrait is a trajectory projected onto two state variables.
type PhasePortrait struct {
	XIndex, YIndex int
	X, Y           []float64
}

// NewPhasePortrait projects tr onto the variables xIdx and yIdx.
func NewPhasePortrait(tr *dynamo.Trajectory, xIdx, yIdx int) *PhasePortrait {
	if tr == nil || xIdx >= len(tr.Values) || yIdx >= len(tr.Values) {
		return nil
	}
	return &PhasePortrait{XIndex: xIdx, YIndex: yIdx, X: tr.Series(xIdx), Y: tr.Series(yIdx)}
}

// Extent returns the bounding box of the given curves widened by margin
// (a fraction of each range). Non-finite samples are ignored; a flat
// range is widened to unit size. ok is false when there are no finite
// samples.
func Extent(xs, ys [][]float64, margin float64) (l Limits, ok bool) {
	l = Limits{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for c := range xs {
		for i := range xs[c] {
			x, y := xs[c][i], ys[c][i]
			if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			l.XMin, l.XMax = math.Min(l.XMin, x), math.Max(l.XMax, x)
			l.YMin, l.YMax = math.Min(l.YMin, y), math.Max(l.YMax, y)
			ok = true
		}
	}
	if !ok {
		return UnitLimits, false
	}
	rangeX, rangeY := l.XMax-l.XMin, l.YMax-l.YMin
	if rangeX == 0 {
		rangeX = 1
		l.XMin, l.XMax = l.XMin-0.5, l.XMax+0.5
	}
	if rangeY == 0 {
		rangeY = 1
		l.YMin, l.YMax = l.YMin-0.5, l.YMax+0.5
	}
	l.XMin -= rangeX * margin
	l.XMax += rangeX * margin
	l.YMin -= rangeY * margin
	l.YMax += rangeY * margin
	return l, true
}

// PhasePortraitToASCII draws the portrait on a width x height character
// grid, with the coordinate axes where they cross the view.
func PhasePortraitToASCII(portrait *PhasePortrait, width, height int) string {
	if portrait == nil || len(portrait.X) == 0 || width < 2 || height < 2 {
		return ""
	}
	lim, ok := Extent([][]float64{portrait.X}, [][]float64{portrait.Y}, 0.1)
	if !ok {
		return ""
	}
	rangeX := lim.XMax - lim.XMin
	rangeY := lim.YMax - lim.YMin

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for i := range portrait.X {
		col := int((portrait.X[i] - lim.XMin) / rangeX * float64(width-1))
		row := height - 1 - int((portrait.Y[i]-lim.YMin)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if lim.XMin <= 0 && lim.XMax >= 0 {
		col := int((0 - lim.XMin) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if lim.YMin <= 0 && lim.YMax >= 0 {
		row := height - 1 - int((0-lim.YMin)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
