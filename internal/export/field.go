package export

import (
	"image/color"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/symplot/internal/figure"
)

var gridColor = color.Gray{Y: 220}

// quiverXY adapts a figure.Quiver to plotter.FieldXY.
type quiverXY struct {
	q *figure.Quiver
}

func (f quiverXY) Dims() (c, r int) { return len(f.q.X), len(f.q.Y) }

func (f quiverXY) Vector(c, r int) plotter.XY {
	return plotter.XY{X: f.q.U[r][c], Y: f.q.V[r][c]}
}

func (f quiverXY) X(c int) float64 { return f.q.X[c] }
func (f quiverXY) Y(r int) float64 { return f.q.Y[r] }

// fieldPlotter draws the quiver as fixed length arrows. Width is a
// fraction of the image width.
func fieldPlotter(q *figure.Quiver, imageWidth vg.Length) (*plotter.Field, error) {
	col, err := resolveColor(q.Color, q.Alpha, 0)
	if err != nil {
		return nil, err
	}
	f := plotter.NewField(quiverXY{q: q})
	f.LineStyle.Color = col
	f.LineStyle.Width = vg.Points(0.5)
	if q.Width > 0 {
		f.LineStyle.Width = vg.Length(q.Width) * imageWidth
	}
	f.DrawGlyph = arrow
	return f, nil
}

// arrow draws a unit arrow along +x. Zero vectors draw nothing.
func arrow(c vg.Canvas, sty draw.LineStyle, v plotter.XY) {
	if v.X == 0 && v.Y == 0 {
		return
	}
	(&draw.Canvas{Canvas: c}).SetLineStyle(sty)

	var shaft vg.Path
	shaft.Move(vg.Point{X: -0.5, Y: 0})
	shaft.Line(vg.Point{X: 0.5, Y: 0})
	c.Stroke(shaft)

	var head vg.Path
	head.Move(vg.Point{X: 0.2, Y: 0.15})
	head.Line(vg.Point{X: 0.5, Y: 0})
	head.Line(vg.Point{X: 0.2, Y: -0.15})
	c.Stroke(head)
}
