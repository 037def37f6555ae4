package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/san-kum/symplot/internal/figure"
)

type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

const (
	// DPI is the PNG resolution.
	DPI = 300

	defaultSize  = 8 * vg.Inch
	defaultWidth = 1.5
)

// FormatFor picks PNG for a .png path and SVG for anything else.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return PNG
	}
	return SVG
}

// Options control the image size. Zero values use an 8x8 inch canvas.
type Options struct {
	Width, Height vg.Length
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = defaultSize
	}
	if h <= 0 {
		h = defaultSize
	}
	return w, h
}

// Save renders fig to path, creating parent directories. The format
// follows the file extension.
func Save(fig *figure.Figure, path string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Write(bw, fig, FormatFor(path), opts); err != nil {
		return err
	}
	return bw.Flush()
}

// Write renders fig in the given format.
func Write(w io.Writer, fig *figure.Figure, format Format, opts Options) error {
	width, height := opts.size()

	plots, err := Plots(fig, width)
	if err != nil {
		return err
	}

	var (
		canvas vg.CanvasSizer
		out    io.WriterTo
	)
	switch format {
	case PNG:
		c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(DPI))
		canvas, out = c, vgimg.PngCanvas{Canvas: c}
	case SVG:
		c := vgsvg.New(width, height)
		canvas, out = c, c
	default:
		return fmt.Errorf("export: unsupported format %q", format)
	}

	dc := draw.New(canvas)
	if len(plots) == 1 {
		plots[0].Draw(dc)
	} else {
		// the secondary scale gets its own panel below the primary one,
		// sharing the x range
		tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadY: vg.Points(10)}
		grid := make([][]*plot.Plot, len(plots))
		for i, p := range plots {
			grid[i] = []*plot.Plot{p}
		}
		canvases := plot.Align(grid, tiles, dc)
		for i, p := range plots {
			p.Draw(canvases[i][0])
		}
	}

	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("export: cannot write %s: %w", format, err)
	}
	return nil
}

// Plots builds the gonum plots for fig: one for the primary axis and,
// when the secondary axis is enabled, one more for it. width sizes the
// vector field arrows.
func Plots(fig *figure.Figure, width vg.Length) ([]*plot.Plot, error) {
	primary := newPlot(fig.Axes, fig.Axes.YLabel)
	primary.Title.Text = fig.Axes.Title

	palette := 0
	if q := fig.Field(); q != nil {
		fp, err := fieldPlotter(q, width)
		if err != nil {
			return nil, err
		}
		primary.Add(fp)
	}
	if err := addCurves(primary, fig.CurvesOn(figure.Primary), fig.Axes.Legend, &palette); err != nil {
		return nil, err
	}
	plots := []*plot.Plot{primary}

	if fig.HasSecondary() {
		secondary := newPlot(fig.Axes, fig.Axes.RightLabel)
		if err := addCurves(secondary, fig.CurvesOn(figure.Secondary), fig.Axes.Legend, &palette); err != nil {
			return nil, err
		}
		applyLim(&secondary.Y, fig.Axes.RightLim)
		primary.X.Label.Text = ""
		plots = append(plots, secondary)
		shareX(plots, fig.Axes.XLim)
	} else {
		applyLim(&primary.X, fig.Axes.XLim)
	}
	applyLim(&primary.Y, fig.Axes.YLim)
	return plots, nil
}

// newPlot sets up labels and grid. Limits are applied once the data is
// added, since adding widens the axis ranges.
func newPlot(axes figure.Axes, ylabel string) *plot.Plot {
	p := plot.New()
	p.X.Label.Text = axes.XLabel
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	if axes.Grid {
		g := plotter.NewGrid()
		g.Vertical.Color = gridColor
		g.Horizontal.Color = gridColor
		p.Add(g)
	}
	return p
}

func applyLim(a *plot.Axis, r figure.Range) {
	if r.Set {
		a.Min, a.Max = r.Min, r.Max
	}
}

// shareX gives every plot the union of their x ranges, or lim when set.
func shareX(plots []*plot.Plot, lim figure.Range) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range plots {
		lo, hi = math.Min(lo, p.X.Min), math.Max(hi, p.X.Max)
	}
	if lim.Set {
		lo, hi = lim.Min, lim.Max
	}
	for _, p := range plots {
		p.X.Min, p.X.Max = lo, hi
	}
}

// addCurves draws each curve as one line per run of finite points, so
// a diverging solution still shows its finite part.
func addCurves(p *plot.Plot, curves []figure.Curve, legend bool, palette *int) error {
	for _, c := range curves {
		col, err := resolveColor(c.Style.Color, c.Style.Alpha, *palette)
		if err != nil {
			return err
		}
		*palette++
		dash, err := dashes(c.Style.LineStyle)
		if err != nil {
			return err
		}
		width := c.Style.LineWidth
		if width <= 0 {
			width = defaultWidth
		}

		var first *plotter.Line
		for _, seg := range finiteRuns(c.X, c.Y) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return fmt.Errorf("export: curve %q: %w", c.Style.Label, err)
			}
			line.LineStyle.Color = col
			line.LineStyle.Width = vg.Points(width)
			line.LineStyle.Dashes = dash
			p.Add(line)
			if first == nil {
				first = line
			}
		}
		if legend && first != nil && c.Style.Label != "" {
			p.Legend.Add(c.Style.Label, first)
		}
	}
	return nil
}

func finiteRuns(xs, ys []float64) []plotter.XYs {
	var (
		runs []plotter.XYs
		cur  plotter.XYs
	)
	for i := range xs {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			if len(cur) > 0 {
				runs = append(runs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: x, Y: y})
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}
