package viz

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/symplot/internal/figure"
)

// Preview sketches fig in the terminal. Curves sharing one abscissa
// grid (time series, function plots) become asciigraph charts, one per
// axis; anything else is drawn on a braille canvas.
func Preview(fig *figure.Figure, width, height int) string {
	if fig.Len() == 0 {
		return Subtle.Render("(no curves)") + "\n"
	}
	if !sharedAbscissa(fig.Curves()) {
		return PhasePreview(fig, width, height)
	}

	var b strings.Builder
	b.WriteString(chart(fig.CurvesOn(figure.Primary), fig.Axes.YLabel, width, height))
	if right := fig.CurvesOn(figure.Secondary); len(right) > 0 {
		b.WriteString("\n")
		b.WriteString(chart(right, fig.Axes.RightLabel+" (right axis)", width, height))
	}
	return b.String()
}

// sharedAbscissa reports whether every curve has increasing x values,
// which is the case for time series and function plots.
func sharedAbscissa(curves []figure.Curve) bool {
	for _, c := range curves {
		for i := 1; i < len(c.X); i++ {
			if !(c.X[i] > c.X[i-1]) {
				return false
			}
		}
	}
	return true
}

func chart(curves []figure.Curve, caption string, width, height int) string {
	if len(curves) == 0 {
		return ""
	}
	data := make([][]float64, 0, len(curves))
	colors := make([]asciigraph.AnsiColor, 0, len(curves))
	legends := make([]string, 0, len(curves))
	for i, c := range curves {
		data = append(data, c.Y)
		colors = append(colors, CurrentTheme.seriesColor(i))
		label := c.Style.Label
		if label == "" {
			label = fmt.Sprintf("curve %d", i)
		}
		legends = append(legends, label)
	}
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	}
	if caption != "" {
		opts = append(opts, asciigraph.Caption(caption))
	}
	return asciigraph.PlotMany(data, opts...) + "\n"
}

// PhasePreview draws every curve on one braille canvas scaled to the
// curves' common extent, or to the figure's axis limits when set.
func PhasePreview(fig *figure.Figure, width, height int) string {
	curves := fig.Curves()
	xmin, xmax, ymin, ymax := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for _, c := range curves {
		for i := range c.X {
			if finite(c.X[i]) && finite(c.Y[i]) {
				xmin, xmax = math.Min(xmin, c.X[i]), math.Max(xmax, c.X[i])
				ymin, ymax = math.Min(ymin, c.Y[i]), math.Max(ymax, c.Y[i])
			}
		}
	}
	if r := fig.Axes.XLim; r.Set {
		xmin, xmax = r.Min, r.Max
	}
	if r := fig.Axes.YLim; r.Set {
		ymin, ymax = r.Min, r.Max
	}
	if !(xmax > xmin) {
		xmin, xmax = xmin-0.5, xmin+0.5
	}
	if !(ymax > ymin) {
		ymin, ymax = ymin-0.5, ymin+0.5
	}
	if !finite(xmin) || !finite(ymin) {
		return Subtle.Render("(no finite points)") + "\n"
	}

	canvas := NewCanvas(width, height)
	for _, c := range curves {
		canvas.Polyline(c.X, c.Y, xmin, xmax, ymin, ymax)
	}

	var b strings.Builder
	b.WriteString(canvas.String())
	b.WriteString(Subtle.Render(fmt.Sprintf("%s ∈ [%.3g, %.3g]   %s ∈ [%.3g, %.3g]",
		orDefault(fig.Axes.XLabel, "x"), xmin, xmax, orDefault(fig.Axes.YLabel, "y"), ymin, ymax)))
	b.WriteString("\n")
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Summary lists the curves of a figure with their ranges, followed by
// any failures.
func Summary(title string, fig *figure.Figure, failures []string, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CURVE\tAXIS\tPOINTS\tY RANGE\tSHAPE")
	for i, c := range fig.Curves() {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range c.Y {
			if finite(v) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		label := orDefault(c.Style.Label, fmt.Sprintf("#%d", i))
		fmt.Fprintf(tw, "%s\t%s\t%d\t[%.4g, %.4g]\t%s\n", label, c.Axis, c.Len(), lo, hi, SparklineChart(c.Y, 20))
	}
	tw.Flush()

	if fig.Field() != nil {
		q := fig.Field()
		b.WriteString(MetricLabel.Render("vector field: "))
		b.WriteString(MetricValue.Render(fmt.Sprintf("%dx%d", len(q.X), len(q.Y))))
		b.WriteString("\n")
	}
	b.WriteString(MetricLabel.Render("elapsed: "))
	b.WriteString(MetricValue.Render(elapsed.Round(time.Millisecond).String()))
	b.WriteString("\n")

	if len(failures) == 0 {
		b.WriteString(StatusOK.Render("✓ all curves drawn"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(StatusWarn.Render(fmt.Sprintf("✗ %d failed", len(failures))))
	b.WriteString("\n")
	for _, f := range failures {
		b.WriteString("  ")
		b.WriteString(StatusError.Render(f))
		b.WriteString("\n")
	}
	return b.String()
}
