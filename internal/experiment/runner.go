package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/san-kum/symplot/internal/analysis"
	"github.com/san-kum/symplot/internal/config"
	"github.com/san-kum/symplot/internal/figure"
	"github.com/san-kum/symplot/internal/models"
)

// FieldCurve marks a failure of the vector field overlay rather than of
// a curve.
const FieldCurve = -1

// fieldMargin widens the data extent used as default field limits.
const fieldMargin = 0.05

// Failure records a curve that could not be drawn.
type Failure struct {
	Curve   int
	Formula string
	Err     error
}

func (f Failure) Error() string {
	if f.Curve == FieldCurve {
		return fmt.Sprintf("vector field (%s): %v", f.Formula, f.Err)
	}
	return fmt.Sprintf("curve %d (%s): %v", f.Curve, f.Formula, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Report is the outcome of one request.
type Report struct {
	Type     string
	Output   string
	Figure   *figure.Figure
	Failures []Failure
	Elapsed  time.Duration
}

// OK reports whether every curve was drawn.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

type Runner struct {
	Workers  int
	Logger   *slog.Logger
	Registry *Registry
}

func NewRunner() *Runner {
	return &Runner{
		Workers:  runtime.NumCPU(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry: NewRegistry(),
	}
}

type result struct {
	series  []Series
	err     error
	elapsed time.Duration
}

// Run validates req and computes its figure. An invalid request is an
// error; failing curves are listed in the report instead.
func (r *Runner) Run(ctx context.Context, req *config.Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	kind, err := r.Registry.Get(req.Type)
	if err != nil {
		return nil, err
	}
	log := r.Logger.With("output", req.Output, "type", req.Type)
	start := time.Now()

	fig := figure.New()
	fig.Axes = axesOf(req)
	if req.Axes.DualYAxis {
		fig.EnableSecondary()
	}

	results := r.compute(ctx, kind, req)

	rep := &Report{Type: req.Type, Output: req.Output, Figure: fig}
	for i, res := range results {
		c := req.Curves[i]
		if res.err == nil {
			for _, s := range res.series {
				if err := fig.AddCurve(s.X, s.Y, s.Style, s.Axis); err != nil {
					res.err = err
					break
				}
			}
		}
		if res.err != nil {
			log.Warn("curve failed", "curve", i, "formula", describe(c), "err", res.err)
			rep.Failures = append(rep.Failures, Failure{Curve: i, Formula: describe(c), Err: res.err})
			continue
		}
		log.Debug("curve done", "curve", i, "series", len(res.series), "elapsed", res.elapsed)
	}

	if vf := req.FieldSettings(); vf != nil {
		if err := addField(fig, req, vf); err != nil {
			log.Warn("vector field failed", "err", err)
			rep.Failures = append(rep.Failures, Failure{Curve: FieldCurve, Formula: describe(req.Curves[0]), Err: err})
		}
	}

	rep.Elapsed = time.Since(start)
	log.Info("request done", "curves", fig.Len(), "failures", len(rep.Failures), "elapsed", rep.Elapsed)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// compute runs every curve on a bounded set of workers. results[i]
// belongs to req.Curves[i].
func (r *Runner) compute(ctx context.Context, kind Kind, req *config.Request) []result {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]result, len(req.Curves))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range req.Curves {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			t0 := time.Now()
			s, err := kind(ctx, req, req.Curves[idx])
			results[idx] = result{series: s, err: err, elapsed: time.Since(t0)}
		}(i)
	}
	wg.Wait()
	return results
}

func rangeOf(v []float64) figure.Range {
	if len(v) != 2 {
		return figure.Range{}
	}
	return figure.NewRange(v[0], v[1])
}

func axesOf(req *config.Request) figure.Axes {
	a := req.Axes
	return figure.Axes{
		Title:      a.Title,
		XLabel:     a.XLabel,
		YLabel:     a.YLabel,
		XLim:       rangeOf(a.XLim),
		YLim:       rangeOf(a.YLim),
		Grid:       a.GridEnabled(req.Type),
		Legend:     a.LegendEnabled(),
		RightLabel: a.YLabelRight,
		RightLim:   rangeOf(a.YLimRight),
	}
}

// fieldLimits takes the configured axis limits where present and the
// extent of the curves on the figure otherwise.
func fieldLimits(fig *figure.Figure) analysis.Limits {
	var xs, ys [][]float64
	for _, c := range fig.CurvesOn(figure.Primary) {
		xs = append(xs, c.X)
		ys = append(ys, c.Y)
	}
	lim, _ := analysis.Extent(xs, ys, fieldMargin)
	if r := fig.Axes.XLim; r.Set {
		lim.XMin, lim.XMax = r.Min, r.Max
	}
	if r := fig.Axes.YLim; r.Set {
		lim.YMin, lim.YMax = r.Min, r.Max
	}
	return lim
}

// addField samples the first curve's system and places the direction
// field on the figure.
func addField(fig *figure.Figure, req *config.Request, vf *config.VectorField) error {
	c := req.Curves[0]
	sys, err := models.New(c.Equations, c.VariableNames)
	if err != nil {
		return err
	}
	params, err := sys.ParamVector(req.CurveParams(c))
	if err != nil {
		return err
	}
	pair := [2]int{c.VarIndices[0], c.VarIndices[1]}
	f, err := analysis.SampleField(sys, params, fieldLimits(fig), pair, vf.Density)
	if err != nil {
		return err
	}
	fig.SetField(&figure.Quiver{
		X: f.X, Y: f.Y, U: f.U, V: f.V,
		Color: vf.Color,
		Alpha: vf.Alpha,
		Scale: vf.Scale,
		Width: vf.Width,
	})
	return nil
}
