package experiment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/symplot/internal/config"
	"github.com/san-kum/symplot/internal/figure"
	"github.com/san-kum/symplot/internal/models"
	"github.com/san-kum/symplot/internal/sim"
)

// Series is one computed curve before it is placed on a figure.
type Series struct {
	X, Y  []float64
	Style figure.Style
	Axis  figure.Axis
}

// Kind computes the series for one curve of a request. Each call builds
// its own model, so kinds may run concurrently.
type Kind func(ctx context.Context, req *config.Request, c config.Curve) ([]Series, error)

type Registry struct {
	kinds map[string]Kind
}

func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Kind)}
	r.kinds[config.KindFunction] = functionCurve
	r.kinds[config.KindODETime] = timeCurves
	r.kinds[config.KindPhase] = phaseCurve
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(name string, k Kind) {
	r.kinds[name] = k
}

func (r *Registry) Get(name string) (Kind, error) {
	k, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("unknown plot type: %s", name)
	}
	return k, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func styleOf(s *config.Style) (figure.Style, figure.Axis) {
	if s == nil {
		return figure.Style{}, figure.Primary
	}
	axis := figure.Primary
	if s.UseRightAxis {
		axis = figure.Secondary
	}
	return figure.Style{
		Label:     s.Label,
		Color:     s.Color,
		LineStyle: s.LineStyle,
		LineWidth: s.LineWidth,
		Alpha:     s.Alpha,
	}, axis
}

func samples(merged map[string]float64) int {
	if n := int(merged[config.KeyPoints]); n >= 2 {
		return n
	}
	return config.DefaultPoints
}

func functionCurve(ctx context.Context, req *config.Request, c config.Curve) ([]Series, error) {
	fn, err := models.NewFunction(c.Formula)
	if err != nil {
		return nil, err
	}
	merged := req.CurveParams(c)
	params, err := fn.ParamVector(merged)
	if err != nil {
		return nil, err
	}
	xs := floats.Span(make([]float64, samples(merged)), c.XRange[0], c.XRange[1])
	ys, err := fn.Evaluate(xs, params)
	if err != nil {
		return nil, err
	}
	style, axis := styleOf(c.Style)
	return []Series{{X: xs, Y: ys, Style: style, Axis: axis}}, nil
}

// system builds the model for an ODE curve together with its ordered
// parameter vector.
func system(req *config.Request, c config.Curve) (*models.System, []float64, map[string]float64, error) {
	sys, err := models.New(c.Equations, c.VariableNames)
	if err != nil {
		return nil, nil, nil, err
	}
	merged := req.CurveParams(c)
	params, err := sys.ParamVector(merged)
	if err != nil {
		return nil, nil, nil, err
	}
	return sys, params, merged, nil
}

func span(req *config.Request, c config.Curve) sim.Span {
	ts := req.TimeSpan(c)
	return sim.Span{ts[0], ts[1]}
}

// timeCurves plots one series per style against t. Without styles every
// variable is plotted and labelled with its name.
func timeCurves(ctx context.Context, req *config.Request, c config.Curve) ([]Series, error) {
	sys, params, merged, err := system(req, c)
	if err != nil {
		return nil, err
	}
	tr, err := sim.IntegrateTime(ctx, sys, c.InitialConditions, span(req, c), params, req.SolverConfig(c, merged))
	if err != nil {
		return nil, err
	}

	styles := c.Styles
	if len(styles) == 0 {
		for _, name := range sys.Variables() {
			styles = append(styles, config.Style{Label: name})
		}
	}
	out := make([]Series, 0, len(styles))
	for i := range styles {
		style, axis := styleOf(&styles[i])
		out = append(out, Series{X: tr.Times, Y: tr.Series(i), Style: style, Axis: axis})
	}
	return out, nil
}

func phaseCurve(ctx context.Context, req *config.Request, c config.Curve) ([]Series, error) {
	sys, params, merged, err := system(req, c)
	if err != nil {
		return nil, err
	}
	pair := [2]int{c.VarIndices[0], c.VarIndices[1]}
	xs, ys, err := sim.IntegratePhase(ctx, sys, c.InitialConditions, span(req, c), params, pair, req.SolverConfig(c, merged))
	if err != nil {
		return nil, err
	}
	style, axis := styleOf(c.Style)
	return []Series{{X: xs, Y: ys, Style: style, Axis: axis}}, nil
}

// describe names a curve by its formula text for failure reports.
func describe(c config.Curve) string {
	if c.Formula != "" {
		return c.Formula
	}
	return strings.Join(c.Equations, "; ")
}
