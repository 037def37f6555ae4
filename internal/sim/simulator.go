package sim

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/integrators"
	"github.com/san-kum/symplot/internal/models"
)

// Span is an integration interval [start, end].
type Span [2]float64

// Simulator integrates one symbolic system with a fixed method and
// sampling configuration.
type Simulator struct {
	sys    *models.System
	method integrators.Method
	cfg    dynamo.Config
}

// New resolves the configured method. An unknown method fails here,
// before any integration work.
func New(sys *models.System, cfg dynamo.Config) (*Simulator, error) {
	if cfg.Method == "" {
		cfg.Method = dynamo.DefaultMethod
	}
	if cfg.Samples <= 0 {
		cfg.Samples = dynamo.DefaultSamples
	}
	m, err := integrators.Lookup(cfg.Method)
	if err != nil {
		return nil, err
	}
	return &Simulator{sys: sys, method: m, cfg: cfg}, nil
}

func (s *Simulator) Method() string { return s.method.Name() }

// Grid returns n evenly spaced sample times covering span.
func Grid(span Span, n int) []float64 {
	if n <= 1 {
		return []float64{span[0]}
	}
	return floats.Span(make([]float64, n), span[0], span[1])
}

func (s *Simulator) validate(x0 []float64, span Span) error {
	if len(x0) != s.sys.StateDim() {
		return fmt.Errorf("%w: %d initial conditions for %d variables",
			dynamo.ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}
	if !(span[1] > span[0]) {
		return fmt.Errorf("sim: t_span end %g must be after start %g", span[1], span[0])
	}
	return nil
}

// Run integrates from x0 over span and returns the solution at the
// sample grid.
func (s *Simulator) Run(ctx context.Context, x0 []float64, span Span, params []float64) (*dynamo.Trajectory, error) {
	if err := s.validate(x0, span); err != nil {
		return nil, err
	}
	bound, err := s.sys.Bind(params)
	if err != nil {
		return nil, err
	}
	return s.method.Solve(ctx, bound, Grid(span, s.cfg.Samples), dynamo.State(x0).Clone(), s.cfg)
}

// IntegrateTime solves the system and returns every state variable as a
// time series.
func IntegrateTime(ctx context.Context, sys *models.System, x0 []float64, span Span, params []float64, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	s, err := New(sys, cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, x0, span, params)
}

// IntegratePhase solves the system and projects the trajectory onto the
// state variables pair[0] and pair[1].
func IntegratePhase(ctx context.Context, sys *models.System, x0 []float64, span Span, params []float64, pair [2]int, cfg dynamo.Config) ([]float64, []float64, error) {
	if err := checkPair(pair, sys.StateDim()); err != nil {
		return nil, nil, err
	}
	tr, err := IntegrateTime(ctx, sys, x0, span, params, cfg)
	if err != nil {
		return nil, nil, err
	}
	return tr.Series(pair[0]), tr.Series(pair[1]), nil
}

func checkPair(pair [2]int, dim int) error {
	for _, i := range pair {
		if i < 0 || i >= dim {
			return fmt.Errorf("%w: variable index %d out of range for %d variables", dynamo.ErrDimensionMismatch, i, dim)
		}
	}
	return nil
}
