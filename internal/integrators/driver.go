package integrators

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/symplot/internal/dynamo"
)

// Method integrates an initial value problem and reports the solution at
// the requested sample times.
type Method interface {
	Name() string
	Solve(ctx context.Context, sys dynamo.System, tEval []float64, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error)
}

// solver advances one initial value problem an accepted step at a time.
type solver interface {
	// step takes one accepted step that ends at or before bound.
	step(bound float64) error
	// current is the solution at the end of the last accepted step.
	current() (float64, dynamo.State)
	// dense reports whether interpolate covers the whole last step, in
	// which case steps are not clamped to the sample times.
	dense() bool
	interpolate(tq float64) dynamo.State
	counts() (steps, rejected int)
}

// stepFailure is a solver error with the solver's own explanation.
type stepFailure struct {
	cause  error
	reason string
}

func (e *stepFailure) Error() string { return e.reason }
func (e *stepFailure) Unwrap() error { return e.cause }

func failure(cause error, format string, args ...any) error {
	return &stepFailure{cause: cause, reason: fmt.Sprintf(format, args...)}
}

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10.0
)

// counter counts right-hand side evaluations.
type counter struct {
	sys   dynamo.System
	evals int
}

func (c *counter) Derive(t float64, x dynamo.State) dynamo.State {
	c.evals++
	return c.sys.Derive(t, x)
}

func (c *counter) StateDim() int { return c.sys.StateDim() }

// errNorm is the RMS of err scaled by atol + rtol*max(|x|, |xNew|).
func errNorm(err, x, xNew []float64, rtol, atol float64) float64 {
	if len(err) == 0 {
		return 0
	}
	scaled := make([]float64, len(err))
	for i := range err {
		sc := atol + rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		scaled[i] = err[i] / sc
	}
	return floats.Norm(scaled, 2) / math.Sqrt(float64(len(err)))
}

// initialStep picks a first step from the local scale of the solution,
// following Hairer, Norsett & Wanner (II.4).
func initialStep(sys dynamo.System, t float64, x, f0 dynamo.State, order int, span float64, cfg dynamo.Config) float64 {
	if len(x) == 0 {
		return span
	}
	scale := make([]float64, len(x))
	for i := range x {
		scale[i] = cfg.AbsTol + cfg.RelTol*math.Abs(x[i])
	}
	rms := func(v []float64) float64 {
		s := make([]float64, len(v))
		floats.DivTo(s, v, scale)
		return floats.Norm(s, 2) / math.Sqrt(float64(len(v)))
	}

	d0, d1 := rms(x), rms(f0)
	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, span)

	x1 := make(dynamo.State, len(x))
	floats.AddScaledTo(x1, x, h0, f0)
	f1 := sys.Derive(t+h0, x1)
	diff := make([]float64, len(x))
	floats.SubTo(diff, f1, f0)
	d2 := rms(diff) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1/float64(order+1))
	}
	h := math.Min(100*h0, h1)
	if math.IsNaN(h) || h <= 0 {
		h = 1e-6
	}
	return math.Min(h, span)
}

// drive samples the solution of sys at tEval. Dense solvers run to the
// end of the span and fill the samples they pass by interpolation; the
// others are clamped to land on every sample time.
func drive(ctx context.Context, name string, sys *counter, tEval []float64, x0 dynamo.State, cfg dynamo.Config, start func(t0 float64, x0 dynamo.State, tEnd float64) solver) (*dynamo.Trajectory, error) {
	n := sys.StateDim()
	traj := &dynamo.Trajectory{
		Times:  append([]float64(nil), tEval...),
		Values: make([][]float64, n),
	}
	for i := range traj.Values {
		traj.Values[i] = make([]float64, len(tEval))
	}
	record := func(k int, x dynamo.State) {
		for i := range x {
			traj.Values[i][k] = x[i]
		}
	}

	record(0, x0)
	if len(tEval) == 1 {
		return traj, nil
	}

	tEnd := tEval[len(tEval)-1]
	s := start(tEval[0], x0.Clone(), tEnd)

	fail := func(wrapped error, reason string) (*dynamo.Trajectory, error) {
		traj.StepsTaken, traj.Rejected = s.counts()
		traj.Evals = sys.evals
		t, _ := s.current()
		return traj, &dynamo.IntegrationError{
			Method:  name,
			Step:    traj.StepsTaken,
			Time:    t,
			Reason:  reason,
			Wrapped: wrapped,
		}
	}

	for k := 1; k < len(tEval); {
		select {
		case <-ctx.Done():
			return fail(dynamo.ErrContextCanceled, ctx.Err().Error())
		default:
		}
		if steps, rejected := s.counts(); steps+rejected >= cfg.MaxSteps {
			return fail(dynamo.ErrMaxSteps, fmt.Sprintf("%d steps without reaching t=%g", cfg.MaxSteps, tEnd))
		}

		bound := tEval[k]
		if s.dense() {
			bound = tEnd
		}
		if err := s.step(bound); err != nil {
			var sf *stepFailure
			if errors.As(err, &sf) {
				return fail(sf.cause, sf.reason)
			}
			return fail(err, err.Error())
		}

		t, x := s.current()
		for k < len(tEval) && tEval[k] <= t {
			if tEval[k] == t {
				record(k, x)
			} else {
				record(k, s.interpolate(tEval[k]))
			}
			k++
		}
	}

	traj.StepsTaken, traj.Rejected = s.counts()
	traj.Evals = sys.evals
	return traj, nil
}

func epsilon(t float64) float64 {
	return math.Nextafter(math.Abs(t), math.Inf(1)) - math.Abs(t)
}

// validate checks the problem shape shared by every method.
func validate(sys dynamo.System, tEval []float64, x0 dynamo.State, cfg *dynamo.Config) error {
	if len(x0) != sys.StateDim() {
		return fmt.Errorf("%w: initial state has %d values, system has %d", dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if !x0.IsValid() {
		return dynamo.ErrInvalidState
	}
	if len(tEval) == 0 {
		return errors.New("integrators: no sample times")
	}
	for i := 1; i < len(tEval); i++ {
		if !(tEval[i] > tEval[i-1]) {
			return fmt.Errorf("integrators: sample times must be strictly increasing (t[%d]=%g, t[%d]=%g)", i-1, tEval[i-1], i, tEval[i])
		}
	}
	if cfg.RelTol <= 0 {
		cfg.RelTol = dynamo.DefaultRelTol
	}
	if cfg.AbsTol <= 0 {
		cfg.AbsTol = dynamo.DefaultAbsTol
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = dynamo.DefaultMaxSteps
	}
	return nil
}
