package config

import (
	"errors"
	"fmt"

	"github.com/san-kum/symplot/internal/integrators"
)

var ErrInvalidConfig = errors.New("config: invalid request")

// ValidationError locates one problem in a request. Curve is -1 for
// request-level fields.
type ValidationError struct {
	Curve int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Curve < 0 {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("config: curves[%d].%s: %s", e.Curve, e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// Kinds lists the supported request types.
func Kinds() []string { return []string{KindFunction, KindODETime, KindPhase} }

// Validate checks the request for missing or inconsistent fields and
// returns every problem found, joined.
func (r *Request) Validate() error {
	var errs []error
	add := func(curve int, field, format string, args ...any) {
		errs = append(errs, &ValidationError{Curve: curve, Field: field, Msg: fmt.Sprintf(format, args...)})
	}

	switch r.Type {
	case KindFunction, KindODETime, KindPhase:
	case "":
		add(-1, "type", "missing")
	default:
		add(-1, "type", "unknown type %q (want one of %v)", r.Type, Kinds())
	}
	if r.Output == "" {
		add(-1, "output", "missing")
	}
	if len(r.Curves) == 0 {
		add(-1, "curves", "at least one curve is required")
	}
	if m := r.Defaults.SolverMethod; m != "" && !integrators.Known(m) {
		add(-1, "defaults.solver_method", "unknown method %q (valid: %v)", m, integrators.Names())
	}
	if ts := r.Defaults.TSpan; ts != nil && !increasing(ts) {
		add(-1, "defaults.t_span", "want [t0, t1] with t0 < t1, got %v", ts)
	}
	for _, lim := range []struct {
		name string
		v    []float64
	}{{"axes.xlim", r.Axes.XLim}, {"axes.ylim", r.Axes.YLim}, {"axes.ylim_right", r.Axes.YLimRight}} {
		if lim.v != nil && !increasing(lim.v) {
			add(-1, lim.name, "want [min, max] with min < max, got %v", lim.v)
		}
	}
	if vf := r.VectorField; vf != nil && vf.Enabled {
		if r.Type != KindPhase {
			add(-1, "vector_field", "only phase_portrait requests draw a vector field")
		}
		if vf.Density != 0 && vf.Density < 2 {
			add(-1, "vector_field.density", "must be at least 2, got %d", vf.Density)
		}
	}

	for i, c := range r.Curves {
		if n := r.CurveParams(c)[KeyPoints]; n < 2 {
			add(i, "params.n_points", "need at least 2 samples, got %v", n)
		}
		switch r.Type {
		case KindFunction:
			if c.Formula == "" {
				add(i, "formula", "missing")
			}
			if c.XRange == nil {
				add(i, "x_range", "missing")
			} else if !increasing(c.XRange) {
				add(i, "x_range", "want [x0, x1] with x0 < x1, got %v", c.XRange)
			}
			if c.Style == nil {
				add(i, "style", "missing")
			}
			if c.Style != nil && c.Style.UseRightAxis && !r.Axes.DualYAxis {
				add(i, "style.use_right_axis", "axes.dual_y_axis is not enabled")
			}
		case KindODETime, KindPhase:
			r.validateODE(i, c, add)
		}
	}
	return errors.Join(errs...)
}

func (r *Request) validateODE(i int, c Curve, add func(int, string, string, ...any)) {
	n := len(c.VariableNames)
	if len(c.Equations) == 0 {
		add(i, "equations", "missing")
	}
	if n == 0 {
		add(i, "variable_names", "missing")
	} else if len(c.Equations) > 0 && len(c.Equations) != n {
		add(i, "equations", "%d equations for %d variables", len(c.Equations), n)
	}
	if c.InitialConditions == nil {
		add(i, "initial_conditions", "missing")
	} else if n > 0 && len(c.InitialConditions) != n {
		add(i, "initial_conditions", "%d values for %d variables", len(c.InitialConditions), n)
	}
	if ts := r.TimeSpan(c); ts == nil {
		add(i, "t_span", "missing")
	} else if !increasing(ts) {
		add(i, "t_span", "want [t0, t1] with t0 < t1, got %v", ts)
	}
	if c.SolverMethod != "" && !integrators.Known(c.SolverMethod) {
		add(i, "solver_method", "unknown method %q (valid: %v)", c.SolverMethod, integrators.Names())
	}

	if r.Type == KindODETime {
		if len(c.Styles) > n && n > 0 {
			add(i, "styles", "%d styles for %d variables", len(c.Styles), n)
		}
		for j, s := range c.Styles {
			if s.UseRightAxis && !r.Axes.DualYAxis {
				add(i, fmt.Sprintf("styles[%d].use_right_axis", j), "axes.dual_y_axis is not enabled")
			}
		}
		return
	}

	if len(c.VarIndices) != 2 {
		add(i, "var_indices", "want two state indices, got %v", c.VarIndices)
	} else {
		for _, idx := range c.VarIndices {
			if idx < 0 || (n > 0 && idx >= n) {
				add(i, "var_indices", "index %d out of range for %d variables", idx, n)
			}
		}
	}
	if c.Style == nil {
		add(i, "style", "missing")
	} else if c.Style.UseRightAxis && !r.Axes.DualYAxis {
		add(i, "style.use_right_axis", "axes.dual_y_axis is not enabled")
	}
}

func increasing(v []float64) bool {
	return len(v) == 2 && v[0] < v[1]
}
