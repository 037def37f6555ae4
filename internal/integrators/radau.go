package integrators

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/symplot/internal/dynamo"
)

var sqrt6 = math.Sqrt(6)

// Radau IIA, three stages, order 5.
var (
	radauC = [3]float64{(4 - sqrt6) / 10, (4 + sqrt6) / 10, 1}
	radauA = [3][3]float64{
		{(88 - 7*sqrt6) / 360, (296 - 169*sqrt6) / 1800, (-2 + 3*sqrt6) / 225},
		{(296 + 169*sqrt6) / 1800, (88 + 7*sqrt6) / 360, (-2 - 3*sqrt6) / 225},
		{(16 - sqrt6) / 36, (16 + sqrt6) / 36, 1.0 / 9.0},
	}
)

// radau takes one full step and two half steps with the same Jacobian;
// their difference, scaled by 1/(2^5-1), is the error estimate.
type radau struct {
	sys        dynamo.System
	rtol, atol float64
	jac        *mat.Dense
}

func (r *radau) errorOrder() int { return 5 }

func (r *radau) trial(t float64, x dynamo.State, h float64) (dynamo.State, float64, error) {
	if r.jac == nil {
		r.jac = jacobian(r.sys, t, x)
	}
	full, err := r.step(t, x, h)
	if err != nil {
		return nil, 0, err
	}
	mid, err := r.step(t, x, h/2)
	if err != nil {
		return nil, 0, err
	}
	xNew, err := r.step(t+h/2, mid, h/2)
	if err != nil {
		return nil, 0, err
	}

	errv := make([]float64, len(x))
	floats.SubTo(errv, xNew, full)
	floats.Scale(1.0/31.0, errv)
	return xNew, errNorm(errv, x, xNew, r.rtol, r.atol), nil
}

// step solves the collocation system for the stage increments Z with a
// simplified Newton iteration and returns x + Z_3.
func (r *radau) step(t float64, x dynamo.State, h float64) (dynamo.State, error) {
	n := len(x)
	size := 3 * n

	m := mat.NewDense(size, size, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for p := 0; p < n; p++ {
				for q := 0; q < n; q++ {
					v := -h * radauA[i][j] * r.jac.At(p, q)
					if i == j && p == q {
						v += 1
					}
					m.Set(i*n+p, j*n+q, v)
				}
			}
		}
	}
	lu, err := factorize(m)
	if err != nil {
		return nil, err
	}

	nw := &newton{lu: lu, scale: stateScale(x, r.rtol, r.atol), tol: newtonTol(r.rtol)}
	stage := make(dynamo.State, n)
	z, err := nw.solve(make([]float64, size), func(z []float64) []float64 {
		var f [3]dynamo.State
		for i := 0; i < 3; i++ {
			floats.AddTo(stage, x, z[i*n:(i+1)*n])
			f[i] = r.sys.Derive(t+radauC[i]*h, stage)
		}
		g := make([]float64, size)
		for i := 0; i < 3; i++ {
			for p := 0; p < n; p++ {
				acc := 0.0
				for j := 0; j < 3; j++ {
					acc += radauA[i][j] * f[j][p]
				}
				g[i*n+p] = z[i*n+p] - h*acc
			}
		}
		return g
	})
	if err != nil {
		return nil, err
	}

	xNew := make(dynamo.State, n)
	floats.AddTo(xNew, x, z[2*n:])
	return xNew, nil
}

func (r *radau) accept(t float64, x dynamo.State, h float64) {
	r.jac = nil
}

// Radau is the implicit three stage Radau IIA method of order 5, for
// stiff problems. It has no continuous extension and lands on every
// sample time.
type Radau struct{}

func NewRadau() *Radau { return &Radau{} }

func (Radau) Name() string { return "Radau" }

func (m Radau) Solve(ctx context.Context, sys dynamo.System, tEval []float64, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	if err := validate(sys, tEval, x0, &cfg); err != nil {
		return nil, err
	}
	c := &counter{sys: sys}
	return drive(ctx, m.Name(), c, tEval, x0, cfg, func(t0 float64, x0 dynamo.State, tEnd float64) solver {
		return newAdaptive(c, &radau{sys: c, rtol: cfg.RelTol, atol: cfg.AbsTol}, t0, x0, tEnd, cfg)
	})
}
