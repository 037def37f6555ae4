package integrators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/symplot/internal/dynamo"
)

const maxNewtonIter = 10

// jacobian approximates df/dx at (t, x) with central differences.
func jacobian(sys dynamo.System, t float64, x dynamo.State) *mat.Dense {
	n := len(x)
	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, func(y, xs []float64) {
		copy(y, sys.Derive(t, xs))
	}, x, &fd.JacobianSettings{Formula: fd.Central})
	return jac
}

// newtonTol bounds the scaled Newton increment at convergence.
func newtonTol(rtol float64) float64 {
	const eps = 2.220446049250313e-16
	return math.Max(10*eps/rtol, math.Min(0.03, math.Sqrt(rtol)))
}

// newton solves z = F(z) for the residual g(z) = z - F(z), given the
// factorised iteration matrix lu ~ dg/dz. scale weights the increments
// for the convergence test; it is repeated to cover every block of z.
type newton struct {
	lu    *mat.LU
	scale []float64
	tol   float64
}

func factorize(m *mat.Dense) (*mat.LU, error) {
	var lu mat.LU
	lu.Factorize(m)
	if c := lu.Cond(); math.IsInf(c, 1) || math.IsNaN(c) || c > 1e15 {
		return nil, fmt.Errorf("%w: singular iteration matrix", dynamo.ErrNewtonFailed)
	}
	return &lu, nil
}

func (nw *newton) solve(z []float64, residual func(z []float64) []float64) ([]float64, error) {
	size := len(z)
	scaled := make([]float64, size)
	dzOld, rate := 0.0, 0.0
	for iter := 0; iter < maxNewtonIter; iter++ {
		g := residual(z)
		var dz mat.VecDense
		if err := nw.lu.SolveVecTo(&dz, false, mat.NewVecDense(size, g)); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrNewtonFailed, err)
		}
		for i := 0; i < size; i++ {
			d := dz.AtVec(i)
			z[i] -= d
			scaled[i] = d / nw.scale[i%len(nw.scale)]
		}
		dzNorm := 0.0
		for _, v := range scaled {
			dzNorm += v * v
		}
		dzNorm = math.Sqrt(dzNorm / float64(size))
		if math.IsNaN(dzNorm) || math.IsInf(dzNorm, 0) {
			return nil, fmt.Errorf("%w: non-finite increment", dynamo.ErrNewtonFailed)
		}
		if dzNorm == 0 {
			return z, nil
		}
		if iter > 0 {
			rate = dzNorm / dzOld
			if rate >= 1 {
				return nil, fmt.Errorf("%w: diverging (rate %.3g)", dynamo.ErrNewtonFailed, rate)
			}
			if rate/(1-rate)*dzNorm < nw.tol {
				return z, nil
			}
		}
		dzOld = dzNorm
	}
	return nil, fmt.Errorf("%w: no convergence in %d iterations", dynamo.ErrNewtonFailed, maxNewtonIter)
}

func stateScale(x dynamo.State, rtol, atol float64) []float64 {
	s := make([]float64, len(x))
	for i, v := range x {
		s[i] = atol + rtol*math.Abs(v)
	}
	return s
}
