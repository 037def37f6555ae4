package integrators

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/symplot/internal/dynamo"
)

const (
	maxOrder      = 5
	bdfNewtonIter = 4
)

// Numerical differentiation formula coefficients (Shampine & Reichelt,
// "The MATLAB ODE Suite"). kappa = 0 gives the classic BDF of that order.
var (
	ndfKappa    = [maxOrder + 1]float64{0, -0.1850, -1.0 / 9.0, -0.0823, -0.0415, 0}
	ndfGamma    [maxOrder + 1]float64
	ndfAlpha    [maxOrder + 1]float64
	ndfErrConst [maxOrder + 1]float64
)

func init() {
	for k := 1; k <= maxOrder; k++ {
		ndfGamma[k] = ndfGamma[k-1] + 1/float64(k)
	}
	for k := 0; k <= maxOrder; k++ {
		ndfAlpha[k] = (1 - ndfKappa[k]) * ndfGamma[k]
		ndfErrConst[k] = ndfKappa[k]*ndfGamma[k] + 1/float64(k+1)
	}
}

// bdf is a variable order (1 to 5), variable step NDF/BDF solver in
// backward difference form. diffs[k] holds the k-th backward difference
// of the solution at spacing h; changing the step rescales the table.
// The Jacobian is kept across steps and refreshed only when the Newton
// iteration fails with a stale one.
type bdf struct {
	sys          dynamo.System
	rtol, atol   float64
	maxDt, minDt float64
	tol          float64

	t     float64
	x     dynamo.State
	h     float64
	order int
	equal int // steps taken since the last step or order change
	diffs [][]float64

	jac   *mat.Dense
	fresh bool
	lu    *mat.LU

	tOld, hOld float64
	lastOrder  int
	lastDiffs  [][]float64

	steps, rejected int
}

// newBDF starts the solver at (t0, x0). h <= 0 picks the first step
// from the local scale of the problem.
func newBDF(sys dynamo.System, t0 float64, x0 dynamo.State, tEnd, h float64, cfg dynamo.Config) *bdf {
	n := len(x0)
	f0 := sys.Derive(t0, x0)
	if h <= 0 {
		h = cfg.FirstDt
	}
	if h <= 0 {
		h = initialStep(sys, t0, x0, f0, 1, tEnd-t0, cfg)
	}
	diffs := make([][]float64, maxOrder+3)
	for i := range diffs {
		diffs[i] = make([]float64, n)
	}
	copy(diffs[0], x0)
	floats.ScaleTo(diffs[1], h, f0)

	return &bdf{
		sys:   sys,
		rtol:  cfg.RelTol,
		atol:  cfg.AbsTol,
		maxDt: cfg.MaxDt,
		minDt: cfg.MinDt,
		tol:   newtonTol(cfg.RelTol),
		t:     t0,
		x:     x0,
		h:     h,
		order: 1,
		diffs: diffs,
		jac:   jacobian(sys, t0, x0),
		fresh: true,
	}
}

// diffRescale is the matrix R with R[i][j] = prod_{m=1..i} (m-1-factor*j)/m.
func diffRescale(order int, factor float64) *mat.Dense {
	r := mat.NewDense(order+1, order+1, nil)
	for j := 0; j <= order; j++ {
		r.Set(0, j, 1)
	}
	for i := 1; i <= order; i++ {
		for j := 1; j <= order; j++ {
			r.Set(i, j, (float64(i-1)-factor*float64(j))/float64(i))
		}
	}
	for i := 1; i <= order; i++ {
		for j := 0; j <= order; j++ {
			r.Set(i, j, r.At(i, j)*r.At(i-1, j))
		}
	}
	return r
}

// rescaleDiffs rewrites the first order+1 differences for the step
// h*factor. The interpolating polynomial is unchanged.
func rescaleDiffs(diffs [][]float64, order int, factor float64) {
	n := len(diffs[0])
	if n == 0 {
		return
	}
	var ru mat.Dense
	ru.Mul(diffRescale(order, factor), diffRescale(order, 1))
	old := mat.NewDense(order+1, n, nil)
	for i := 0; i <= order; i++ {
		old.SetRow(i, diffs[i])
	}
	var next mat.Dense
	next.Mul(ru.T(), old)
	for i := 0; i <= order; i++ {
		mat.Row(diffs[i], i, &next)
	}
}

func (b *bdf) current() (float64, dynamo.State) { return b.t, b.x }

func (b *bdf) counts() (int, int) { return b.steps, b.rejected }

func (b *bdf) dense() bool { return true }

// interpolate evaluates the polynomial through the last order+1 points.
func (b *bdf) interpolate(tq float64) dynamo.State {
	out := dynamo.State(b.lastDiffs[0]).Clone()
	p := 1.0
	for j := 0; j < b.lastOrder; j++ {
		p *= (tq - (b.t - b.hOld*float64(j))) / (b.hOld * float64(j+1))
		floats.AddScaled(out, p, b.lastDiffs[j+1])
	}
	return out
}

func (b *bdf) iterationMatrix(c float64, jac *mat.Dense) *mat.LU {
	n := len(b.x)
	m := mat.NewDense(n, n, nil)
	m.Scale(-c, jac)
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)+1)
	}
	lu, err := factorize(m)
	if err != nil {
		return nil
	}
	return lu
}

// correct solves the NDF system for the correction d = x - pred by a
// simplified Newton iteration.
func (b *bdf) correct(tNew float64, pred, psi []float64, c float64, lu *mat.LU, scale []float64) (ok bool, iters int, x dynamo.State, d []float64) {
	n := len(pred)
	x = dynamo.State(pred).Clone()
	d = make([]float64, n)
	if lu == nil {
		return false, 0, x, d
	}
	rhs := mat.NewVecDense(n, nil)
	var dy mat.VecDense
	scaled := make([]float64, n)
	dyOld := 0.0
	for k := 0; k < bdfNewtonIter; k++ {
		f := b.sys.Derive(tNew, x)
		if !f.IsValid() {
			return false, k + 1, x, d
		}
		for i := 0; i < n; i++ {
			rhs.SetVec(i, c*f[i]-psi[i]-d[i])
		}
		if err := lu.SolveVecTo(&dy, false, rhs); err != nil {
			return false, k + 1, x, d
		}
		step := dy.RawVector().Data
		floats.DivTo(scaled, step, scale)
		norm := floats.Norm(scaled, 2) / math.Sqrt(float64(n))

		rate := 0.0
		if k > 0 {
			rate = norm / dyOld
			if rate >= 1 || math.Pow(rate, float64(bdfNewtonIter-k))/(1-rate)*norm > b.tol {
				return false, k + 1, x, d
			}
		}
		floats.Add(x, step)
		floats.Add(d, step)
		if norm == 0 || (k > 0 && rate/(1-rate)*norm < b.tol) {
			return true, k + 1, x, d
		}
		dyOld = norm
	}
	return false, bdfNewtonIter, x, d
}

func (b *bdf) step(bound float64) error {
	n := len(b.x)
	t, d := b.t, b.diffs
	minStep := math.Max(b.minDt, 10*epsilon(t))

	h := b.h
	switch {
	case b.maxDt > 0 && h > b.maxDt:
		rescaleDiffs(d, b.order, b.maxDt/h)
		h, b.equal, b.lu = b.maxDt, 0, nil
	case h < minStep:
		rescaleDiffs(d, b.order, minStep/h)
		h, b.equal, b.lu = minStep, 0, nil
	}

	order, lu, jac, fresh := b.order, b.lu, b.jac, b.fresh
	for {
		if h < minStep {
			return failure(dynamo.ErrStepTooSmall, "required step size %.3g is below %.3g (order %d)", h, minStep, order)
		}
		tNew := t + h
		if tNew > bound {
			tNew = bound
			b.equal, lu = 0, nil
		}
		// keep the table consistent with the step actually taken,
		// which differs from h by rounding once h nears ulp(t)
		if actual := tNew - t; actual != h {
			rescaleDiffs(d, order, actual/h)
			h = actual
		}

		pred := make([]float64, n)
		for k := 0; k <= order; k++ {
			floats.Add(pred, d[k])
		}
		scale := stateScale(pred, b.rtol, b.atol)
		psi := make([]float64, n)
		for k := 1; k <= order; k++ {
			floats.AddScaled(psi, ndfGamma[k], d[k])
		}
		floats.Scale(1/ndfAlpha[order], psi)
		c := h / ndfAlpha[order]

		var (
			ok    bool
			iters int
			xNew  dynamo.State
			corr  []float64
		)
		for {
			if lu == nil {
				lu = b.iterationMatrix(c, jac)
			}
			ok, iters, xNew, corr = b.correct(tNew, pred, psi, c, lu, scale)
			if ok || fresh {
				break
			}
			jac = jacobian(b.sys, tNew, pred)
			lu, fresh = nil, true
		}
		if !ok {
			b.rejected++
			h *= 0.5
			rescaleDiffs(d, order, 0.5)
			b.equal, lu = 0, nil
			continue
		}

		safe := safety * float64(2*bdfNewtonIter+1) / float64(2*bdfNewtonIter+iters)
		scale = stateScale(xNew, b.rtol, b.atol)
		errNorm := b.norm(ndfErrConst[order], corr, scale)
		if errNorm > 1 {
			b.rejected++
			factor := math.Max(minFactor, safe*math.Pow(errNorm, -1/float64(order+1)))
			h *= factor
			rescaleDiffs(d, order, factor)
			b.equal = 0
			continue
		}

		b.steps++
		b.equal++
		b.tOld, b.hOld = t, h
		b.t, b.x, b.h = tNew, xNew, h
		b.jac, b.lu, b.fresh = jac, lu, false

		for i := 0; i < n; i++ {
			d[order+2][i] = corr[i] - d[order+1][i]
			d[order+1][i] = corr[i]
		}
		for k := order; k >= 0; k-- {
			floats.Add(d[k], d[k+1])
		}
		b.lastOrder = order
		b.lastDiffs = b.lastDiffs[:0]
		for k := 0; k <= order; k++ {
			b.lastDiffs = append(b.lastDiffs, append([]float64(nil), d[k]...))
		}

		if b.equal < order+1 {
			return nil
		}
		b.adjustOrder(errNorm, safe, scale)
		return nil
	}
}

// adjustOrder picks the order among order-1, order, order+1 that allows
// the largest next step.
func (b *bdf) adjustOrder(errNorm, safe float64, scale []float64) {
	order, d := b.order, b.diffs
	norms := [3]float64{math.Inf(1), errNorm, math.Inf(1)}
	if order > 1 {
		norms[0] = b.norm(ndfErrConst[order-1], d[order], scale)
	}
	if order < maxOrder {
		norms[2] = b.norm(ndfErrConst[order+1], d[order+2], scale)
	}
	best, bestFactor := 1, 0.0
	for j, e := range norms {
		f := math.Inf(1)
		if e != 0 {
			f = math.Pow(e, -1/float64(order+j))
		}
		if f > bestFactor {
			best, bestFactor = j, f
		}
	}
	b.order = order + best - 1
	factor := math.Min(maxFactor, safe*bestFactor)
	b.h *= factor
	rescaleDiffs(d, b.order, factor)
	b.equal, b.lu = 0, nil
}

func (b *bdf) norm(c float64, v, scale []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := make([]float64, len(v))
	floats.DivTo(s, v, scale)
	return math.Abs(c) * floats.Norm(s, 2) / math.Sqrt(float64(len(v)))
}

// BDF is the variable order backward differentiation method for stiff
// problems, using the NDF variant of orders 1 to 4.
type BDF struct{}

func NewBDF() *BDF { return &BDF{} }

func (BDF) Name() string { return "BDF" }

func (m BDF) Solve(ctx context.Context, sys dynamo.System, tEval []float64, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	if err := validate(sys, tEval, x0, &cfg); err != nil {
		return nil, err
	}
	c := &counter{sys: sys}
	return drive(ctx, m.Name(), c, tEval, x0, cfg, func(t0 float64, x0 dynamo.State, tEnd float64) solver {
		return newBDF(c, t0, x0, tEnd, 0, cfg)
	})
}
