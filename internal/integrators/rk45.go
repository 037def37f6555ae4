package integrators

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/symplot/internal/dynamo"
)

// tableau is an explicit embedded Runge-Kutta scheme. When the last row
// of A equals B the final stage is evaluated at the new point and is
// reused as the first stage of the next step. P holds the coefficients
// of the continuous extension: stage s is weighted by sum_p P[s][p]*theta^(p+1).
type tableau struct {
	name  string
	order int // order of the embedded error estimate
	C     []float64
	A     [][]float64
	B     []float64
	E     []float64 // B - Bhat
	P     [][]float64
}

// Dormand-Prince 5(4) coefficients.
var dormandPrince = tableau{
	name:  "RK45",
	order: 4,
	C:     []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1},
	A: [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	},
	B: []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0, 0},
	E: []float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	},
	P: [][]float64{
		{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
		{0, 0, 0, 0},
		{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
		{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
		{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
		{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
		{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
	},
}

// erk drives a tableau. It keeps the last stage of an accepted step for
// reuse and, for Dormand-Prince, a running estimate of h*|lambda| used
// for stiffness detection.
type erk struct {
	sys        dynamo.System
	tab        tableau
	rtol, atol float64

	k     []dynamo.State
	last  []dynamo.State // stages of the last accepted step
	f0    dynamo.State
	fsal  dynamo.State
	hLam  float64
	stiff bool // C ends in two unit nodes
}

func newERK(sys dynamo.System, tab tableau, cfg dynamo.Config) *erk {
	s := len(tab.C)
	return &erk{
		sys:   sys,
		tab:   tab,
		rtol:  cfg.RelTol,
		atol:  cfg.AbsTol,
		k:     make([]dynamo.State, s),
		stiff: s >= 2 && tab.C[s-1] == 1 && tab.C[s-2] == 1,
	}
}

func (r *erk) errorOrder() int { return r.tab.order }

func (r *erk) trial(t float64, x dynamo.State, h float64) (dynamo.State, float64, error) {
	n := len(x)
	s := len(r.tab.C)

	if r.f0 == nil {
		r.f0 = r.sys.Derive(t, x)
	}
	r.k[0] = r.f0

	var penultimate dynamo.State
	for i := 1; i < s; i++ {
		stage := make(dynamo.State, n)
		copy(stage, x)
		for j, a := range r.tab.A[i] {
			if a != 0 {
				floats.AddScaled(stage, h*a, r.k[j])
			}
		}
		if i == s-2 {
			penultimate = stage
		}
		r.k[i] = r.sys.Derive(t+r.tab.C[i]*h, stage)
	}

	xNew := make(dynamo.State, n)
	copy(xNew, x)
	for i, b := range r.tab.B {
		if b != 0 {
			floats.AddScaled(xNew, h*b, r.k[i])
		}
	}
	r.fsal = r.k[s-1]

	if r.stiff {
		// both stages sit at t+h: h*|lambda| ~ h*|f(xNew)-f(x6)| / |xNew-x6|
		r.hLam = 0
		if d := floats.Distance(xNew, penultimate, 2); d > 0 {
			r.hLam = h * floats.Distance(r.k[s-1], r.k[s-2], 2) / d
		}
	}

	errv := make([]float64, n)
	for i, e := range r.tab.E {
		if e != 0 {
			floats.AddScaled(errv, h*e, r.k[i])
		}
	}
	return xNew, errNorm(errv, x, xNew, r.rtol, r.atol), nil
}

func (r *erk) accept(t float64, x dynamo.State, h float64) {
	r.f0 = r.fsal
	r.last = append(r.last[:0], r.k...)
}

func (r *erk) interpolate(tOld float64, xOld dynamo.State, h, tq float64) dynamo.State {
	theta := (tq - tOld) / h
	out := xOld.Clone()
	for s, row := range r.tab.P {
		w, pw := 0.0, 1.0
		for _, p := range row {
			pw *= theta
			w += p * pw
		}
		if w != 0 {
			floats.AddScaled(out, h*w, r.last[s])
		}
	}
	return out
}

// RK45 is the Dormand-Prince 5(4) pair with its fourth order continuous
// extension.
type RK45 struct{}

func NewRK45() *RK45 { return &RK45{} }

func (RK45) Name() string { return "RK45" }

func (m RK45) Solve(ctx context.Context, sys dynamo.System, tEval []float64, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	if err := validate(sys, tEval, x0, &cfg); err != nil {
		return nil, err
	}
	c := &counter{sys: sys}
	return drive(ctx, m.Name(), c, tEval, x0, cfg, func(t0 float64, x0 dynamo.State, tEnd float64) solver {
		return newAdaptive(c, newERK(c, dormandPrince, cfg), t0, x0, tEnd, cfg)
	})
}
