package integrators

import (
	"context"

	"github.com/san-kum/symplot/internal/dynamo"
)

// Bogacki-Shampine 3(2) coefficients.
var bogackiShampine = tableau{
	name:  "RK23",
	order: 2,
	C:     []float64{0, 1.0 / 2.0, 3.0 / 4.0, 1},
	A: [][]float64{
		{},
		{1.0 / 2.0},
		{0, 3.0 / 4.0},
		{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0},
	},
	B: []float64{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0, 0},
	E: []float64{5.0 / 72.0, -1.0 / 12.0, -1.0 / 9.0, 1.0 / 8.0},
	P: [][]float64{
		{1, -4.0 / 3.0, 5.0 / 9.0},
		{0, 1, -2.0 / 3.0},
		{0, 4.0 / 3.0, -8.0 / 9.0},
		{0, -1, 1},
	},
}

// RK23 is the Bogacki-Shampine 3(2) pair. It is cheaper than RK45 per
// step and suited to loose tolerances.
type RK23 struct{}

func NewRK23() *RK23 { return &RK23{} }

func (RK23) Name() string { return "RK23" }

func (m RK23) Solve(ctx context.Context, sys dynamo.System, tEval []float64, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	if err := validate(sys, tEval, x0, &cfg); err != nil {
		return nil, err
	}
	c := &counter{sys: sys}
	return drive(ctx, m.Name(), c, tEval, x0, cfg, func(t0 float64, x0 dynamo.State, tEnd float64) solver {
		return newAdaptive(c, newERK(c, bogackiShampine, cfg), t0, x0, tEnd, cfg)
	})
}
