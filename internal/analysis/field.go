package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/models"
)

// DefaultDensity is the number of grid points per axis of a vector field.
const DefaultDensity = 20

// Field is a direction field sampled on a regular grid. U[r][c] and
// V[r][c] are the unit direction at (X[c], Y[r]). Zero and non-finite
// vectors are stored as (0, 0).
type Field struct {
	XIndex, YIndex int
	X, Y           []float64
	U, V           [][]float64
}

// SampleField evaluates the right-hand side of sys at t=0 on a
// density x density grid over limits. The state variables pair[0] and
// pair[1] take the grid coordinates; every other variable is held at 0.
func SampleField(sys *models.System, params []float64, limits Limits, pair [2]int, density int) (*Field, error) {
	if density < 2 {
		return nil, fmt.Errorf("analysis: field density must be at least 2, got %d", density)
	}
	if !limits.Valid() {
		return nil, fmt.Errorf("analysis: invalid field limits %+v", limits)
	}
	dim := sys.StateDim()
	for _, i := range pair {
		if i < 0 || i >= dim {
			return nil, fmt.Errorf("%w: variable index %d out of range for %d variables", dynamo.ErrDimensionMismatch, i, dim)
		}
	}
	bound, err := sys.Bind(params)
	if err != nil {
		return nil, err
	}

	f := &Field{
		XIndex: pair[0],
		YIndex: pair[1],
		X:      floats.Span(make([]float64, density), limits.XMin, limits.XMax),
		Y:      floats.Span(make([]float64, density), limits.YMin, limits.YMax),
		U:      make([][]float64, density),
		V:      make([][]float64, density),
	}
	state := make(dynamo.State, dim)
	for r := 0; r < density; r++ {
		f.U[r] = make([]float64, density)
		f.V[r] = make([]float64, density)
		for c := 0; c < density; c++ {
			for i := range state {
				state[i] = 0
			}
			state[pair[0]] = f.X[c]
			state[pair[1]] = f.Y[r]

			d := bound.Derive(0, state)
			u, v := d[pair[0]], d[pair[1]]
			mag := math.Hypot(u, v)
			if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
				continue
			}
			f.U[r][c] = u / mag
			f.V[r][c] = v / mag
		}
	}
	return f, nil
}
