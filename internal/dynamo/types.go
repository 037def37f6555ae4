package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is an autonomous-or-not first order ODE right-hand side.
type System interface {
	Derive(t float64, x State) State
	StateDim() int
}

// SystemFunc adapts a plain function to System.
type SystemFunc struct {
	Dim int
	F   func(t float64, x State) State
}

func (f SystemFunc) Derive(t float64, x State) State { return f.F(t, x) }
func (f SystemFunc) StateDim() int                   { return f.Dim }

// Config holds the integration settings of a single trajectory.
type Config struct {
	Method   string
	RelTol   float64
	AbsTol   float64
	Samples  int
	FirstDt  float64
	MaxDt    float64
	MinDt    float64
	MaxSteps int
}

const (
	DefaultMethod   = "DOP853"
	DefaultRelTol   = 1e-9
	DefaultAbsTol   = 1e-12
	DefaultSamples  = 1000
	DefaultMaxSteps = 500000
)

func DefaultConfig() Config {
	return Config{
		Method:   DefaultMethod,
		RelTol:   DefaultRelTol,
		AbsTol:   DefaultAbsTol,
		Samples:  DefaultSamples,
		MaxSteps: DefaultMaxSteps,
	}
}

// Trajectory is the sampled output of one integration.
// Values[i] is the series of state variable i, co-indexed with Times.
type Trajectory struct {
	Times      []float64
	Values     [][]float64
	StepsTaken int
	Rejected   int
	Evals      int
}

// Series returns the samples of state variable i.
func (tr *Trajectory) Series(i int) []float64 {
	if i < 0 || i >= len(tr.Values) {
		return nil
	}
	return tr.Values[i]
}
