package dynamo

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clone(t *testing.T) {
	a := State{1, 2, 3}
	c := a.Clone()
	c[0] = 100
	if a[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
	if len(c) != len(a) || c[1] != 2 || c[2] != 3 {
		t.Errorf("Clone = %v, want a copy of %v", c, a)
	}
}

func TestTrajectory_Series(t *testing.T) {
	tr := &Trajectory{
		Times:  []float64{0, 1},
		Values: [][]float64{{1, 2}, {3, 4}},
	}
	if s := tr.Series(1); s[0] != 3 || s[1] != 4 {
		t.Errorf("Series(1) = %v", s)
	}
	if tr.Series(2) != nil || tr.Series(-1) != nil {
		t.Error("out of range series should be nil")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	pc := &ParamCountError{Params: []string{"a", "b"}, Expected: 2, Got: 3}
	if !errors.Is(pc, ErrParameterCount) {
		t.Error("ParamCountError should unwrap to ErrParameterCount")
	}
	if !strings.Contains(pc.Error(), "a, b") {
		t.Errorf("message should list parameters: %s", pc.Error())
	}

	mp := &MissingParamError{Missing: []string{"k"}}
	if !errors.Is(mp, ErrMissingParameter) {
		t.Error("MissingParamError should unwrap to ErrMissingParameter")
	}

	ie := &IntegrationError{Method: "RK45", Step: 12, Time: 0.5, Reason: "step size below 1e-15", Wrapped: ErrStepTooSmall}
	if !errors.Is(ie, ErrStepTooSmall) {
		t.Error("IntegrationError should unwrap to its cause")
	}
	if !strings.Contains(ie.Error(), "step size below 1e-15") {
		t.Errorf("solver reason missing from %q", ie.Error())
	}
}

func TestSystemFunc(t *testing.T) {
	sys := SystemFunc{Dim: 1, F: func(t float64, x State) State { return State{-x[0]} }}
	if sys.StateDim() != 1 {
		t.Errorf("StateDim = %d", sys.StateDim())
	}
	if d := sys.Derive(0, State{2}); d[0] != -2 {
		t.Errorf("Derive = %v", d)
	}
}
